package model

import "time"

// ConversationCheck 营养师查看记录
// 对应数据库 conversation_check 表，(conversation_uuid, agent_id) 唯一
type ConversationCheck struct {
	ID               uint      `gorm:"primarykey"`
	ConversationUuid string    `gorm:"column:conversation_uuid;type:char(20);not null;uniqueIndex:idx_conversation_agent,priority:1;comment:会话uuid"`
	AgentId          string    `gorm:"column:agent_id;type:varchar(64);not null;uniqueIndex:idx_conversation_agent,priority:2;index:idx_check_agent;comment:营养师id"`
	CreatedAt        time.Time `gorm:"column:created_at"`
}

// TableName 指定表名
func (ConversationCheck) TableName() string {
	return "conversation_check"
}
