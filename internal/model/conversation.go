// Package model 定义数据库实体模型
package model

import (
	"database/sql"

	"gorm.io/gorm"
)

// Conversation 咨询会话模型
// 对应数据库 conversation 表
// 由咨询用户发起，至多被一位营养师接单
type Conversation struct {
	gorm.Model

	// Uuid 会话唯一标识
	// 格式：C + 日期前缀随机字符串
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);not null;comment:会话uuid"`

	// SubjectUserId 发起咨询的用户
	SubjectUserId string `gorm:"column:subject_user_id;type:varchar(64);not null;uniqueIndex:idx_subject_open_topic,priority:1;comment:咨询用户id"`

	// Topic 咨询主题
	Topic string `gorm:"column:topic;type:varchar(191);not null;comment:咨询主题"`

	// OpenTopic 未结束会话的主题，会话结束后置空
	// 与 SubjectUserId 组成唯一索引，保证同一用户同一主题只有一个未结束会话
	OpenTopic *string `gorm:"column:open_topic;type:varchar(191);uniqueIndex:idx_subject_open_topic,priority:2;comment:未结束会话主题"`

	// AssignedAgentId 接单营养师，未接单时为 NULL
	AssignedAgentId *string `gorm:"column:assigned_agent_id;type:varchar(64);index;comment:接单营养师id"`

	// State 会话状态，参见 conversation_state_enum
	State int8 `gorm:"column:state;not null;default:0;index;comment:状态，0.待处理，1.已查看，2.进行中，3.已结束"`

	// LastMessageSummary 最后一条消息摘要，用于列表展示
	LastMessageSummary string `gorm:"column:last_message_summary;type:varchar(255);comment:最新消息摘要"`

	// LastMessageAt 最后消息时间
	LastMessageAt sql.NullTime `gorm:"column:last_message_at;comment:最近消息时间"`

	AssignedAt sql.NullTime `gorm:"column:assigned_at;comment:接单时间"`
	ClosedAt   sql.NullTime `gorm:"column:closed_at;comment:结束时间"`
}

// TableName 指定表名
func (Conversation) TableName() string {
	return "conversation"
}

// AssignedTo 判断会话是否由指定营养师负责
func (c *Conversation) AssignedTo(agentId string) bool {
	return c.AssignedAgentId != nil && *c.AssignedAgentId == agentId
}

// Participants 返回会话参与者：咨询用户及接单营养师（如有）
func (c *Conversation) Participants() []string {
	if c.AssignedAgentId == nil || *c.AssignedAgentId == c.SubjectUserId {
		return []string{c.SubjectUserId}
	}
	return []string{c.SubjectUserId, *c.AssignedAgentId}
}
