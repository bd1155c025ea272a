package model

import (
	"gorm.io/gorm"
)

// Message 消息模型
// 对应数据库 message 表
// 自增主键 ID 即会话内的存储顺序，历史记录按 ID 升序返回
type Message struct {
	gorm.Model

	// Uuid 消息唯一标识，雪花算法生成
	Uuid string `gorm:"column:uuid;uniqueIndex;type:char(20);not null;comment:消息雪花ID"`

	// ConversationUuid 所属会话
	ConversationUuid string `gorm:"column:conversation_uuid;index;type:char(20);not null;comment:会话uuid"`

	// SenderId 发送者
	SenderId string `gorm:"column:sender_id;index;type:varchar(64);not null;comment:发送者id"`

	// SenderRole 发送者角色：user 或 agent
	SenderRole string `gorm:"column:sender_role;type:varchar(16);not null;comment:发送者角色"`

	// Kind 消息类型，参见 message_kind_enum
	Kind int8 `gorm:"column:kind;not null;comment:消息类型，0.文本，1.图片，2.视频"`

	// Body 文本内容
	Body string `gorm:"column:body;type:TEXT;comment:消息内容"`

	// MediaUrl 图片或视频地址，文件本身存放在对象存储中
	MediaUrl string `gorm:"column:media_url;type:varchar(255);comment:媒体url"`
}

// TableName 指定表名
func (Message) TableName() string {
	return "message"
}
