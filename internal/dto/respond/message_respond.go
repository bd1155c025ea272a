package respond

import (
	"time"

	"nutri_chat_server/internal/model"
)

// MessageRespond 单条消息
// Seq 为存储顺序，客户端按 Seq 排序并按 MessageId 去重
// 使用位置:
//   - internal/service/message: 发送结果、历史记录、message_received 事件
type MessageRespond struct {
	MessageId      string    `json:"message_id"`
	Seq            uint      `json:"seq"`
	ConversationId string    `json:"conversation_id"`
	SenderId       string    `json:"sender_id"`
	SenderRole     string    `json:"sender_role"`
	Kind           int8      `json:"kind"`
	Body           string    `json:"body,omitempty"`
	MediaUrl       string    `json:"media_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// NewMessageRespond 由模型构造响应
func NewMessageRespond(m *model.Message) MessageRespond {
	return MessageRespond{
		MessageId:      m.Uuid,
		Seq:            m.ID,
		ConversationId: m.ConversationUuid,
		SenderId:       m.SenderId,
		SenderRole:     m.SenderRole,
		Kind:           m.Kind,
		Body:           m.Body,
		MediaUrl:       m.MediaUrl,
		CreatedAt:      m.CreatedAt,
	}
}
