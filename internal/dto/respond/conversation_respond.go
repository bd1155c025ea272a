package respond

import (
	"time"

	"nutri_chat_server/internal/model"
	"nutri_chat_server/pkg/enum/conversation/conversation_state_enum"
)

// ConversationRespond 会话信息
// 使用位置:
//   - internal/service/conversation: 列表与详情
//   - internal/service/assignment: 查看与接单结果
type ConversationRespond struct {
	ConversationId     string     `json:"conversation_id"`
	SubjectUserId      string     `json:"subject_user_id"`
	AssignedAgentId    string     `json:"assigned_agent_id,omitempty"`
	CheckedBy          []string   `json:"checked_by"`
	Topic              string     `json:"topic"`
	State              string     `json:"state"`
	LastMessageSummary string     `json:"last_message_summary"`
	LastMessageAt      *time.Time `json:"last_message_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// NewConversationRespond 由模型构造响应，checkedBy 为空时返回空数组
func NewConversationRespond(conv *model.Conversation, checkedBy []string) ConversationRespond {
	if checkedBy == nil {
		checkedBy = []string{}
	}
	rsp := ConversationRespond{
		ConversationId:     conv.Uuid,
		SubjectUserId:      conv.SubjectUserId,
		CheckedBy:          checkedBy,
		Topic:              conv.Topic,
		State:              conversation_state_enum.Name(conv.State),
		LastMessageSummary: conv.LastMessageSummary,
		CreatedAt:          conv.CreatedAt,
		UpdatedAt:          conv.UpdatedAt,
	}
	if conv.AssignedAgentId != nil {
		rsp.AssignedAgentId = *conv.AssignedAgentId
	}
	if conv.LastMessageAt.Valid {
		t := conv.LastMessageAt.Time
		rsp.LastMessageAt = &t
	}
	return rsp
}
