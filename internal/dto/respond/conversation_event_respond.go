package respond

// ConversationEventRespond 会话状态类事件数据
// 使用位置:
//   - internal/service/*: conversation_created/checked/assigned/closed/updated 事件
type ConversationEventRespond struct {
	Conversation ConversationRespond `json:"conversation"`
	ActorId      string              `json:"actor_id,omitempty"`
}
