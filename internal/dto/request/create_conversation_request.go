package request

// CreateConversationRequest 发起咨询请求
// 使用位置:
//   - internal/handler/conversation_handler.go: CreateConversation
type CreateConversationRequest struct {
	Topic string `json:"topic" binding:"required,max=191"`
}
