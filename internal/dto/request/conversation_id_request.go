package request

// ConversationIdRequest 针对单个会话的操作请求
// 使用位置:
//   - internal/handler/conversation_handler.go: CheckConversation, AcceptConversation, CloseConversation, GetConversation
type ConversationIdRequest struct {
	ConversationId string `json:"conversation_id" form:"conversation_id" binding:"required"`
}
