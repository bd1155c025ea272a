package request

// GetMessageListRequest 获取会话历史消息请求
// Cursor 为上一页返回的 next_cursor，首次请求不传
// 使用位置:
//   - internal/handler/message_handler.go: GetMessageList
type GetMessageListRequest struct {
	ConversationId string `form:"conversation_id" binding:"required"`
	Cursor         uint   `form:"cursor"`
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=200"`
}
