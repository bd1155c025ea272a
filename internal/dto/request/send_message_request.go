package request

// SendMessageRequest 发送消息请求
// 使用位置:
//   - internal/handler/message_handler.go: SendMessage
//   - internal/gateway/websocket/client.go: send_message 指令
type SendMessageRequest struct {
	ConversationId string `json:"conversation_id" binding:"required"`
	Kind           int8   `json:"kind" binding:"oneof=0 1 2"`
	Body           string `json:"body" binding:"max=4000"`
	MediaUrl       string `json:"media_url" binding:"omitempty,url,max=255"`
}
