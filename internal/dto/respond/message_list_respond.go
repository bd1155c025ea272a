package respond

// MessageListRespond 分页历史消息
// NextCursor 为本页最后一条消息的 Seq，HasMore 为 false 时已到末尾
// 使用位置:
//   - internal/service/message: GetMessageList
type MessageListRespond struct {
	Messages   []MessageRespond `json:"messages"`
	NextCursor uint             `json:"next_cursor"`
	HasMore    bool             `json:"has_more"`
}
