package redis

import "fmt"

// PendingListKey 待处理会话列表缓存
const PendingListKey = "pending_conversation_list"

// PendingVersionKey 待处理列表版本，每次失效写入新值
// 缓存的列表带有回填时读到的版本，与当前版本不一致即视为过期
const PendingVersionKey = "pending_conversation_list_version"

// MessageListKey 会话历史消息分页缓存
// 只缓存后面还有消息的整页，这样的页不会再变化
func MessageListKey(conversationId string, afterId uint, limit int) string {
	return fmt.Sprintf("conversation_messages_%s_%d_%d", conversationId, afterId, limit)
}
