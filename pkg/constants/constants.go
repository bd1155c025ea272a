package constants

import "time"

const (
	CHANNEL_SIZE          = 100 // 通道大小
	REDIS_TIMEOUT         = 1   // redis timeout (分钟)
	SEND_BUFFER_SIZE      = 256 // 每个 ws 连接的发送缓冲
	MESSAGE_PAGE_SIZE     = 50  // 历史消息默认分页大小
	MESSAGE_PAGE_MAX_SIZE = 200 // 历史消息分页上限
	SUMMARY_MAX_RUNES     = 50  // 会话最后一条消息摘要长度
	TOPIC_MAX_LENGTH      = 191 // 咨询主题最大长度
)

// WebSocket 心跳参数
const (
	WS_WRITE_WAIT       = 10 * time.Second
	WS_PONG_WAIT        = 60 * time.Second
	WS_PING_PERIOD      = (WS_PONG_WAIT * 9) / 10
	WS_MAX_MESSAGE_SIZE = 8 * 1024
)

// 房间与事件通道前缀
const (
	CONVERSATION_ROOM_PREFIX = "conversation:"
	AGENT_POOL_ROOM          = "pool:agent"
)
