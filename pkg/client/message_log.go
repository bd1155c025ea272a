package client

import (
	"sort"
	"sync"
	"time"
)

// Message 会话中的一条消息
type Message struct {
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

// MessageLog 一个会话的本地消息记录
// 实时推送与历史拉取的结果可能重叠，按 message_id 去重并按 seq 排序
type MessageLog struct {
	mu    sync.RWMutex
	items []Message
	seen  map[string]struct{}
}

// NewMessageLog 创建空的消息记录
func NewMessageLog() *MessageLog {
	return &MessageLog{seen: make(map[string]struct{})}
}

// Merge 合并一批消息，返回新增条数
func (l *MessageLog) Merge(msgs ...Message) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	added := 0
	for _, m := range msgs {
		if _, ok := l.seen[m.MessageId]; ok {
			continue
		}
		l.seen[m.MessageId] = struct{}{}
		l.items = append(l.items, m)
		added++
	}
	if added > 0 {
		sort.SliceStable(l.items, func(i, j int) bool { return l.items[i].Seq < l.items[j].Seq })
	}
	return added
}

// List 返回按 seq 升序的消息副本
func (l *MessageLog) List() []Message {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Message, len(l.items))
	copy(out, l.items)
	return out
}

// LastSeq 最后一条消息的 seq，可作为下次拉取历史的游标
func (l *MessageLog) LastSeq() uint {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if len(l.items) == 0 {
		return 0
	}
	return l.items[len(l.items)-1].Seq
}
