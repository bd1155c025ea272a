package client

import (
	"sync"
	"time"
)

// Reminder 客户端收到的提醒
type Reminder struct {
	Id        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// ReminderFeed 本地提醒列表，按 id 合并
// 服务端投递是至少一次，同一提醒重复到达时替换原位置的内容，新提醒插入到最前
type ReminderFeed struct {
	mu    sync.RWMutex
	items []Reminder
	index map[string]int
}

// NewReminderFeed 创建空的提醒列表
func NewReminderFeed() *ReminderFeed {
	return &ReminderFeed{index: make(map[string]int)}
}

// Merge 合并一条提醒，返回 true 表示替换了已有提醒
func (f *ReminderFeed) Merge(r Reminder) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if i, ok := f.index[r.Id]; ok {
		f.items[i] = r
		return true
	}
	f.items = append([]Reminder{r}, f.items...)
	for id := range f.index {
		f.index[id]++
	}
	f.index[r.Id] = 0
	return false
}

// List 返回列表副本，最新的在前
func (f *ReminderFeed) List() []Reminder {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Reminder, len(f.items))
	copy(out, f.items)
	return out
}

// Len 提醒条数
func (f *ReminderFeed) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.items)
}
