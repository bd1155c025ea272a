package respond

import "time"

// ReminderRespond reminder_received 事件数据
// 使用位置:
//   - internal/service/reminder: Emit, 定时提醒
type ReminderRespond struct {
	Id        string    `json:"id"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
