package request

import "time"

// EmitReminderRequest 提醒推送请求
// 同一 Id 重复推送时客户端原地替换
// 使用位置:
//   - internal/handler/reminder_handler.go: EmitReminder
//   - internal/infrastructure/mq/reminder_consumer.go: Kafka 提醒消息
type EmitReminderRequest struct {
	Id           string    `json:"id" binding:"required,max=64"`
	TargetUserId string    `json:"target_user_id" binding:"required"`
	Message      string    `json:"message" binding:"required,max=500"`
	Timestamp    time.Time `json:"timestamp"`
}
