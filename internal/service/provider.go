// Package service 提供业务逻辑层
// 本文件实现 Service 层的依赖注入和聚合
package service

import (
	"nutri_chat_server/internal/dao/mysql"
	myredis "nutri_chat_server/internal/dao/redis"
	"nutri_chat_server/internal/event"
	"nutri_chat_server/internal/service/assignment"
	"nutri_chat_server/internal/service/conversation"
	"nutri_chat_server/internal/service/message"
	"nutri_chat_server/internal/service/reminder"
)

// Services 聚合所有 Service 实例
// 作为依赖注入的入口，Handler 层通过此结构访问各个 Service
type Services struct {
	Conversation ConversationService // 会话 Service
	Assignment   AssignmentService   // 查看与接单 Service
	Message      MessageService      // 消息 Service
	Reminder     ReminderService     // 提醒 Service
}

// NewServices 创建并注入所有 Service 实例
// 依赖注入流程：
//  1. 接收 Repository 聚合、缓存与事件发布实例
//  2. 创建各个 Service 实例，消息 Service 依赖接单 Service 完成隐式接单
//  3. 返回 Services 聚合
//
// cacheService 为 nil 时不使用缓存
func NewServices(repos *mysql.Repositories, cacheService myredis.AsyncCacheService, publisher event.Publisher) *Services {
	assignmentSvc := assignment.NewAssignmentService(repos, cacheService, publisher)
	return &Services{
		Conversation: conversation.NewConversationService(repos, cacheService, publisher),
		Assignment:   assignmentSvc,
		Message:      message.NewMessageService(repos, cacheService, publisher, assignmentSvc),
		Reminder:     reminder.NewReminderService(publisher, reminder.SourceAPI),
	}
}
