// Package handler 提供 HTTP 请求处理器
// 本文件实现 Handler 层的依赖注入和聚合
package handler

import (
	"nutri_chat_server/internal/service"
)

// Handlers 聚合所有 Handler 实例，Router 通过此结构注册路由
type Handlers struct {
	Conversation *ConversationHandler // 会话
	Message      *MessageHandler      // 消息
	Reminder     *ReminderHandler     // 提醒
	Ws           *WsHandler           // WebSocket
	Health       *HealthHandler       // 健康检查
}

// NewHandlers 基于 Service 聚合与 WebSocket 网关创建所有 Handler
func NewHandlers(svc *service.Services, gateway WsGateway, checks ...HealthCheck) *Handlers {
	return &Handlers{
		Conversation: NewConversationHandler(svc.Conversation, svc.Assignment),
		Message:      NewMessageHandler(svc.Message),
		Reminder:     NewReminderHandler(svc.Reminder),
		Ws:           NewWsHandler(gateway),
		Health:       NewHealthHandler(gateway, checks...),
	}
}
