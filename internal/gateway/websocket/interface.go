package websocket

import (
	"context"

	"nutri_chat_server/internal/dto/request"
	"nutri_chat_server/internal/dto/respond"
	"nutri_chat_server/internal/event"
)

// Bus 跨实例事件总线，由 mq 包的 Broker 实现
// 为 nil 时事件只在本实例内投递
type Bus interface {
	Publish(ctx context.Context, env event.Envelope) error
}

// MessageSender 处理 ws 上的 send_message 指令
// 用于解耦 websocket 包对 service 包的依赖
type MessageSender interface {
	SendMessage(ctx context.Context, op request.Operator, req request.SendMessageRequest) (*respond.MessageRespond, error)
}

// RoomAuthorizer 校验连接能否加入会话房间
type RoomAuthorizer interface {
	CanJoinRoom(ctx context.Context, op request.Operator, conversationId string) error
}
