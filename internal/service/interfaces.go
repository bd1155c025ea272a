// Package service 定义业务层接口
// 本文件定义所有 Service 接口，供 Handler 层与 ws 网关调用
package service

import (
	"context"

	"nutri_chat_server/internal/dto/request"
	"nutri_chat_server/internal/dto/respond"
	"nutri_chat_server/internal/model"
)

// ConversationService 咨询会话业务接口
// 处理会话的创建、查询、结束与房间权限
type ConversationService interface {
	// CreateConversation 咨询用户发起会话
	CreateConversation(ctx context.Context, op request.Operator, req request.CreateConversationRequest) (*respond.ConversationRespond, error)
	// GetConversation 会话详情
	GetConversation(ctx context.Context, op request.Operator, conversationId string) (*respond.ConversationRespond, error)
	// ListMine 咨询用户自己的会话
	ListMine(ctx context.Context, op request.Operator) ([]respond.ConversationRespond, error)
	// ListPending 待处理会话
	ListPending(ctx context.Context, op request.Operator) ([]respond.ConversationRespond, error)
	// ListChecked 营养师查看过且未被接单的会话
	ListChecked(ctx context.Context, op request.Operator) ([]respond.ConversationRespond, error)
	// ListActive 营养师负责的进行中会话
	ListActive(ctx context.Context, op request.Operator) ([]respond.ConversationRespond, error)
	// CloseConversation 结束会话
	CloseConversation(ctx context.Context, op request.Operator, conversationId string) (*respond.ConversationRespond, error)
	// CanJoinRoom 能否订阅会话房间
	CanJoinRoom(ctx context.Context, op request.Operator, conversationId string) error
}

// AssignmentService 营养师查看与接单业务接口
type AssignmentService interface {
	// Check 查看会话，非独占
	Check(ctx context.Context, op request.Operator, conversationId string) (*respond.ConversationRespond, error)
	// Accept 接单，独占
	Accept(ctx context.Context, op request.Operator, conversationId string) (*respond.ConversationRespond, error)
	// AcceptIfUnassigned 营养师首次回复时的隐式接单
	AcceptIfUnassigned(ctx context.Context, conversationId, agentId string) (*model.Conversation, error)
}

// MessageService 消息业务接口
type MessageService interface {
	// SendMessage 发送消息
	SendMessage(ctx context.Context, op request.Operator, req request.SendMessageRequest) (*respond.MessageRespond, error)
	// GetMessageList 分页获取会话历史
	GetMessageList(ctx context.Context, op request.Operator, req request.GetMessageListRequest) (*respond.MessageListRespond, error)
}

// ReminderService 提醒推送业务接口
type ReminderService interface {
	// Emit 推送提醒到目标用户
	Emit(ctx context.Context, req request.EmitReminderRequest) (*respond.ReminderRespond, error)
}
