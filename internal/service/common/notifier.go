package common

import (
	"context"

	"go.uber.org/zap"

	"nutri_chat_server/internal/dto/respond"
	"nutri_chat_server/internal/event"
	"nutri_chat_server/internal/model"
	"nutri_chat_server/pkg/constants"
)

// Notifier 业务事件发布
// 推送失败只记录日志，接收方重连后通过列表与历史接口补齐
type Notifier struct {
	pub event.Publisher
}

// NewNotifier pub 为 nil 时所有推送都是空操作
func NewNotifier(pub event.Publisher) *Notifier {
	return &Notifier{pub: pub}
}

// ToPool 推送到营养师池
func (n *Notifier) ToPool(ctx context.Context, eventType string, data any) {
	n.toRoom(ctx, constants.AGENT_POOL_ROOM, eventType, data)
}

// ToConversation 推送到会话房间
func (n *Notifier) ToConversation(ctx context.Context, conversationId, eventType string, data any) {
	n.toRoom(ctx, event.ConversationRoom(conversationId), eventType, data)
}

// ConversationUpdated 向会话参与者的用户通道推送 conversation_updated
func (n *Notifier) ConversationUpdated(ctx context.Context, conv *model.Conversation, view respond.ConversationRespond, actorId string) {
	if n == nil || n.pub == nil {
		return
	}
	evt, err := event.New(event.ConversationUpdated, respond.ConversationEventRespond{
		Conversation: view,
		ActorId:      actorId,
	})
	if err != nil {
		zap.L().Error("构造事件失败", zap.String("type", event.ConversationUpdated), zap.Error(err))
		return
	}
	for _, userId := range conv.Participants() {
		if err := n.pub.PublishToUser(ctx, userId, evt); err != nil {
			zap.L().Warn("推送用户事件失败",
				zap.String("type", evt.Type),
				zap.String("user_id", userId),
				zap.Error(err),
			)
		}
	}
}

func (n *Notifier) toRoom(ctx context.Context, room, eventType string, data any) {
	if n == nil || n.pub == nil {
		return
	}
	evt, err := event.New(eventType, data)
	if err != nil {
		zap.L().Error("构造事件失败", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := n.pub.PublishToRoom(ctx, room, evt); err != nil {
		zap.L().Warn("推送房间事件失败",
			zap.String("type", eventType),
			zap.String("room", room),
			zap.Error(err),
		)
	}
}
