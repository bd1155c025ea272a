// Package conversation 实现咨询会话的创建、查询与结束
package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"nutri_chat_server/internal/dao/mysql"
	myredis "nutri_chat_server/internal/dao/redis"
	"nutri_chat_server/internal/dto/request"
	"nutri_chat_server/internal/dto/respond"
	"nutri_chat_server/internal/event"
	"nutri_chat_server/internal/model"
	"nutri_chat_server/internal/service/common"
	"nutri_chat_server/pkg/constants"
	"nutri_chat_server/pkg/enum/conversation/conversation_state_enum"
	"nutri_chat_server/pkg/enum/user_info/user_role_enum"
	"nutri_chat_server/pkg/errorx"
	"nutri_chat_server/pkg/util/random"
)

// conversationService 会话业务逻辑实现
// 通过构造函数注入 Repository、Cache 与事件发布依赖
type conversationService struct {
	repos  *mysql.Repositories
	cache  myredis.AsyncCacheService
	notify *common.Notifier
}

// NewConversationService 构造函数，cacheService 为 nil 时不使用缓存
func NewConversationService(repos *mysql.Repositories, cacheService myredis.AsyncCacheService, publisher event.Publisher) *conversationService {
	return &conversationService{
		repos:  repos,
		cache:  cacheService,
		notify: common.NewNotifier(publisher),
	}
}

// CreateConversation 发起咨询
// 同一用户同一主题已有未结束会话时返回 CodeDuplicateTopic，Data 中带已有会话 id
func (s *conversationService) CreateConversation(ctx context.Context, op request.Operator, req request.CreateConversationRequest) (*respond.ConversationRespond, error) {
	if op.Role != user_role_enum.Subject {
		return nil, errorx.New(errorx.CodeForbidden, "只有咨询用户可以发起会话")
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" || utf8.RuneCountInString(topic) > constants.TOPIC_MAX_LENGTH {
		return nil, errorx.New(errorx.CodeInvalidParam, "咨询主题不能为空且不能超过191个字符")
	}

	// 1. 先查已有会话，大多数重复请求在这里返回
	if existing, err := s.repos.Conversation.FindOpenBySubjectAndTopic(op.UserId, topic); err == nil {
		return nil, duplicateTopic(existing.Uuid)
	} else if !errorx.IsNotFound(err) {
		zap.L().Error("查询未结束会话失败", zap.String("user_id", op.UserId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	// 2. 写入，并发创建由唯一索引兜底
	conv := &model.Conversation{
		Uuid:          fmt.Sprintf("C%s", random.GetNowAndLenRandomString(11)),
		SubjectUserId: op.UserId,
		Topic:         topic,
		OpenTopic:     &topic,
		State:         conversation_state_enum.Pending,
	}
	if err := s.repos.Conversation.Create(conv); err != nil {
		if errorx.GetCode(err) == errorx.CodeDuplicateTopic {
			existing, findErr := s.repos.Conversation.FindOpenBySubjectAndTopic(op.UserId, topic)
			if findErr != nil {
				return nil, duplicateTopic("")
			}
			return nil, duplicateTopic(existing.Uuid)
		}
		zap.L().Error("创建会话失败", zap.String("user_id", op.UserId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}

	zap.L().Info("会话已创建",
		zap.String("conversation_id", conv.Uuid),
		zap.String("user_id", op.UserId),
	)
	common.InvalidatePending(ctx, s.cache)
	rsp := respond.NewConversationRespond(conv, nil)
	s.notify.ToPool(ctx, event.ConversationCreated, respond.ConversationEventRespond{Conversation: rsp, ActorId: op.UserId})
	return &rsp, nil
}

func duplicateTopic(existingId string) *errorx.CodeError {
	err := errorx.New(errorx.CodeDuplicateTopic, "该主题已有未结束的咨询")
	if existingId == "" {
		return err
	}
	return err.WithData(map[string]string{"conversation_id": existingId})
}

// GetConversation 会话详情，咨询用户只能查看自己的会话，营养师可查看任意会话
func (s *conversationService) GetConversation(ctx context.Context, op request.Operator, conversationId string) (*respond.ConversationRespond, error) {
	conv, err := common.LoadConversation(s.repos.Conversation, conversationId)
	if err != nil {
		return nil, err
	}
	if !canView(op, conv) {
		return nil, errorx.ErrForbidden
	}
	rsp := common.ToRespond(s.repos.Conversation, conv)
	return &rsp, nil
}

// CanJoinRoom 加入会话房间前的权限校验
func (s *conversationService) CanJoinRoom(ctx context.Context, op request.Operator, conversationId string) error {
	conv, err := common.LoadConversation(s.repos.Conversation, conversationId)
	if err != nil {
		return err
	}
	if !canView(op, conv) {
		return errorx.ErrForbidden
	}
	return nil
}

func canView(op request.Operator, conv *model.Conversation) bool {
	switch op.Role {
	case user_role_enum.Agent, user_role_enum.System:
		return true
	case user_role_enum.Subject:
		return conv.SubjectUserId == op.UserId
	}
	return false
}

// ListMine 咨询用户自己的会话，最新的在前
func (s *conversationService) ListMine(ctx context.Context, op request.Operator) ([]respond.ConversationRespond, error) {
	convs, err := s.repos.Conversation.FindBySubject(op.UserId)
	if err != nil {
		zap.L().Error("查询用户会话失败", zap.String("user_id", op.UserId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return common.ToRespondList(s.repos.Conversation, convs)
}

// ListPending 待处理会话，先创建的在前
// 结果连同版本号缓存在 PendingListKey，任何状态变化都会更换版本
func (s *conversationService) ListPending(ctx context.Context, op request.Operator) ([]respond.ConversationRespond, error) {
	version := ""
	if s.cache != nil {
		v, err := common.PendingVersion(ctx, s.cache)
		if err != nil {
			zap.L().Warn("读取待处理会话缓存版本失败", zap.Error(err))
		} else if list, ok := s.cachedPending(ctx, v); ok {
			return list, nil
		} else {
			version = v
		}
	}

	convs, err := s.repos.Conversation.FindByState(conversation_state_enum.Pending)
	if err != nil {
		zap.L().Error("查询待处理会话失败", zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	rsp, err := common.ToRespondList(s.repos.Conversation, convs)
	if err != nil {
		return nil, err
	}

	if version != "" {
		snapshot := common.PendingSnapshot{Version: version, List: rsp}
		s.cache.SubmitTask(func() {
			data, err := json.Marshal(snapshot)
			if err != nil {
				zap.L().Error("序列化待处理会话失败", zap.Error(err))
				return
			}
			if err := s.cache.Set(context.Background(), myredis.PendingListKey, string(data),
				time.Minute*constants.REDIS_TIMEOUT); err != nil {
				zap.L().Warn("写入待处理会话缓存失败", zap.Error(err))
			}
		})
	}
	return rsp, nil
}

// cachedPending 读取与 version 一致的缓存列表
func (s *conversationService) cachedPending(ctx context.Context, version string) ([]respond.ConversationRespond, bool) {
	cached, err := s.cache.Get(ctx, myredis.PendingListKey)
	if err != nil {
		zap.L().Warn("读取待处理会话缓存失败", zap.Error(err))
		return nil, false
	}
	if cached == "" {
		return nil, false
	}
	var snapshot common.PendingSnapshot
	if err := json.Unmarshal([]byte(cached), &snapshot); err != nil {
		zap.L().Warn("待处理会话缓存格式错误", zap.Error(err))
		return nil, false
	}
	if snapshot.Version != version || snapshot.List == nil {
		return nil, false
	}
	return snapshot.List, true
}

// ListChecked 营养师查看过但尚未被接单的会话
func (s *conversationService) ListChecked(ctx context.Context, op request.Operator) ([]respond.ConversationRespond, error) {
	convs, err := s.repos.Conversation.FindCheckedByAgent(op.UserId)
	if err != nil {
		zap.L().Error("查询已查看会话失败", zap.String("agent_id", op.UserId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return common.ToRespondList(s.repos.Conversation, convs)
}

// ListActive 营养师负责的进行中会话，没有会话时返回空数组
func (s *conversationService) ListActive(ctx context.Context, op request.Operator) ([]respond.ConversationRespond, error) {
	convs, err := s.repos.Conversation.FindActiveByAgent(op.UserId)
	if err != nil {
		zap.L().Error("查询进行中会话失败", zap.String("agent_id", op.UserId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	return common.ToRespondList(s.repos.Conversation, convs)
}

// CloseConversation 结束会话，咨询用户或接单营养师可操作
// 已结束的会话再次结束直接返回成功
func (s *conversationService) CloseConversation(ctx context.Context, op request.Operator, conversationId string) (*respond.ConversationRespond, error) {
	conv, err := common.LoadConversation(s.repos.Conversation, conversationId)
	if err != nil {
		return nil, err
	}
	if conv.SubjectUserId != op.UserId && !conv.AssignedTo(op.UserId) {
		return nil, errorx.ErrForbidden
	}
	if conv.State == conversation_state_enum.Closed {
		rsp := common.ToRespond(s.repos.Conversation, conv)
		return &rsp, nil
	}

	now := time.Now()
	ok, err := s.repos.Conversation.CompareAndClose(conversationId, now)
	if err != nil {
		zap.L().Error("结束会话失败", zap.String("conversation_id", conversationId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if ok {
		conv.State = conversation_state_enum.Closed
		conv.OpenTopic = nil
		conv.ClosedAt = sql.NullTime{Time: now, Valid: true}
		conv.UpdatedAt = now
		zap.L().Info("会话已结束",
			zap.String("conversation_id", conversationId),
			zap.String("actor_id", op.UserId),
		)
	} else if conv, err = common.LoadConversation(s.repos.Conversation, conversationId); err != nil {
		return nil, err
	}

	rsp := common.ToRespond(s.repos.Conversation, conv)
	if ok {
		common.InvalidatePending(ctx, s.cache)
		data := respond.ConversationEventRespond{Conversation: rsp, ActorId: op.UserId}
		s.notify.ToPool(ctx, event.ConversationClosed, data)
		s.notify.ToConversation(ctx, conversationId, event.ConversationClosed, data)
		s.notify.ConversationUpdated(ctx, conv, rsp, op.UserId)
	}
	return &rsp, nil
}
