// Package message 实现会话内消息的发送与历史查询
package message

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
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
	"nutri_chat_server/pkg/enum/message/message_kind_enum"
	"nutri_chat_server/pkg/enum/user_info/user_role_enum"
	"nutri_chat_server/pkg/errorx"
	"nutri_chat_server/pkg/metrics"
	"nutri_chat_server/pkg/util/snowflake"
)

const bodyMaxRunes = 4000

// Acceptor 隐式接单，由 assignment 服务实现
type Acceptor interface {
	AcceptIfUnassigned(ctx context.Context, conversationId, agentId string) (*model.Conversation, error)
}

// messageService 消息业务逻辑实现
type messageService struct {
	repos    *mysql.Repositories
	cache    myredis.AsyncCacheService
	notify   *common.Notifier
	acceptor Acceptor
	tracer   trace.Tracer
}

// NewMessageService 构造函数
func NewMessageService(repos *mysql.Repositories, cacheService myredis.AsyncCacheService, publisher event.Publisher, acceptor Acceptor) *messageService {
	return &messageService{
		repos:    repos,
		cache:    cacheService,
		notify:   common.NewNotifier(publisher),
		acceptor: acceptor,
		tracer:   otel.Tracer("nutri_chat_server/service/message"),
	}
}

// SendMessage 发送消息
// 发送者必须是咨询用户本人或接单营养师；营养师回复未接单会话时先隐式接单，接单失败则不写入消息
func (s *messageService) SendMessage(ctx context.Context, op request.Operator, req request.SendMessageRequest) (*respond.MessageRespond, error) {
	ctx, span := s.tracer.Start(ctx, "message.Send", trace.WithAttributes(
		attribute.String("conversation.id", req.ConversationId),
		attribute.String("sender.id", op.UserId),
		attribute.Int("message.kind", int(req.Kind)),
	))
	defer span.End()

	rsp, err := s.send(ctx, op, req)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return rsp, err
}

func (s *messageService) send(ctx context.Context, op request.Operator, req request.SendMessageRequest) (*respond.MessageRespond, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	// 1. 鉴权
	conv, err := common.LoadConversation(s.repos.Conversation, req.ConversationId)
	if err != nil {
		return nil, err
	}
	if conv.State == conversation_state_enum.Closed {
		return nil, errorx.ErrConversationClosed
	}
	switch {
	case op.Role == user_role_enum.Subject && conv.SubjectUserId == op.UserId:
	case op.Role == user_role_enum.Agent && conv.AssignedAgentId == nil:
		if conv, err = s.acceptor.AcceptIfUnassigned(ctx, req.ConversationId, op.UserId); err != nil {
			zap.L().Info("隐式接单失败，消息未写入",
				zap.String("conversation_id", req.ConversationId),
				zap.String("agent_id", op.UserId),
				zap.Error(err),
			)
			return nil, err
		}
	case op.Role == user_role_enum.Agent && conv.AssignedTo(op.UserId):
	default:
		zap.L().Warn("无权在会话中发送消息",
			zap.String("conversation_id", req.ConversationId),
			zap.String("user_id", op.UserId),
			zap.String("role", op.Role),
		)
		return nil, errorx.ErrForbidden
	}

	// 2. 写入消息并更新会话摘要
	now := time.Now()
	msg := &model.Message{
		Uuid:             snowflake.GenerateIDString(),
		ConversationUuid: req.ConversationId,
		SenderId:         op.UserId,
		SenderRole:       op.Role,
		Kind:             req.Kind,
		Body:             req.Body,
		MediaUrl:         req.MediaUrl,
	}
	summary := Summarize(req.Kind, req.Body)
	appended, err := s.repos.AppendMessage(msg, summary, now)
	if err != nil {
		zap.L().Error("写入消息失败", zap.String("conversation_id", req.ConversationId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	if !appended {
		return nil, errorx.ErrConversationClosed
	}
	metrics.MessagesTotal.WithLabelValues(op.Role).Inc()

	// 3. 待处理列表展示最新摘要，需失效；随后推送
	common.InvalidatePending(ctx, s.cache)
	rsp := respond.NewMessageRespond(msg)
	s.notify.ToConversation(ctx, req.ConversationId, event.MessageReceived, rsp)

	conv.LastMessageSummary = summary
	conv.LastMessageAt = sql.NullTime{Time: now, Valid: true}
	conv.UpdatedAt = now
	s.notify.ConversationUpdated(ctx, conv, common.ToRespond(s.repos.Conversation, conv), op.UserId)
	return &rsp, nil
}

func validate(req request.SendMessageRequest) error {
	if req.ConversationId == "" {
		return errorx.New(errorx.CodeInvalidParam, "会话id不能为空")
	}
	if !message_kind_enum.Valid(req.Kind) {
		return errorx.New(errorx.CodeInvalidParam, "不支持的消息类型")
	}
	if utf8.RuneCountInString(req.Body) > bodyMaxRunes {
		return errorx.New(errorx.CodeInvalidParam, "消息内容过长")
	}
	switch req.Kind {
	case message_kind_enum.Text:
		if strings.TrimSpace(req.Body) == "" {
			return errorx.New(errorx.CodeInvalidParam, "消息内容不能为空")
		}
	default:
		if req.MediaUrl == "" {
			return errorx.New(errorx.CodeInvalidParam, "图片或视频消息需要media_url")
		}
	}
	return nil
}

// Summarize 生成会话列表展示的最新消息摘要
func Summarize(kind int8, body string) string {
	switch kind {
	case message_kind_enum.Image:
		return "[图片]"
	case message_kind_enum.Video:
		return "[视频]"
	}
	body = strings.TrimSpace(body)
	if utf8.RuneCountInString(body) <= constants.SUMMARY_MAX_RUNES {
		return body
	}
	return string([]rune(body)[:constants.SUMMARY_MAX_RUNES]) + "..."
}

// GetMessageList 按存储顺序获取会话历史
// Limit 为 0 时返回 Cursor 之后的全部消息
func (s *messageService) GetMessageList(ctx context.Context, op request.Operator, req request.GetMessageListRequest) (*respond.MessageListRespond, error) {
	conv, err := common.LoadConversation(s.repos.Conversation, req.ConversationId)
	if err != nil {
		return nil, err
	}
	if op.Role == user_role_enum.Subject && conv.SubjectUserId != op.UserId {
		return nil, errorx.ErrForbidden
	}
	if req.Limit < 0 || req.Limit > constants.MESSAGE_PAGE_MAX_SIZE {
		return nil, errorx.New(errorx.CodeInvalidParam, "limit 超出范围")
	}

	cacheKey := myredis.MessageListKey(req.ConversationId, req.Cursor, req.Limit)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			zap.L().Warn("读取消息缓存失败", zap.String("key", cacheKey), zap.Error(err))
		} else if cached != "" {
			var rsp respond.MessageListRespond
			if err := json.Unmarshal([]byte(cached), &rsp); err == nil {
				return &rsp, nil
			}
			zap.L().Warn("消息缓存格式错误", zap.String("key", cacheKey))
		}
	}

	// 多取一条用于判断是否还有下一页
	fetch := 0
	if req.Limit > 0 {
		fetch = req.Limit + 1
	}
	messages, err := s.repos.Message.FindByConversation(req.ConversationId, req.Cursor, fetch)
	if err != nil {
		zap.L().Error("查询消息失败", zap.String("conversation_id", req.ConversationId), zap.Error(err))
		return nil, errorx.ErrServerBusy
	}
	rsp := &respond.MessageListRespond{Messages: make([]respond.MessageRespond, 0, len(messages)), NextCursor: req.Cursor}
	if req.Limit > 0 && len(messages) > req.Limit {
		messages = messages[:req.Limit]
		rsp.HasMore = true
	}
	for i := range messages {
		rsp.Messages = append(rsp.Messages, respond.NewMessageRespond(&messages[i]))
	}
	if n := len(messages); n > 0 {
		rsp.NextCursor = messages[n-1].ID
	}

	// 末页会随新消息变化，不缓存
	if s.cache != nil && rsp.HasMore {
		s.cache.SubmitTask(func() {
			data, err := json.Marshal(rsp)
			if err != nil {
				zap.L().Error("序列化消息列表失败", zap.Error(err))
				return
			}
			if err := s.cache.Set(context.Background(), cacheKey, string(data), time.Minute*constants.REDIS_TIMEOUT); err != nil {
				zap.L().Warn("写入消息缓存失败", zap.String("key", cacheKey), zap.Error(err))
			}
		})
	}
	return rsp, nil
}
