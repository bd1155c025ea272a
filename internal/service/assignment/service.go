// Package assignment 实现营养师查看与接单
// 接单通过数据库条件更新完成，多实例并发时同一会话只有一个营养师成功
package assignment

import (
	"context"
	"time"

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
	"nutri_chat_server/pkg/enum/conversation/conversation_state_enum"
	"nutri_chat_server/pkg/enum/user_info/user_role_enum"
	"nutri_chat_server/pkg/errorx"
	"nutri_chat_server/pkg/metrics"
)

// 接单结果，用于指标
const (
	outcomeWon      = "won"
	outcomeIdem     = "idempotent"
	outcomeLost     = "lost"
	outcomeClosed   = "closed"
	outcomeNotFound = "not_found"
	outcomeError    = "error"
)

// assignmentService 查看与接单业务实现
type assignmentService struct {
	repos  *mysql.Repositories
	cache  myredis.AsyncCacheService
	notify *common.Notifier
	tracer trace.Tracer
}

// NewAssignmentService 构造函数
func NewAssignmentService(repos *mysql.Repositories, cacheService myredis.AsyncCacheService, publisher event.Publisher) *assignmentService {
	return &assignmentService{
		repos:  repos,
		cache:  cacheService,
		notify: common.NewNotifier(publisher),
		tracer: otel.Tracer("nutri_chat_server/service/assignment"),
	}
}

// Check 营养师查看会话，可多人查看，重复查看幂等
// 已被接单返回 CodeAlreadyAssigned，已结束返回 CodeConversationClosed
func (s *assignmentService) Check(ctx context.Context, op request.Operator, conversationId string) (*respond.ConversationRespond, error) {
	ctx, span := s.tracer.Start(ctx, "assignment.Check", trace.WithAttributes(
		attribute.String("conversation.id", conversationId),
		attribute.String("agent.id", op.UserId),
	))
	defer span.End()

	if op.Role != user_role_enum.Agent {
		return nil, errorx.ErrForbidden
	}

	var (
		conv   *model.Conversation
		marked bool
	)
	err := s.repos.Transaction(func(tx *mysql.Repositories) error {
		ok, err := tx.Conversation.MarkChecked(conversationId)
		if err != nil {
			return err
		}
		if conv, err = tx.Conversation.FindByUuid(conversationId); err != nil {
			return err
		}
		if !ok {
			if conv.State == conversation_state_enum.Closed {
				return errorx.ErrConversationClosed
			}
			if conv.AssignedAgentId != nil {
				return alreadyAssigned(*conv.AssignedAgentId)
			}
		}
		marked = ok
		return tx.Conversation.AddCheck(conversationId, op.UserId)
	})
	if err != nil {
		err = s.mapError(err, "check", conversationId)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	metrics.ClaimsTotal.WithLabelValues("check", outcomeWon).Inc()
	zap.L().Info("营养师查看会话",
		zap.String("conversation_id", conversationId),
		zap.String("agent_id", op.UserId),
		zap.Bool("state_changed", marked),
	)
	rsp := common.ToRespond(s.repos.Conversation, conv)
	common.InvalidatePending(ctx, s.cache)
	s.notify.ToPool(ctx, event.ConversationChecked, respond.ConversationEventRespond{Conversation: rsp, ActorId: op.UserId})
	return &rsp, nil
}

// Accept 营养师接单
// 败者得到 CodeAlreadyAssigned，Data 中带胜者 id；已由本人接单时直接返回成功
func (s *assignmentService) Accept(ctx context.Context, op request.Operator, conversationId string) (*respond.ConversationRespond, error) {
	ctx, span := s.tracer.Start(ctx, "assignment.Accept", trace.WithAttributes(
		attribute.String("conversation.id", conversationId),
		attribute.String("agent.id", op.UserId),
	))
	defer span.End()

	if op.Role != user_role_enum.Agent {
		return nil, errorx.ErrForbidden
	}
	conv, err := s.accept(ctx, conversationId, op.UserId)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	rsp := common.ToRespond(s.repos.Conversation, conv)
	return &rsp, nil
}

// AcceptIfUnassigned 营养师首次回复时的隐式接单，与 Accept 使用同一条件更新
func (s *assignmentService) AcceptIfUnassigned(ctx context.Context, conversationId, agentId string) (*model.Conversation, error) {
	ctx, span := s.tracer.Start(ctx, "assignment.AcceptIfUnassigned", trace.WithAttributes(
		attribute.String("conversation.id", conversationId),
		attribute.String("agent.id", agentId),
	))
	defer span.End()

	conv, err := s.accept(ctx, conversationId, agentId)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return conv, err
}

func (s *assignmentService) accept(ctx context.Context, conversationId, agentId string) (*model.Conversation, error) {
	ok, err := s.repos.Conversation.CompareAndAssign(conversationId, agentId, time.Now())
	if err != nil {
		return nil, s.mapError(err, "accept", conversationId)
	}
	conv, err := common.LoadConversation(s.repos.Conversation, conversationId)
	if err != nil {
		if errorx.IsNotFound(err) {
			metrics.ClaimsTotal.WithLabelValues("accept", outcomeNotFound).Inc()
		}
		return nil, err
	}

	if ok {
		metrics.ClaimsTotal.WithLabelValues("accept", outcomeWon).Inc()
		zap.L().Info("营养师接单成功",
			zap.String("conversation_id", conversationId),
			zap.String("agent_id", agentId),
		)
		rsp := common.ToRespond(s.repos.Conversation, conv)
		common.InvalidatePending(ctx, s.cache)
		s.notify.ToPool(ctx, event.ConversationAssigned, respond.ConversationEventRespond{Conversation: rsp, ActorId: agentId})
		s.notify.ConversationUpdated(ctx, conv, rsp, agentId)
		return conv, nil
	}

	switch {
	case conv.State == conversation_state_enum.Closed:
		metrics.ClaimsTotal.WithLabelValues("accept", outcomeClosed).Inc()
		return nil, errorx.ErrConversationClosed
	case conv.AssignedTo(agentId):
		metrics.ClaimsTotal.WithLabelValues("accept", outcomeIdem).Inc()
		return conv, nil
	case conv.AssignedAgentId != nil:
		metrics.ClaimsTotal.WithLabelValues("accept", outcomeLost).Inc()
		zap.L().Info("营养师接单失败，会话已被接单",
			zap.String("conversation_id", conversationId),
			zap.String("agent_id", agentId),
			zap.String("assigned_agent_id", *conv.AssignedAgentId),
		)
		return nil, alreadyAssigned(*conv.AssignedAgentId)
	}
	metrics.ClaimsTotal.WithLabelValues("accept", outcomeError).Inc()
	zap.L().Error("接单条件更新未生效但会话仍未接单", zap.String("conversation_id", conversationId))
	return nil, errorx.ErrServerBusy
}

func alreadyAssigned(winner string) *errorx.CodeError {
	return errorx.New(errorx.CodeAlreadyAssigned, "会话已被其他营养师接单").
		WithData(map[string]string{"assigned_agent_id": winner})
}

// mapError 业务错误原样返回，数据库错误转换为服务繁忙
func (s *assignmentService) mapError(err error, op, conversationId string) error {
	switch errorx.GetCode(err) {
	case errorx.CodeNotFound:
		metrics.ClaimsTotal.WithLabelValues(op, outcomeNotFound).Inc()
		return errorx.ErrConversationAbsent
	case errorx.CodeAlreadyAssigned:
		metrics.ClaimsTotal.WithLabelValues(op, outcomeLost).Inc()
		return err
	case errorx.CodeConversationClosed:
		metrics.ClaimsTotal.WithLabelValues(op, outcomeClosed).Inc()
		return err
	}
	metrics.ClaimsTotal.WithLabelValues(op, outcomeError).Inc()
	zap.L().Error("会话状态更新失败",
		zap.String("op", op),
		zap.String("conversation_id", conversationId),
		zap.Error(err),
	)
	return errorx.ErrServerBusy
}
