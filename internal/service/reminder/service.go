// Package reminder 实现提醒推送
// 提醒不落库、不重放，离线用户收不到；客户端按提醒 id 合并
package reminder

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"nutri_chat_server/internal/dto/request"
	"nutri_chat_server/internal/dto/respond"
	"nutri_chat_server/internal/event"
	"nutri_chat_server/pkg/errorx"
	"nutri_chat_server/pkg/metrics"
)

// 提醒来源，用于指标
const (
	SourceAPI   = "api"
	SourceKafka = "kafka"
	SourceCron  = "cron"
)

// reminderService 提醒推送实现
type reminderService struct {
	publisher event.Publisher
	source    string
}

// NewReminderService 构造函数，source 标记提醒来源
func NewReminderService(publisher event.Publisher, source string) *reminderService {
	return &reminderService{publisher: publisher, source: source}
}

// Emit 向目标用户的所有连接推送 reminder_received
func (s *reminderService) Emit(ctx context.Context, req request.EmitReminderRequest) (*respond.ReminderRespond, error) {
	if strings.TrimSpace(req.Id) == "" || strings.TrimSpace(req.TargetUserId) == "" || strings.TrimSpace(req.Message) == "" {
		return nil, errorx.New(errorx.CodeInvalidParam, "提醒的 id、target_user_id、message 不能为空")
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	rsp := respond.ReminderRespond{Id: req.Id, Message: req.Message, Timestamp: req.Timestamp}
	evt, err := event.New(event.ReminderReceived, rsp)
	if err != nil {
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "构造提醒事件失败")
	}
	if err := s.publisher.PublishToUser(ctx, req.TargetUserId, evt); err != nil {
		zap.L().Error("推送提醒失败",
			zap.String("reminder_id", req.Id),
			zap.String("target_user_id", req.TargetUserId),
			zap.Error(err),
		)
		return nil, errorx.Wrap(err, errorx.CodeServerBusy, "提醒推送失败")
	}
	metrics.RemindersTotal.WithLabelValues(s.source).Inc()
	zap.L().Info("提醒已推送",
		zap.String("reminder_id", req.Id),
		zap.String("target_user_id", req.TargetUserId),
		zap.String("source", s.source),
	)
	return &rsp, nil
}
