package mq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"nutri_chat_server/internal/config"
	"nutri_chat_server/internal/dto/request"
	"nutri_chat_server/internal/dto/respond"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// ReminderEmitter 提醒推送，由 reminder 服务实现
type ReminderEmitter interface {
	Emit(ctx context.Context, req request.EmitReminderRequest) (*respond.ReminderRespond, error)
}

// ReminderConsumer 消费外部系统写入 ReminderTopic 的提醒
// 所有实例共用一个消费组，每条提醒只由一个实例发布
type ReminderConsumer struct {
	reader  *kafka.Reader
	emitter ReminderEmitter
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewReminderConsumer 创建提醒消费者
func NewReminderConsumer(cfg config.KafkaConfig, emitter ReminderEmitter) *ReminderConsumer {
	return &ReminderConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{cfg.HostPort},
			Topic:          cfg.ReminderTopic,
			GroupID:        cfg.ReminderGroup,
			CommitInterval: cfg.Timeout * time.Second,
			StartOffset:    kafka.FirstOffset,
		}),
		emitter: emitter,
	}
}

// Start 启动消费协程
func (r *ReminderConsumer) Start(ctx context.Context) {
	ctx, r.cancel = context.WithCancel(ctx)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		attempt := 0
		for {
			msg, err := r.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				zap.L().Error("kafka read reminder failed", zap.Error(err))
				if !retryBackoff(ctx, attempt) {
					return
				}
				attempt++
				continue
			}
			attempt = 0
			r.handle(ctx, msg)
		}
	}()
}

func (r *ReminderConsumer) handle(ctx context.Context, msg kafka.Message) {
	req, err := DecodeReminder(msg.Value)
	if err != nil {
		zap.L().Error("invalid reminder message",
			zap.Int64("offset", msg.Offset),
			zap.Error(err),
		)
		return
	}
	if _, err := r.emitter.Emit(ctx, req); err != nil {
		zap.L().Error("emit reminder failed",
			zap.String("reminder_id", req.Id),
			zap.String("target_user_id", req.TargetUserId),
			zap.Error(err),
		)
	}
}

// Close 停止消费
func (r *ReminderConsumer) Close() error {
	if r.cancel != nil {
		r.cancel()
	}
	r.wg.Wait()
	return r.reader.Close()
}

// DecodeReminder 解析提醒消息，缺少 id 或目标用户时报错
func DecodeReminder(data []byte) (request.EmitReminderRequest, error) {
	var req request.EmitReminderRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return req, err
	}
	if req.Id == "" || req.TargetUserId == "" {
		return req, errMissingReminderField
	}
	if req.Timestamp.IsZero() {
		req.Timestamp = time.Now()
	}
	return req, nil
}
