// Package mq 负责实时事件的跨实例分发
// 每个实例都消费全部事件信封，再投递给自己持有的连接
package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nutri_chat_server/internal/config"
	"nutri_chat_server/internal/event"
)

var (
	// ErrBrokerClosed 关闭后继续发布
	ErrBrokerClosed = errors.New("broker closed")

	errMissingReminderField = errors.New("reminder requires id and target_user_id")
)

// DeliverFunc 收到事件信封后的本地投递回调
type DeliverFunc func(env event.Envelope)

// Broker 事件总线
type Broker interface {
	// Publish 发布事件信封，所有实例（含本实例）都会收到
	Publish(ctx context.Context, env event.Envelope) error
	// Start 开始消费，deliver 在消费协程中被调用，Start 本身不阻塞
	Start(ctx context.Context, deliver DeliverFunc) error
	// Close 停止消费并释放连接
	Close() error
}

// NewBroker 按 messageMode 创建事件总线
func NewBroker(conf *config.Config) (Broker, error) {
	switch conf.MainConfig.MessageMode {
	case config.MessageModeChannel, "":
		return NewChannelBroker(0), nil
	case config.MessageModeKafka:
		return NewKafkaBroker(conf.KafkaConfig, conf.MainConfig.InstanceId), nil
	case config.MessageModeNats:
		return NewNatsBroker(conf.NatsConfig, conf.MainConfig.InstanceId)
	}
	return nil, fmt.Errorf("unknown message mode %q", conf.MainConfig.MessageMode)
}

// retryBackoff 消费出错时的等待，指数增长并封顶
func retryBackoff(ctx context.Context, attempt int) bool {
	wait := 200 * time.Millisecond << min(attempt, 5)
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
