package mq

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"nutri_chat_server/internal/config"
	"nutri_chat_server/internal/event"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// KafkaBroker 多实例模式，事件写入 EventTopic
// 每个实例使用独立的消费组，从而每个实例都能收到全部事件
type KafkaBroker struct {
	writer *kafka.Writer
	reader *kafka.Reader
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewKafkaBroker 创建 Kafka 事件总线
func NewKafkaBroker(cfg config.KafkaConfig, instanceId string) *KafkaBroker {
	return &KafkaBroker{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.HostPort),
			Topic:                  cfg.EventTopic,
			Balancer:               &kafka.Hash{},
			WriteTimeout:           cfg.Timeout * time.Second,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: false,
		},
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        []string{cfg.HostPort},
			Topic:          cfg.EventTopic,
			CommitInterval: cfg.Timeout * time.Second,
			GroupID:        FanoutGroupId(instanceId),
			StartOffset:    kafka.LastOffset,
		}),
	}
}

// FanoutGroupId 实例专属消费组
func FanoutGroupId(instanceId string) string {
	return "nutri_chat_fanout_" + instanceId
}

// Publish 以投递目标作为分区键，同一房间的事件保持顺序
func (k *KafkaBroker) Publish(ctx context.Context, env event.Envelope) error {
	value, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return k.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(env.TargetKind + ":" + env.Target),
		Value: value,
	})
}

func (k *KafkaBroker) Start(ctx context.Context, deliver DeliverFunc) error {
	ctx, k.cancel = context.WithCancel(ctx)
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		attempt := 0
		for {
			msg, err := k.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				zap.L().Error("kafka read event failed", zap.Error(err))
				if !retryBackoff(ctx, attempt) {
					return
				}
				attempt++
				continue
			}
			attempt = 0
			var env event.Envelope
			if err := json.Unmarshal(msg.Value, &env); err != nil {
				zap.L().Error("kafka decode event failed",
					zap.Int("partition", msg.Partition),
					zap.Int64("offset", msg.Offset),
					zap.Error(err),
				)
				continue
			}
			safeDeliver(deliver, env)
		}
	}()
	return nil
}

func (k *KafkaBroker) Close() error {
	if k.cancel != nil {
		k.cancel()
	}
	k.wg.Wait()
	if err := k.writer.Close(); err != nil {
		zap.L().Error("close kafka writer", zap.Error(err))
	}
	return k.reader.Close()
}
