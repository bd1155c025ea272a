package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"nutri_chat_server/internal/config"
	"nutri_chat_server/internal/event"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NatsBroker 多实例模式，core NATS 的 subject 天然广播给所有订阅者
type NatsBroker struct {
	conn    *nats.Conn
	subject string
	sub     *nats.Subscription
}

// NewNatsBroker 连接 NATS，断线后无限重连
func NewNatsBroker(cfg config.NatsConfig, instanceId string) (*NatsBroker, error) {
	opts := []nats.Option{
		nats.Name("nutri_chat_" + instanceId),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			zap.L().Warn("NATS disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			zap.L().Info("NATS reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			zap.L().Error("NATS error", zap.Error(err))
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &NatsBroker{conn: nc, subject: cfg.Subject}, nil
}

func (n *NatsBroker) Publish(ctx context.Context, env event.Envelope) error {
	if n.conn.IsClosed() {
		return ErrBrokerClosed
	}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return n.conn.Publish(n.subject, data)
}

func (n *NatsBroker) Start(ctx context.Context, deliver DeliverFunc) error {
	sub, err := n.conn.Subscribe(n.subject, func(msg *nats.Msg) {
		var env event.Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			zap.L().Error("nats decode event failed", zap.Error(err))
			return
		}
		safeDeliver(deliver, env)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", n.subject, err)
	}
	n.sub = sub
	return nil
}

func (n *NatsBroker) Close() error {
	if n.sub != nil {
		if err := n.sub.Unsubscribe(); err != nil {
			zap.L().Warn("nats unsubscribe", zap.Error(err))
		}
	}
	n.conn.Close()
	return nil
}
