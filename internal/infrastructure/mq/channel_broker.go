package mq

import (
	"context"
	"fmt"
	"sync"

	"nutri_chat_server/internal/event"
	"nutri_chat_server/pkg/constants"

	"go.uber.org/zap"
)

// ChannelBroker 单机模式，进程内 channel 转发
type ChannelBroker struct {
	transmit  chan event.Envelope
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// NewChannelBroker size 为 0 时使用 constants.CHANNEL_SIZE
func NewChannelBroker(size int) *ChannelBroker {
	if size <= 0 {
		size = constants.CHANNEL_SIZE
	}
	return &ChannelBroker{
		transmit: make(chan event.Envelope, size),
		done:     make(chan struct{}),
	}
}

func (b *ChannelBroker) Publish(ctx context.Context, env event.Envelope) error {
	select {
	case <-b.done:
		return ErrBrokerClosed
	default:
	}
	select {
	case b.transmit <- env:
		return nil
	case <-b.done:
		return ErrBrokerClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *ChannelBroker) Start(ctx context.Context, deliver DeliverFunc) error {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case env := <-b.transmit:
				safeDeliver(deliver, env)
			case <-b.done:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}

func (b *ChannelBroker) Close() error {
	b.closeOnce.Do(func() {
		close(b.done)
	})
	b.wg.Wait()
	return nil
}

func safeDeliver(deliver DeliverFunc, env event.Envelope) {
	defer func() {
		if r := recover(); r != nil {
			zap.L().Error(fmt.Sprintf("deliver event panic: %v", r), zap.String("event_id", env.Id))
		}
	}()
	deliver(env)
}
