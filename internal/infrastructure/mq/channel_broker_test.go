package mq

import (
	"context"
	"sync"
	"testing"
	"time"

	"nutri_chat_server/internal/config"
	"nutri_chat_server/internal/event"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannelBrokerDeliversInOrder(t *testing.T) {
	b := NewChannelBroker(8)
	var (
		mu  sync.Mutex
		got []string
	)
	done := make(chan struct{})
	require.NoError(t, b.Start(context.Background(), func(env event.Envelope) {
		mu.Lock()
		got = append(got, env.Id)
		if len(got) == 3 {
			close(done)
		}
		mu.Unlock()
	}))
	defer b.Close()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, b.Publish(context.Background(), event.Envelope{Id: id, TargetKind: event.TargetRoom, Target: "r"}))
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("envelopes not delivered")
	}
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestChannelBrokerSurvivesPanickingDelivery(t *testing.T) {
	b := NewChannelBroker(4)
	delivered := make(chan string, 2)
	require.NoError(t, b.Start(context.Background(), func(env event.Envelope) {
		if env.Id == "boom" {
			panic("deliver failed")
		}
		delivered <- env.Id
	}))
	defer b.Close()

	require.NoError(t, b.Publish(context.Background(), event.Envelope{Id: "boom"}))
	require.NoError(t, b.Publish(context.Background(), event.Envelope{Id: "ok"}))

	select {
	case id := <-delivered:
		assert.Equal(t, "ok", id)
	case <-time.After(2 * time.Second):
		t.Fatal("consumer stopped after panic")
	}
}

func TestChannelBrokerPublishAfterClose(t *testing.T) {
	b := NewChannelBroker(1)
	require.NoError(t, b.Start(context.Background(), func(event.Envelope) {}))
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	err := b.Publish(context.Background(), event.Envelope{Id: "late"})
	assert.ErrorIs(t, err, ErrBrokerClosed)
}

func TestChannelBrokerPublishHonoursContext(t *testing.T) {
	b := NewChannelBroker(1)
	defer b.Close()
	// 未启动消费，第二条会阻塞在缓冲区上
	require.NoError(t, b.Publish(context.Background(), event.Envelope{Id: "1"}))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := b.Publish(ctx, event.Envelope{Id: "2"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewBrokerByMode(t *testing.T) {
	conf := &config.Config{}
	conf.MainConfig.MessageMode = config.MessageModeChannel
	b, err := NewBroker(conf)
	require.NoError(t, err)
	assert.IsType(t, &ChannelBroker{}, b)

	conf.MainConfig.MessageMode = "carrier-pigeon"
	_, err = NewBroker(conf)
	assert.Error(t, err)
}

func TestFanoutGroupIdIsPerInstance(t *testing.T) {
	assert.NotEqual(t, FanoutGroupId("node-a"), FanoutGroupId("node-b"))
}

func TestDecodeReminder(t *testing.T) {
	req, err := DecodeReminder([]byte(`{"id":"lunch-20260101","target_user_id":"u1","message":"该吃午饭了"}`))
	require.NoError(t, err)
	assert.Equal(t, "lunch-20260101", req.Id)
	assert.Equal(t, "u1", req.TargetUserId)
	assert.False(t, req.Timestamp.IsZero())

	_, err = DecodeReminder([]byte(`{"message":"no target"}`))
	assert.Error(t, err)

	_, err = DecodeReminder([]byte(`not json`))
	assert.Error(t, err)
}
