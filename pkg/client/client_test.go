package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func frame(t *testing.T, typ string, data any) []byte {
	t.Helper()
	raw, err := json.Marshal(data)
	require.NoError(t, err)
	out, err := json.Marshal(Frame{Type: typ, Data: raw, Timestamp: time.Now()})
	require.NoError(t, err)
	return out
}

// newServer 模拟服务端：连接后推送两次相同 id 的提醒，收到 send_message 后回 message_sent
func newServer(t *testing.T) *httptest.Server {
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("token") != "T1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		_ = conn.WriteMessage(websocket.TextMessage, frame(t, EventReminderReceived, Reminder{Id: "lunch-20261019", Message: "午餐时间"}))
		_ = conn.WriteMessage(websocket.TextMessage, frame(t, EventReminderReceived, Reminder{Id: "lunch-20261019", Message: "午餐时间到了"}))

		for {
			var cmd command
			if err := conn.ReadJSON(&cmd); err != nil {
				return
			}
			if cmd.Action != "send_message" {
				continue
			}
			msg := Message{MessageId: "M2", Seq: 2, ConversationId: cmd.ConversationId, Body: cmd.Body}
			_ = conn.WriteMessage(websocket.TextMessage, frame(t, EventMessageReceived, Message{MessageId: "M1", Seq: 1, ConversationId: cmd.ConversationId, Body: "earlier"}))
			_ = conn.WriteMessage(websocket.TextMessage, frame(t, EventMessageReceived, msg))
			_ = conn.WriteMessage(websocket.TextMessage, frame(t, EventMessageSent, map[string]any{"request_id": cmd.RequestId, "message": msg}))
		}
	}))
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/wss"
}

func waitFor(t *testing.T, c *Client, typ string, n int) {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for seen := 0; seen < n; {
		select {
		case f, ok := <-c.Frames():
			require.True(t, ok, "connection closed")
			if f.Type == typ {
				seen++
			}
		case <-timeout:
			t.Fatalf("timed out waiting for %s", typ)
		}
	}
}

func TestClientMergesRedeliveredReminder(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	c, err := Dial(context.Background(), wsURL(srv), "T1")
	require.NoError(t, err)
	defer c.Close()

	waitFor(t, c, EventReminderReceived, 2)
	list := c.Reminders().List()
	require.Len(t, list, 1)
	assert.Equal(t, "午餐时间到了", list[0].Message)
}

func TestClientMergesOwnMessageOnce(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	c, err := Dial(context.Background(), wsURL(srv), "T1")
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SendMessage("C1", 0, "hello", "", "req-1"))
	waitFor(t, c, EventMessageSent, 1)

	msgs := c.Messages("C1").List()
	require.Len(t, msgs, 2)
	assert.Equal(t, "M1", msgs[0].MessageId)
	assert.Equal(t, "hello", msgs[1].Body)
}

func TestDialRejectedWithoutValidToken(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	_, err := Dial(context.Background(), wsURL(srv), "bad")
	assert.Error(t, err)
}

func TestCloseEndsReadLoop(t *testing.T) {
	srv := newServer(t)
	defer srv.Close()

	c, err := Dial(context.Background(), wsURL(srv), "T1")
	require.NoError(t, err)
	_ = c.Close()

	select {
	case <-c.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("read loop still running after Close")
	}
}
