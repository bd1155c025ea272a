package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nutri_chat_server/internal/dto/request"
	"nutri_chat_server/internal/dto/respond"
	"nutri_chat_server/internal/event"
	"nutri_chat_server/pkg/errorx"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCommands struct {
	denied map[string]bool
}

func (f *fakeCommands) CanJoinRoom(ctx context.Context, op request.Operator, conversationId string) error {
	if f.denied[conversationId] {
		return errorx.ErrForbidden
	}
	return nil
}

func (f *fakeCommands) SendMessage(ctx context.Context, op request.Operator, req request.SendMessageRequest) (*respond.MessageRespond, error) {
	if req.Body == "" {
		return nil, errorx.ErrInvalidParam
	}
	return &respond.MessageRespond{
		MessageId:      "M1",
		Seq:            1,
		ConversationId: req.ConversationId,
		SenderId:       op.UserId,
		SenderRole:     op.Role,
		Body:           req.Body,
	}, nil
}

func startServer(t *testing.T) (*Manager, *httptest.Server) {
	t.Helper()
	m := NewManager("test", nil)
	cmds := &fakeCommands{denied: map[string]bool{"C-other": true}}
	m.SetCommandHandlers(cmds, cmds)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		_ = m.ServeWS(w, r, q.Get("user"), q.Get("role"))
	}))
	t.Cleanup(func() {
		m.Close()
		srv.Close()
	})
	return m, srv
}

func dial(t *testing.T, srv *httptest.Server, user, role string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?user=" + user + "&role=" + role
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) event.Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var evt event.Event
	require.NoError(t, conn.ReadJSON(&evt))
	return evt
}

func TestWebSocketCommandFlow(t *testing.T) {
	m, srv := startServer(t)
	conn := dial(t, srv, "u1", "user")

	hello := readFrame(t, conn)
	assert.Equal(t, FrameConnected, hello.Type)

	require.NoError(t, conn.WriteJSON(InboundFrame{Action: ActionJoinRoom, ConversationId: "C1", RequestId: "r1"}))
	joined := readFrame(t, conn)
	assert.Equal(t, FrameRoomJoined, joined.Type)

	evt, err := event.New(event.MessageReceived, map[string]string{"body": "来自营养师"})
	require.NoError(t, err)
	require.NoError(t, m.PublishToRoom(context.Background(), event.ConversationRoom("C1"), evt))
	pushed := readFrame(t, conn)
	assert.Equal(t, event.MessageReceived, pushed.Type)
	assert.JSONEq(t, `{"body":"来自营养师"}`, string(pushed.Data))

	require.NoError(t, conn.WriteJSON(InboundFrame{Action: ActionSendMessage, ConversationId: "C1", Body: "你好", RequestId: "r2"}))
	sent := readFrame(t, conn)
	require.Equal(t, FrameMessageSent, sent.Type)
	var ack struct {
		RequestId string                 `json:"request_id"`
		Message   respond.MessageRespond `json:"message"`
	}
	require.NoError(t, json.Unmarshal(sent.Data, &ack))
	assert.Equal(t, "r2", ack.RequestId)
	assert.Equal(t, "M1", ack.Message.MessageId)
	assert.Equal(t, "u1", ack.Message.SenderId)
}

func TestWebSocketRejectedCommands(t *testing.T) {
	_, srv := startServer(t)
	conn := dial(t, srv, "u1", "user")
	readFrame(t, conn)

	require.NoError(t, conn.WriteJSON(InboundFrame{Action: ActionJoinRoom, ConversationId: "C-other", RequestId: "r1"}))
	frame := readFrame(t, conn)
	require.Equal(t, FrameError, frame.Type)
	var data ErrorFrameData
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, errorx.CodeForbidden, data.Code)
	assert.Equal(t, ActionJoinRoom, data.Action)
	assert.Equal(t, "r1", data.RequestId)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"action":"dance"}`)))
	frame = readFrame(t, conn)
	require.Equal(t, FrameError, frame.Type)
	require.NoError(t, json.Unmarshal(frame.Data, &data))
	assert.Equal(t, errorx.CodeInvalidParam, data.Code)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`not json`)))
	frame = readFrame(t, conn)
	assert.Equal(t, FrameError, frame.Type)
}

func TestDisconnectReleasesConnection(t *testing.T) {
	m, srv := startServer(t)
	conn := dial(t, srv, "u1", "user")
	readFrame(t, conn)
	require.Equal(t, 1, m.ConnectionCount())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	_ = conn.Close()

	assert.Eventually(t, func() bool {
		return m.ConnectionCount() == 0
	}, 3*time.Second, 20*time.Millisecond)
}
