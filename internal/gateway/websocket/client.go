package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"nutri_chat_server/internal/dto/request"
	"nutri_chat_server/internal/event"
	"nutri_chat_server/pkg/constants"
	"nutri_chat_server/pkg/errorx"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const commandTimeout = 10 * time.Second

// 客户端指令
const (
	ActionJoin        = "join"
	ActionJoinRoom    = "join_room"
	ActionLeaveRoom   = "leave_room"
	ActionSendMessage = "send_message"
	ActionPing        = "ping"
)

// 指令应答帧类型
const (
	FrameConnected   = "connected"
	FrameJoined      = "joined"
	FrameRoomJoined  = "room_joined"
	FrameRoomLeft    = "room_left"
	FrameMessageSent = "message_sent"
	FramePong        = "pong"
	FrameError       = "error"
)

// InboundFrame 客户端上行帧
type InboundFrame struct {
	Action         string `json:"action"`
	RequestId      string `json:"request_id,omitempty"`
	ConversationId string `json:"conversation_id,omitempty"`
	Kind           int8   `json:"kind,omitempty"`
	Body           string `json:"body,omitempty"`
	MediaUrl       string `json:"media_url,omitempty"`
}

// ErrorFrameData 错误帧数据
type ErrorFrameData struct {
	Code      int    `json:"code"`
	Msg       string `json:"msg"`
	Action    string `json:"action,omitempty"`
	RequestId string `json:"request_id,omitempty"`
	Data      any    `json:"data,omitempty"`
}

// Client 一条 ws 连接
// rooms 由 Manager.mu 保护；send 的关闭由 mu 保护
type Client struct {
	id      string
	userId  string
	role    string
	conn    *websocket.Conn
	manager *Manager
	send    chan []byte
	rooms   map[string]struct{}

	mu     sync.RWMutex
	closed bool
}

func newClient(m *Manager, conn *websocket.Conn, userId, role string) *Client {
	return &Client{
		id:      uuid.NewString(),
		userId:  userId,
		role:    role,
		conn:    conn,
		manager: m,
		send:    make(chan []byte, constants.SEND_BUFFER_SIZE),
		rooms:   make(map[string]struct{}),
	}
}

// enqueue 非阻塞写入发送缓冲，缓冲已满或连接已关闭时返回 false
func (c *Client) enqueue(payload []byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- payload:
		return true
	default:
		return false
	}
}

func (c *Client) closeSend() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// readPump 读取客户端指令，任何读错误都会注销连接
func (c *Client) readPump() {
	defer func() {
		c.manager.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(constants.WS_MAX_MESSAGE_SIZE)
	_ = c.conn.SetReadDeadline(time.Now().Add(constants.WS_PONG_WAIT))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(constants.WS_PONG_WAIT))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("ws read error", zap.String("user_id", c.userId), zap.Error(err))
			}
			return
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(constants.WS_PONG_WAIT))
		c.handleFrame(data)
	}
}

// writePump 发送事件与心跳，发送通道关闭后发出关闭帧
func (c *Client) writePump() {
	ticker := time.NewTicker(constants.WS_PING_PERIOD)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				zap.L().Warn("ws write error", zap.String("user_id", c.userId), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) operator() request.Operator {
	return request.Operator{UserId: c.userId, Role: c.role}
}

func (c *Client) handleFrame(data []byte) {
	var frame InboundFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.replyError(frame, errorx.ErrInvalidParam)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch frame.Action {
	case ActionPing:
		c.reply(FramePong, map[string]string{"request_id": frame.RequestId})
	case ActionJoin:
		// 用户通道在连接建立时已订阅
		c.reply(FrameJoined, map[string]string{"user_id": c.userId, "request_id": frame.RequestId})
	case ActionJoinRoom:
		c.joinRoom(ctx, frame)
	case ActionLeaveRoom:
		if frame.ConversationId == "" {
			c.replyError(frame, errorx.ErrInvalidParam)
			return
		}
		c.manager.LeaveRoom(c, event.ConversationRoom(frame.ConversationId))
		c.reply(FrameRoomLeft, map[string]string{
			"conversation_id": frame.ConversationId,
			"request_id":      frame.RequestId,
		})
	case ActionSendMessage:
		c.sendMessage(ctx, frame)
	default:
		c.replyError(frame, errorx.Newf(errorx.CodeInvalidParam, "未知指令: %s", frame.Action))
	}
}

func (c *Client) joinRoom(ctx context.Context, frame InboundFrame) {
	if frame.ConversationId == "" {
		c.replyError(frame, errorx.ErrInvalidParam)
		return
	}
	if c.manager.auth == nil {
		c.replyError(frame, errorx.ErrServerBusy)
		return
	}
	if err := c.manager.auth.CanJoinRoom(ctx, c.operator(), frame.ConversationId); err != nil {
		c.replyError(frame, err)
		return
	}
	c.manager.JoinRoom(c, event.ConversationRoom(frame.ConversationId))
	c.reply(FrameRoomJoined, map[string]string{
		"conversation_id": frame.ConversationId,
		"request_id":      frame.RequestId,
	})
}

func (c *Client) sendMessage(ctx context.Context, frame InboundFrame) {
	if frame.ConversationId == "" {
		c.replyError(frame, errorx.ErrInvalidParam)
		return
	}
	if c.manager.sender == nil {
		c.replyError(frame, errorx.ErrServerBusy)
		return
	}
	msg, err := c.manager.sender.SendMessage(ctx, c.operator(), request.SendMessageRequest{
		ConversationId: frame.ConversationId,
		Kind:           frame.Kind,
		Body:           frame.Body,
		MediaUrl:       frame.MediaUrl,
	})
	if err != nil {
		c.replyError(frame, err)
		return
	}
	c.reply(FrameMessageSent, map[string]any{
		"request_id": frame.RequestId,
		"message":    msg,
	})
}

func (c *Client) reply(frameType string, data any) {
	evt, err := event.New(frameType, data)
	if err != nil {
		zap.L().Error("encode ws reply failed", zap.String("type", frameType), zap.Error(err))
		return
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		zap.L().Error("encode ws reply failed", zap.String("type", frameType), zap.Error(err))
		return
	}
	if !c.enqueue(payload) {
		zap.L().Warn("ws reply dropped", zap.String("user_id", c.userId), zap.String("type", frameType))
	}
}

func (c *Client) replyError(frame InboundFrame, err error) {
	data := ErrorFrameData{
		Code:      errorx.GetCode(err),
		Action:    frame.Action,
		RequestId: frame.RequestId,
	}
	var codeErr *errorx.CodeError
	if errors.As(err, &codeErr) {
		data.Msg = codeErr.Msg
		data.Data = codeErr.Data
	} else {
		data.Msg = errorx.ErrServerBusy.Msg
		zap.L().Error("ws command failed", zap.String("action", frame.Action), zap.Error(err))
	}
	c.reply(FrameError, data)
}
