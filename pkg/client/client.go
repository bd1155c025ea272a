// Package client 营养咨询实时通道的 Go 客户端
// 维护提醒列表与各会话的消息记录，重复投递的事件按 id 合并
package client

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// 服务端推送的事件类型
const (
	EventMessageReceived     = "message_received"
	EventConversationUpdated = "conversation_updated"
	EventReminderReceived    = "reminder_received"
	EventMessageSent         = "message_sent"
	EventError               = "error"
)

const (
	frameBufferSize = 64
	writeWait       = 10 * time.Second
)

// Frame 服务端下行帧
type Frame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type command struct {
	Action         string `json:"action"`
	RequestId      string `json:"request_id,omitempty"`
	ConversationId string `json:"conversation_id,omitempty"`
	Kind           int8   `json:"kind,omitempty"`
	Body           string `json:"body,omitempty"`
	MediaUrl       string `json:"media_url,omitempty"`
}

// Client 一条到服务端的 WebSocket 连接
type Client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex

	reminders *ReminderFeed
	mu        sync.Mutex
	logs      map[string]*MessageLog

	frames    chan Frame
	done      chan struct{}
	closeOnce sync.Once
}

// Dial 连接 serverURL（如 ws://host:8000/wss），token 通过查询参数传递
func Dial(ctx context.Context, serverURL, token string) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	c := &Client{
		conn:      conn,
		reminders: NewReminderFeed(),
		logs:      make(map[string]*MessageLog),
		frames:    make(chan Frame, frameBufferSize),
		done:      make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Frames 所有下行帧，已合并到本地状态之后才会出现在这里
// 缓冲已满时新帧被丢弃，本地状态不受影响
func (c *Client) Frames() <-chan Frame { return c.frames }

// Done 连接断开后关闭
func (c *Client) Done() <-chan struct{} { return c.done }

// Reminders 本地提醒列表
func (c *Client) Reminders() *ReminderFeed { return c.reminders }

// Messages 会话的本地消息记录，不存在时创建
func (c *Client) Messages(conversationId string) *MessageLog {
	c.mu.Lock()
	defer c.mu.Unlock()
	ml, ok := c.logs[conversationId]
	if !ok {
		ml = NewMessageLog()
		c.logs[conversationId] = ml
	}
	return ml
}

// JoinRoom 订阅会话房间
func (c *Client) JoinRoom(conversationId, requestId string) error {
	return c.write(command{Action: "join_room", ConversationId: conversationId, RequestId: requestId})
}

// LeaveRoom 取消订阅会话房间
func (c *Client) LeaveRoom(conversationId, requestId string) error {
	return c.write(command{Action: "leave_room", ConversationId: conversationId, RequestId: requestId})
}

// SendMessage 通过长连接发送消息，结果以 message_sent 或 error 帧返回
func (c *Client) SendMessage(conversationId string, kind int8, body, mediaUrl, requestId string) error {
	return c.write(command{
		Action:         "send_message",
		RequestId:      requestId,
		ConversationId: conversationId,
		Kind:           kind,
		Body:           body,
		MediaUrl:       mediaUrl,
	})
}

// Close 发送关闭帧并断开连接
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.writeMu.Lock()
		_ = c.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
		c.writeMu.Unlock()
		err = c.conn.Close()
	})
	return err
}

func (c *Client) write(cmd command) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(cmd)
}

func (c *Client) readLoop() {
	defer func() {
		close(c.frames)
		close(c.done)
		_ = c.conn.Close()
	}()
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var frame Frame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}
		c.apply(frame)
		select {
		case c.frames <- frame:
		default:
		}
	}
}

// apply 把事件合并到本地状态
func (c *Client) apply(frame Frame) {
	switch frame.Type {
	case EventReminderReceived:
		var r Reminder
		if json.Unmarshal(frame.Data, &r) == nil && r.Id != "" {
			c.reminders.Merge(r)
		}
	case EventMessageReceived:
		var m Message
		if json.Unmarshal(frame.Data, &m) == nil && m.MessageId != "" {
			c.Messages(m.ConversationId).Merge(m)
		}
	case EventMessageSent:
		var sent struct {
			Message Message `json:"message"`
		}
		if json.Unmarshal(frame.Data, &sent) == nil && sent.Message.MessageId != "" {
			c.Messages(sent.Message.ConversationId).Merge(sent.Message)
		}
	}
}
