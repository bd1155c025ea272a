// Package event 定义实时事件的结构与投递接口
// 业务层通过 Publisher 发布事件，网关层负责把事件推送到房间或用户通道
package event

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"nutri_chat_server/pkg/constants"
)

// 事件类型
const (
	MessageReceived      = "message_received"      // 会话房间内的新消息
	ConversationUpdated  = "conversation_updated"  // 参与者的会话状态变化
	ConversationCreated  = "conversation_created"  // 营养师池：新会话
	ConversationChecked  = "conversation_checked"  // 营养师池：会话被查看
	ConversationAssigned = "conversation_assigned" // 营养师池：会话被接单
	ConversationClosed   = "conversation_closed"   // 营养师池与会话房间：会话结束
	ReminderReceived     = "reminder_received"     // 用户通道：提醒
)

// 投递目标类型
const (
	TargetRoom = "room"
	TargetUser = "user"
)

// Event 推送给客户端的事件帧
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// New 构造事件，data 会被序列化为 JSON
func New(eventType string, data any) (Event, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: raw, Timestamp: time.Now()}, nil
}

// Envelope 跨实例广播的事件信封
type Envelope struct {
	Id         string `json:"id"`
	TargetKind string `json:"target_kind"` // room 或 user
	Target     string `json:"target"`      // 房间名或用户 id
	Origin     string `json:"origin"`      // 发布实例
	Event      Event  `json:"event"`
}

// Publisher 事件发布接口
// 投递是尽力而为的：不在线的接收方收不到，重连后应拉取权威数据
type Publisher interface {
	PublishToRoom(ctx context.Context, room string, evt Event) error
	PublishToUser(ctx context.Context, userId string, evt Event) error
}

// ConversationRoom 会话房间名
func ConversationRoom(conversationId string) string {
	return constants.CONVERSATION_ROOM_PREFIX + conversationId
}

// ConversationIdFromRoom 从房间名解析会话 id，非会话房间返回 false
func ConversationIdFromRoom(room string) (string, bool) {
	if !strings.HasPrefix(room, constants.CONVERSATION_ROOM_PREFIX) {
		return "", false
	}
	id := strings.TrimPrefix(room, constants.CONVERSATION_ROOM_PREFIX)
	return id, id != ""
}
