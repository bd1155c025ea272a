// Package websocket 实现实时通道管理
// 维护本实例的连接、用户通道与房间订阅，并把事件推送到对应连接
package websocket

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"nutri_chat_server/internal/event"
	"nutri_chat_server/pkg/constants"
	"nutri_chat_server/pkg/enum/user_info/user_role_enum"
	"nutri_chat_server/pkg/metrics"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ErrManagerClosed 服务关闭后拒绝新连接
var ErrManagerClosed = errors.New("websocket manager closed")

type clientSet map[*Client]struct{}

// Manager 实时通道管理器
// users: 用户 id -> 该用户的所有连接
// rooms: 房间名 -> 订阅该房间的连接
type Manager struct {
	mu      sync.RWMutex
	clients clientSet
	users   map[string]clientSet
	rooms   map[string]clientSet
	closed  bool

	origin   string
	bus      Bus
	sender   MessageSender
	auth     RoomAuthorizer
	upgrader websocket.Upgrader
}

// NewManager 创建管理器
// origin: 本实例标识，写入事件信封
// bus: 跨实例事件总线，单机时可为 nil
func NewManager(origin string, bus Bus) *Manager {
	return &Manager{
		clients: make(clientSet),
		users:   make(map[string]clientSet),
		rooms:   make(map[string]clientSet),
		origin:  origin,
		bus:     bus,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  2048,
			WriteBufferSize: 2048,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// SetCommandHandlers 注入 ws 指令的业务处理
// 与业务层互相依赖，因此在构造完成后注入
func (m *Manager) SetCommandHandlers(sender MessageSender, auth RoomAuthorizer) {
	m.sender = sender
	m.auth = auth
}

// ServeWS 升级 HTTP 连接并绑定到已认证的用户
func (m *Manager) ServeWS(w http.ResponseWriter, r *http.Request, userId, role string) error {
	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := newClient(m, conn, userId, role)
	if err := m.Register(c); err != nil {
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		_ = conn.Close()
		return err
	}
	go c.writePump()
	c.reply("connected", map[string]string{
		"connection_id": c.id,
		"user_id":       userId,
		"role":          role,
	})
	go c.readPump()
	zap.L().Info("ws连接成功", zap.String("user_id", userId), zap.String("conn", c.id))
	return nil
}

// Register 登记连接并订阅其用户通道，营养师同时加入营养师池房间
func (m *Manager) Register(c *Client) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return ErrManagerClosed
	}
	m.clients[c] = struct{}{}
	addTo(m.users, c.userId, c)
	if c.role == user_role_enum.Agent {
		addTo(m.rooms, constants.AGENT_POOL_ROOM, c)
		c.rooms[constants.AGENT_POOL_ROOM] = struct{}{}
	}
	metrics.WSConnectionsActive.Inc()
	return nil
}

// Unregister 释放连接持有的全部订阅并关闭发送通道，可重复调用
func (m *Manager) Unregister(c *Client) {
	m.mu.Lock()
	if _, ok := m.clients[c]; !ok {
		m.mu.Unlock()
		return
	}
	delete(m.clients, c)
	removeFrom(m.users, c.userId, c)
	for room := range c.rooms {
		removeFrom(m.rooms, room, c)
	}
	c.rooms = make(map[string]struct{})
	m.mu.Unlock()

	c.closeSend()
	metrics.WSConnectionsActive.Dec()
	zap.L().Info("ws连接断开", zap.String("user_id", c.userId), zap.String("conn", c.id))
}

// JoinRoom 订阅房间
func (m *Manager) JoinRoom(c *Client, room string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clients[c]; !ok {
		return false
	}
	addTo(m.rooms, room, c)
	c.rooms[room] = struct{}{}
	return true
}

// LeaveRoom 取消订阅房间
func (m *Manager) LeaveRoom(c *Client, room string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removeFrom(m.rooms, room, c)
	delete(c.rooms, room)
}

// PublishToRoom 向房间发布事件
func (m *Manager) PublishToRoom(ctx context.Context, room string, evt event.Event) error {
	return m.publish(ctx, event.TargetRoom, room, evt)
}

// PublishToUser 向用户通道发布事件，该用户的所有连接都会收到
func (m *Manager) PublishToUser(ctx context.Context, userId string, evt event.Event) error {
	return m.publish(ctx, event.TargetUser, userId, evt)
}

func (m *Manager) publish(ctx context.Context, kind, target string, evt event.Event) error {
	env := event.Envelope{
		Id:         uuid.NewString(),
		TargetKind: kind,
		Target:     target,
		Origin:     m.origin,
		Event:      evt,
	}
	metrics.EventsPublished.WithLabelValues(kind).Inc()
	if m.bus == nil {
		m.Deliver(env)
		return nil
	}
	return m.bus.Publish(ctx, env)
}

// Deliver 把事件推送给本实例上匹配的连接，返回成功入队的连接数
// 发送缓冲已满的连接直接丢弃该帧，不阻塞其他连接
func (m *Manager) Deliver(env event.Envelope) int {
	payload, err := json.Marshal(env.Event)
	if err != nil {
		zap.L().Error("encode event failed", zap.String("type", env.Event.Type), zap.Error(err))
		return 0
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	var targets clientSet
	switch env.TargetKind {
	case event.TargetRoom:
		targets = m.rooms[env.Target]
	case event.TargetUser:
		targets = m.users[env.Target]
	default:
		zap.L().Warn("unknown event target", zap.String("kind", env.TargetKind))
		return 0
	}

	delivered := 0
	for c := range targets {
		if c.enqueue(payload) {
			delivered++
			continue
		}
		metrics.EventsDropped.Inc()
		zap.L().Warn("ws send buffer full, event dropped",
			zap.String("user_id", c.userId),
			zap.String("conn", c.id),
			zap.String("type", env.Event.Type),
		)
	}
	metrics.EventsDelivered.Add(float64(delivered))
	return delivered
}

// DeliverLocalToUser 只在本实例投递，不经过事件总线
func (m *Manager) DeliverLocalToUser(userId string, evt event.Event) int {
	return m.Deliver(event.Envelope{
		Id:         uuid.NewString(),
		TargetKind: event.TargetUser,
		Target:     userId,
		Origin:     m.origin,
		Event:      evt,
	})
}

// LocalUserIds 返回本实例上指定角色的在线用户
func (m *Manager) LocalUserIds(role string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ids := make([]string, 0, len(m.users))
	for userId, set := range m.users {
		for c := range set {
			if c.role == role {
				ids = append(ids, userId)
				break
			}
		}
	}
	return ids
}

// ConnectionCount 当前连接数
func (m *Manager) ConnectionCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.clients)
}

// Close 拒绝新连接并断开所有已有连接
func (m *Manager) Close() {
	m.mu.Lock()
	m.closed = true
	clients := make([]*Client, 0, len(m.clients))
	for c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	for _, c := range clients {
		m.Unregister(c)
	}
}

func addTo(index map[string]clientSet, key string, c *Client) {
	set, ok := index[key]
	if !ok {
		set = make(clientSet)
		index[key] = set
	}
	set[c] = struct{}{}
}

func removeFrom(index map[string]clientSet, key string, c *Client) {
	set, ok := index[key]
	if !ok {
		return
	}
	delete(set, c)
	if len(set) == 0 {
		delete(index, key)
	}
}
