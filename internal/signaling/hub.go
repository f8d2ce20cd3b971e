package signaling

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"CareHive/pkg/metrics"

	"github.com/sirupsen/logrus"
)

// Router dispatches decoded inbound envelopes to the business layer.
type Router interface {
	HandleEvent(conn *Conn, env *Envelope)
}

// Config 信令Hub配置
type Config struct {
	// 最大连接数
	MaxConnections int64
	// 心跳间隔
	HeartbeatInterval time.Duration
	// 连接超时时间
	ConnectionTimeout time.Duration
	// 发送缓冲区大小
	MessageBufferSize int
	// 读缓冲区大小
	ReadBufferSize int
	// 写缓冲区大小
	WriteBufferSize int
	// 最大消息大小
	MaxMessageSize int
	// 发送缓冲区满时是否丢弃
	DropOnFull bool
	// 发送阻塞超时（用于非 DropOnFull 模式）
	SendTimeout time.Duration
	// 慢消费者策略：背压触发时直接断开
	CloseOnBackpressure bool
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		MaxConnections:      10000,
		HeartbeatInterval:   30 * time.Second,
		ConnectionTimeout:   60 * time.Second,
		MessageBufferSize:   256,
		ReadBufferSize:      1024,
		WriteBufferSize:     1024,
		MaxMessageSize:      4096,
		DropOnFull:          true,
		SendTimeout:         50 * time.Millisecond,
		CloseOnBackpressure: false,
	}
}

// Hub 管理所有信令连接
type Hub struct {
	// 注册的连接
	connections map[string]*Conn
	// 在线状态登记表
	presence *PresenceRegistry
	// 注册连接通道
	register chan *Conn
	// 注销连接通道
	unregister chan *Conn
	// 连接计数
	connectionCount int64
	// 配置
	config *Config
	// 业务路由
	router Router

	mu     sync.RWMutex
	ctx    context.Context
	cancel context.CancelFunc
}

// NewHub 创建新的Hub实例
func NewHub(config *Config) *Hub {
	if config == nil {
		config = DefaultConfig()
	}
	ctx, cancel := context.WithCancel(context.Background())
	hub := &Hub{
		connections: make(map[string]*Conn),
		presence:    NewPresenceRegistry(),
		register:    make(chan *Conn, 256),
		unregister:  make(chan *Conn, 256),
		config:      config,
		ctx:         ctx,
		cancel:      cancel,
	}
	go hub.run()
	return hub
}

// SetRouter wires the business dispatcher. Must be called before the
// first connection is served.
func (h *Hub) SetRouter(r Router) { h.router = r }

// Presence exposes the registry for services that address users by id.
func (h *Hub) Presence() *PresenceRegistry { return h.presence }

// run Hub主循环
func (h *Hub) run() {
	ticker := time.NewTicker(h.config.HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.ctx.Done():
			return
		case conn := <-h.register:
			h.registerConnection(conn)
		case conn := <-h.unregister:
			h.unregisterConnection(conn)
		case <-ticker.C:
			h.checkHeartbeats()
		}
	}
}

// registerConnection 注册连接
func (h *Hub) registerConnection(conn *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if atomic.LoadInt64(&h.connectionCount) >= h.config.MaxConnections {
		conn.ws.Close()
		logrus.Warnf("达到最大连接数限制: %d", h.config.MaxConnections)
		return
	}

	h.connections[conn.ID] = conn
	atomic.AddInt64(&h.connectionCount, 1)
	if m := metrics.Global(); m != nil {
		m.ConnectionOpened()
	}

	logrus.Infof("信令连接已注册: %s, 当前连接数: %d", conn.ID, atomic.LoadInt64(&h.connectionCount))
}

// unregisterConnection 注销连接
func (h *Hub) unregisterConnection(conn *Conn) {
	h.mu.Lock()
	_, exists := h.connections[conn.ID]
	if exists {
		delete(h.connections, conn.ID)
		atomic.AddInt64(&h.connectionCount, -1)
		close(conn.send)
	}
	h.mu.Unlock()
	if !exists {
		return
	}
	if m := metrics.Global(); m != nil {
		m.ConnectionClosed()
	}

	// 在线表里有登记的连接掉线要触发在线列表广播
	if entry, ok := h.presence.Unregister(conn.ID); ok {
		logrus.Infof("用户下线: %s (%s)", entry.UserID, conn.ID)
		h.BroadcastPresence()
	}
	logrus.Infof("信令连接已注销: %s, 当前连接数: %d", conn.ID, atomic.LoadInt64(&h.connectionCount))
}

// RegisterPresence binds a connection to a user identity, closing any
// stale connection the same user held, then broadcasts the online list.
func (h *Hub) RegisterPresence(conn *Conn, userID, name, role string) {
	evicted := h.presence.Register(conn.ID, userID, name, role, conn.Device)
	if evicted != "" {
		h.mu.RLock()
		old := h.connections[evicted]
		h.mu.RUnlock()
		if old != nil {
			logrus.Infof("用户 %s 重新上线，断开旧连接 %s", userID, evicted)
			old.ws.Close()
		}
	}
	conn.UserID = userID
	h.BroadcastPresence()
}

// BroadcastPresence pushes the deduplicated online list to everyone.
func (h *Hub) BroadcastPresence() {
	h.BroadcastAll(NewEnvelope(EventUsersOnline, h.presence.List()))
}

// SendToConn queues an envelope on one connection.
func (h *Hub) SendToConn(connID string, env *Envelope) bool {
	h.mu.RLock()
	conn := h.connections[connID]
	h.mu.RUnlock()
	if conn == nil {
		return false
	}
	data, err := json.Marshal(env)
	if err != nil {
		logrus.Errorf("消息序列化失败: %v", err)
		return false
	}
	h.trySend(conn, data, func() { logrus.Warnf("连接 %s 发送缓冲区已满", connID) })
	return true
}

// SendToUser routes an envelope through the presence registry. A miss is
// not an error: the recipient is simply offline.
func (h *Hub) SendToUser(userID string, env *Envelope) bool {
	connID, ok := h.presence.LookupConn(userID)
	if !ok {
		return false
	}
	return h.SendToConn(connID, env)
}

// BroadcastAll 发送消息给所有连接
func (h *Hub) BroadcastAll(env *Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		logrus.Errorf("消息序列化失败: %v", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, conn := range h.connections {
		h.trySend(conn, data, func() { logrus.Debugf("连接 %s 发送缓冲区满，消息被丢弃", conn.ID) })
	}
}

// BroadcastToRoles sends an envelope to every online user in one of the
// given roles.
func (h *Hub) BroadcastToRoles(roles map[string]bool, env *Envelope) int {
	sent := 0
	for _, connID := range h.presence.ConnsWithRoles(roles) {
		if h.SendToConn(connID, env) {
			sent++
		}
	}
	return sent
}

// checkHeartbeats 检查心跳
func (h *Hub) checkHeartbeats() {
	h.mu.RLock()
	defer h.mu.RUnlock()

	now := time.Now()
	for _, conn := range h.connections {
		conn.mu.RLock()
		last := conn.lastPing
		conn.mu.RUnlock()
		if now.Sub(last) > h.config.ConnectionTimeout {
			logrus.Warnf("连接 %s 心跳超时，准备关闭", conn.ID)
			conn.ws.Close()
		}
	}
}

// ConnectionCount 获取当前连接数
func (h *Hub) ConnectionCount() int64 {
	return atomic.LoadInt64(&h.connectionCount)
}

// Close 关闭Hub
func (h *Hub) Close() {
	h.cancel()

	h.mu.Lock()
	for _, conn := range h.connections {
		conn.ws.Close()
	}
	h.mu.Unlock()

	logrus.Info("信令Hub已关闭")
}

// trySend 背压策略
func (h *Hub) trySend(conn *Conn, data []byte, onDrop func()) {
	if h.config.DropOnFull {
		select {
		case conn.send <- data:
		default:
			onDrop()
			if h.config.CloseOnBackpressure {
				conn.ws.Close()
			}
		}
		return
	}
	timeout := h.config.SendTimeout
	if timeout <= 0 {
		timeout = 50 * time.Millisecond
	}
	select {
	case conn.send <- data:
	case <-time.After(timeout):
		onDrop()
		if h.config.CloseOnBackpressure {
			conn.ws.Close()
		}
	}
}
