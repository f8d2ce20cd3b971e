package signaling

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Conn 表示一个信令连接
type Conn struct {
	ID     string
	UserID string // 空值直到 user:online 登记
	Device string

	ws       *websocket.Conn
	send     chan []byte
	hub      *Hub
	lastPing time.Time
	mu       sync.RWMutex
}

// newUpgrader 根据配置创建WebSocket升级器
func newUpgrader(cfg *Config) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  cfg.ReadBufferSize,
		WriteBufferSize: cfg.WriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			// 在生产环境中应该检查Origin
			return true
		},
	}
}

// HandleWebSocket upgrades the request and runs the connection pumps.
// device is a human-readable label parsed from the User-Agent.
func HandleWebSocket(hub *Hub, w http.ResponseWriter, r *http.Request, device string) {
	upgrader := newUpgrader(hub.config)
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logrus.Errorf("WebSocket升级失败: %v", err)
		return
	}

	conn := &Conn{
		ID:       "conn_" + uuid.NewString(),
		Device:   device,
		ws:       ws,
		send:     make(chan []byte, hub.config.MessageBufferSize),
		hub:      hub,
		lastPing: time.Now(),
	}

	hub.register <- conn

	go conn.writePump()
	go conn.readPump()
}

// readPump 读取消息的协程
func (c *Conn) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.ws.Close()
	}()

	c.ws.SetReadLimit(int64(c.hub.config.MaxMessageSize))
	c.ws.SetReadDeadline(time.Now().Add(c.hub.config.ConnectionTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.touch()
		c.ws.SetReadDeadline(time.Now().Add(c.hub.config.ConnectionTimeout))
		return nil
	})

	for {
		_, message, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logrus.Errorf("WebSocket读取错误: %v", err)
			}
			break
		}
		c.handleMessage(message)
	}
}

// writePump 发送消息的协程
func (c *Conn) writePump() {
	interval := c.hub.config.HeartbeatInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(time.Duration(float64(interval) * 0.9))
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if !ok {
				c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.ws.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			_, _ = w.Write(message)

			// 将队列中的其他消息也一起发送
			n := len(c.send)
			for i := 0; i < n; i++ {
				_, _ = w.Write([]byte{'\n'})
				_, _ = w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(10 * time.Second))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage 处理接收到的消息
func (c *Conn) handleMessage(message []byte) {
	var env Envelope
	if err := json.Unmarshal(message, &env); err != nil {
		logrus.Errorf("消息解析失败: %v", err)
		return
	}

	switch env.Event {
	case EventPing:
		c.handlePing()
	default:
		if c.hub.router == nil {
			logrus.Warnf("信令路由未配置，丢弃事件: %s", env.Event)
			return
		}
		c.hub.router.HandleEvent(c, &env)
	}
}

// handlePing 处理ping消息
func (c *Conn) handlePing() {
	c.touch()
	c.Reply(EventPong, nil)
}

// Reply queues an outbound envelope for this connection.
func (c *Conn) Reply(event string, data interface{}) {
	raw, _ := json.Marshal(NewEnvelope(event, data))
	select {
	case c.send <- raw:
	default:
		logrus.Warnf("连接 %s 发送缓冲区已满", c.ID)
	}
}

func (c *Conn) touch() {
	c.mu.Lock()
	c.lastPing = time.Now()
	c.mu.Unlock()
}
