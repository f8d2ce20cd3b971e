package signaling

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mssola/user_agent"
)

// Handler 信令HTTP处理器
type Handler struct {
	hub *Hub
}

func NewHandler(hub *Hub) *Handler {
	return &Handler{hub: hub}
}

// RegisterRoutes 统一注册路由
func RegisterRoutes(r gin.IRoutes, handler *Handler) {
	r.GET("/ws", handler.HandleWebSocket)
	r.GET("/ws/stats", handler.GetStats)
	r.GET("/ws/health", handler.HealthCheck)
}

// HandleWebSocket 处理WebSocket连接请求
func (h *Handler) HandleWebSocket(c *gin.Context) {
	HandleWebSocket(h.hub, c.Writer, c.Request, deviceLabel(c.Request.UserAgent()))
}

// deviceLabel condenses a User-Agent into something readable for the
// online list, e.g. "Android / Chrome".
func deviceLabel(ua string) string {
	if ua == "" {
		return ""
	}
	parsed := user_agent.New(ua)
	browser, _ := parsed.Browser()
	parts := make([]string, 0, 2)
	if os := parsed.OS(); os != "" {
		parts = append(parts, os)
	}
	if browser != "" {
		parts = append(parts, browser)
	}
	return strings.Join(parts, " / ")
}

// GetStats 获取信令统计信息
func (h *Handler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"total_connections":  h.hub.ConnectionCount(),
		"online_users":       h.hub.Presence().Count(),
		"max_connections":    h.hub.config.MaxConnections,
		"heartbeat_interval": h.hub.config.HeartbeatInterval.String(),
		"connection_timeout": h.hub.config.ConnectionTimeout.String(),
	})
}

// HealthCheck 信令健康检查
func (h *Handler) HealthCheck(c *gin.Context) {
	if h.hub.ctx.Err() != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unhealthy",
			"error":  h.hub.ctx.Err().Error(),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":            "healthy",
		"total_connections": h.hub.ConnectionCount(),
		"timestamp":         time.Now().Unix(),
	})
}
