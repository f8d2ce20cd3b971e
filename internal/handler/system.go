package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"CareHive/pkg/metrics"
	"CareHive/pkg/response"
)

// HealthCheck 健康检查接口
func (h *Handlers) HealthCheck(c *gin.Context) {
	// 检查数据库连接
	sqlDB, err := h.db.DB()
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database connection failed"})
		return
	}
	if err := sqlDB.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": "database ping failed"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// GetSystemStats 返回进程与业务运行状态
func (h *Handlers) GetSystemStats(c *gin.Context) {
	snap := metrics.Snapshot()
	response.Success(c, "ok", gin.H{
		"system":         snap,
		"wsConnections":  h.hub.ConnectionCount(),
		"onlineUsers":    h.hub.Presence().Count(),
		"activeCalls":    h.calls.ActiveSessions(),
		"sseSubscribers": h.events.ClientCount(),
	})
}
