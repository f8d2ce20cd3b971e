package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"CareHive/pkg/response"
)

// ListAlerts 返回某个用户最近的越界警报
func (h *Handlers) ListAlerts(c *gin.Context) {
	userID := c.Param("userId")
	if !canAccess(c, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	alerts, err := h.stores.Alerts.ListByUser(c.Request.Context(), userID, limit)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, "ok", alerts)
}

// StreamAlerts 以 SSE 推送实时警报，供看护端仪表盘订阅。
// 浏览器 EventSource 不能带自定义头，认证走 token 查询参数。
func (h *Handlers) StreamAlerts(c *gin.Context) {
	if c.GetHeader("Accept") != "" && c.GetHeader("Accept") != "*/*" &&
		c.GetHeader("Accept") != "text/event-stream" {
		c.JSON(http.StatusNotAcceptable, gin.H{"error": "requires text/event-stream"})
		return
	}
	h.events.Serve(c, "sse_"+uuid.New().String())
}
