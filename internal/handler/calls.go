package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"CareHive/pkg/response"
)

// GetCallHistory 分页返回某个用户参与的通话记录
func (h *Handlers) GetCallHistory(c *gin.Context) {
	userID := c.Param("userId")
	if !canAccess(c, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	records, total, err := h.stores.Calls.HistoryFor(c.Request.Context(), userID, limit, offset)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, "ok", gin.H{
		"records": records,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	})
}
