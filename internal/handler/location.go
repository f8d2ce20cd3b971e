package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"CareHive/pkg/middleware"
	"CareHive/pkg/response"
)

type updateLocationRequest struct {
	UserID    string  `json:"userId"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Accuracy  float64 `json:"accuracy"`
}

// UpdateLocation 接收定位上报并执行过滤、围栏判定与警报分发
func (h *Handlers) UpdateLocation(c *gin.Context) {
	var req updateLocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", nil)
		return
	}
	if req.UserID == "" {
		req.UserID = c.GetString(middleware.CtxUserID)
	}
	// 只能以自己的身份上报；看护角色可代为上报（测试设备）
	if !canAccess(c, req.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "cannot report for another user"})
		return
	}

	result, err := h.geo.ProcessUpdate(c.Request.Context(), req.UserID, req.Latitude, req.Longitude, req.Accuracy)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, "location processed", result)
}

// GetLatestLocation 返回某个用户的当前位置（最后一条已接受样本）
func (h *Handlers) GetLatestLocation(c *gin.Context) {
	userID := c.Param("userId")
	if !canAccess(c, userID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	sample, err := h.stores.Locations.FindLatest(c.Request.Context(), userID)
	if err != nil {
		failWith(c, err)
		return
	}
	if sample == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no location recorded"})
		return
	}
	response.Success(c, "ok", sample)
}
