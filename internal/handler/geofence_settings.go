package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"CareHive/pkg/middleware"
	"CareHive/pkg/response"
)

type geofenceSettingsRequest struct {
	UserID           string   `json:"userId"`
	SafeRadiusMeters *float64 `json:"safeRadiusMeters"`
	AlertActive      *bool    `json:"alertActive"`
}

// UpdateGeofenceSettings 调整安全半径或警报开关
func (h *Handlers) UpdateGeofenceSettings(c *gin.Context) {
	var req geofenceSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", nil)
		return
	}
	if req.UserID == "" {
		req.UserID = c.GetString(middleware.CtxUserID)
	}
	if !canAccess(c, req.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}
	if req.SafeRadiusMeters == nil && req.AlertActive == nil {
		response.Fail(c, "nothing to update", nil)
		return
	}

	user, err := h.geo.UpdateSettings(c.Request.Context(), req.UserID, req.SafeRadiusMeters, req.AlertActive)
	if err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, "settings updated", gin.H{
		"userId":           user.ID,
		"safeRadiusMeters": user.SafeRadiusMeters,
		"alertActive":      user.AlertActive,
	})
}

type resetHomeRequest struct {
	UserID string `json:"userId"`
}

// ResetHome 清除参考点，下一次定位重新锚定安全区中心
func (h *Handlers) ResetHome(c *gin.Context) {
	var req resetHomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Fail(c, "invalid request", nil)
		return
	}
	if req.UserID == "" {
		req.UserID = c.GetString(middleware.CtxUserID)
	}
	if !canAccess(c, req.UserID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
		return
	}

	if err := h.geo.ResetHome(c.Request.Context(), req.UserID); err != nil {
		failWith(c, err)
		return
	}
	response.Success(c, "home reference cleared", nil)
}
