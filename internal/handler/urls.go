package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"CareHive/internal/geofence"
	"CareHive/internal/signaling"
	"CareHive/pkg/cache"
	"CareHive/pkg/config"
	"CareHive/pkg/errors"
	"CareHive/pkg/metrics"
	"CareHive/pkg/middleware"
	"CareHive/pkg/response"
	"CareHive/pkg/sse"

	"CareHive/internal/store"
)

type Handlers struct {
	db     *gorm.DB
	stores *store.Stores
	geo    *geofence.Service
	hub    *signaling.Hub
	calls  *signaling.CallCoordinator
	events *sse.Hub
	cache  cache.Cache
}

func NewHandlers(db *gorm.DB, stores *store.Stores, geo *geofence.Service,
	hub *signaling.Hub, calls *signaling.CallCoordinator, events *sse.Hub, c cache.Cache) *Handlers {
	return &Handlers{
		db:     db,
		stores: stores,
		geo:    geo,
		hub:    hub,
		calls:  calls,
		events: events,
		cache:  c,
	}
}

func (h *Handlers) Register(engine *gin.Engine) {
	if m := metrics.Global(); m != nil {
		engine.Use(metrics.Middleware(m))
	}

	r := engine.Group(config.GlobalConfig.APIPrefix)

	// Register Global Singleton DB
	r.Use(middleware.InjectDB(h.db))
	// Register System Module Routes
	h.registerSystemRoutes(r)

	// 长连接入口走 token 查询参数回退
	auth := r.Group("")
	auth.Use(middleware.AuthRequired(config.GlobalConfig.JWTSecret))

	// Register Business Module Routes
	h.registerLocationRoutes(auth)
	h.registerCallRoutes(auth)
	h.registerAlertRoutes(auth)
	h.registerGeofenceRoutes(auth)

	signaling.RegisterRoutes(auth, signaling.NewHandler(h.hub))
}

func (h *Handlers) registerSystemRoutes(r *gin.RouterGroup) {
	sys := r.Group("/system")
	{
		sys.GET("/health", h.HealthCheck)
		sys.GET("/stats", h.GetSystemStats)
	}
}

func (h *Handlers) registerLocationRoutes(r *gin.RouterGroup) {
	loc := r.Group("/location")
	{
		loc.POST("/update",
			middleware.RateLimit(config.GlobalConfig.RateLimitLocation),
			middleware.Idempotency(middleware.IdempotencyConfig{
				HeaderName: "X-Idempotency-Key",
				TTL:        time.Minute,
				Store:      h.cache,
			}),
			h.UpdateLocation)
		loc.GET("/latest/:userId", h.GetLatestLocation)
	}
}

func (h *Handlers) registerCallRoutes(r *gin.RouterGroup) {
	calls := r.Group("/calls")
	{
		calls.GET("/history/:userId", h.GetCallHistory)
	}
}

func (h *Handlers) registerAlertRoutes(r *gin.RouterGroup) {
	alerts := r.Group("/alerts")
	{
		alerts.GET("/stream", middleware.PrivilegedOnly(), h.StreamAlerts)
		alerts.GET("/:userId", h.ListAlerts)
	}
}

func (h *Handlers) registerGeofenceRoutes(r *gin.RouterGroup) {
	geo := r.Group("/geofence")
	{
		geo.PUT("/settings", h.UpdateGeofenceSettings)
		geo.POST("/reset-home", h.ResetHome)
	}
}

// canAccess 自己的数据自己可见，看护角色可见所有人
func canAccess(c *gin.Context, targetUserID string) bool {
	if c.GetString(middleware.CtxUserID) == targetUserID {
		return true
	}
	return middleware.PrivilegedRoles[c.GetString(middleware.CtxRole)]
}

// failWith maps service error codes onto HTTP statuses.
func failWith(c *gin.Context, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.CodeInvalidCoordinates, errors.CodeInvalidPayload:
		status = http.StatusBadRequest
	case errors.CodeForbidden:
		status = http.StatusForbidden
	}
	response.FailWithStatus(c, status, code, errors.GetMessage(err))
}
