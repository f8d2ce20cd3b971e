package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"CareHive/internal/geofence"
	handlers "CareHive/internal/handler"
	"CareHive/internal/jobs"
	"CareHive/internal/signaling"
	"CareHive/internal/store"
	"CareHive/pkg/cache"
	"CareHive/pkg/config"
	"CareHive/pkg/llm"
	"CareHive/pkg/logger"
	"CareHive/pkg/metrics"
	"CareHive/pkg/notification"
	"CareHive/pkg/scheduler"
	"CareHive/pkg/sse"
)

func main() {
	if err := config.Load(); err != nil {
		panic(err)
	}
	cfg := config.GlobalConfig

	if err := logger.Init(cfg.Log); err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := openDB(cfg)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	if err := store.AutoMigrate(db); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}
	stores := store.NewGormStores(db)

	c, err := cache.NewCache(cache.Config{
		Type:  cfg.CacheType,
		Redis: cache.RedisConfig{Addr: cfg.RedisAddr},
	})
	if err != nil {
		logger.Fatal("缓存初始化失败", zap.Error(err))
	}
	defer c.Close()

	metrics.SetGlobal(metrics.NewMetrics())

	// 信令层
	hub := signaling.NewHub(signaling.DefaultConfig())
	coordinator := signaling.NewCallCoordinator(stores.Calls, hub.Presence(), hub)
	var companion llm.Companion
	if cfg.LLMApiKey != "" {
		companion = llm.NewOpenAICompanion(cfg.LLMApiKey, cfg.LLMBaseURL, cfg.LLMModel)
	}
	hub.SetRouter(signaling.NewEventRouter(hub, coordinator, companion))

	// 警报分发链路
	events := sse.NewHub(15 * time.Second)
	sms := notification.NewTwilioSMS(cfg.Twilio, nil)
	mail := notification.NewMailNotification(cfg.Mail)
	dispatcher := geofence.NewAlertDispatcher(stores.Alerts, hub, events, sms, mail, c, cfg.SMSCooldown)
	geoSvc := geofence.NewService(stores.Users, stores.Locations, dispatcher, cfg.DefaultSafeRadiusMeters)

	// 后台任务
	sched := scheduler.New()
	defer sched.Stop()
	jobs.RegisterRingSweep(sched, coordinator, cfg.RingTimeout)

	cr := scheduler.NewCron(time.Local)
	if cfg.DigestEnabled {
		if err := jobs.RegisterAlertDigest(cr, cfg.DigestSchedule, stores.Alerts, stores.Users, mail); err != nil {
			logger.Fatal("摘要任务注册失败", zap.Error(err))
		}
	}
	cr.Start()
	defer cr.Stop()

	gin.SetMode(cfg.Mode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	h := handlers.NewHandlers(db, stores, geoSvc, hub, coordinator, events, c)
	h.Register(engine)

	srv := &http.Server{
		Addr:    cfg.Addr,
		Handler: engine,
	}
	go func() {
		logger.Info("CareHive 启动", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP 服务异常退出", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("收到退出信号，优雅关闭中")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("关闭 HTTP 服务失败", zap.Error(err))
	}
}

func openDB(cfg *config.Config) (*gorm.DB, error) {
	switch cfg.DBDriver {
	case "postgres":
		return gorm.Open(postgres.Open(cfg.DSN), &gorm.Config{})
	default:
		return gorm.Open(sqlite.Open(cfg.DSN), &gorm.Config{})
	}
}
