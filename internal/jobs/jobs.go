package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"

	"CareHive/internal/signaling"
	"CareHive/internal/store"
	"CareHive/pkg/logger"
	"CareHive/pkg/notification"
	"CareHive/pkg/scheduler"
)

// 响铃超时扫描间隔；超时本身由配置的 RingTimeout 决定
const ringSweepInterval = 5 * time.Second

// RegisterRingSweep 周期清理无人接听的通话并通知双方
func RegisterRingSweep(s *scheduler.Scheduler, calls *signaling.CallCoordinator, ringTimeout time.Duration) {
	s.Every(ringSweepInterval, scheduler.FuncJob(func(ctx context.Context) {
		if n := calls.SweepStale(ctx, ringTimeout); n > 0 {
			logger.Info("响铃超时通话已清理", zap.Int("count", n))
		}
	}))
}

// digestMailer is the slice of the mail client the digest needs.
type digestMailer interface {
	SendAlertDigest(to string, items []notification.DigestItem) error
}

// RegisterAlertDigest 每日给紧急联系人汇总前 24 小时的越界警报
func RegisterAlertDigest(cr *scheduler.Cron, expr string, alerts store.AlertStore,
	users store.UserStore, mail digestMailer) error {
	_, err := cr.Add(expr, scheduler.FuncJob(func(ctx context.Context) {
		runDigest(ctx, alerts, users, mail)
	}))
	return err
}

func runDigest(ctx context.Context, alerts store.AlertStore, users store.UserStore, mail digestMailer) {
	since := time.Now().Add(-24 * time.Hour)
	recent, err := alerts.ListSince(ctx, since)
	if err != nil {
		logger.Error("拉取警报摘要失败", zap.Error(err))
		return
	}
	if len(recent) == 0 {
		return
	}

	// 按用户聚合，发给各自的紧急联系人
	byUser := make(map[string][]notification.DigestItem)
	for _, a := range recent {
		byUser[a.UserID] = append(byUser[a.UserID], notification.DigestItem{
			PatientName: a.PatientName,
			Distance:    a.Distance,
			When:        a.CreatedAt,
		})
	}

	for userID, items := range byUser {
		user, err := users.FindByID(ctx, userID)
		if err != nil {
			logger.Warn("摘要跳过未知用户", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		if user.ContactEmail == "" {
			continue
		}
		if err := mail.SendAlertDigest(user.ContactEmail, items); err != nil {
			logger.Warn("摘要邮件发送失败", zap.String("user_id", userID), zap.Error(err))
			continue
		}
		logger.Info("摘要邮件已发送", zap.String("user_id", userID), zap.Int("alerts", len(items)))
	}
}
