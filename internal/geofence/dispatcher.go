package geofence

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"CareHive/internal/models"
	"CareHive/internal/signaling"
	"CareHive/internal/store"
	"CareHive/pkg/cache"
	"CareHive/pkg/logger"
	"CareHive/pkg/metrics"
	"CareHive/pkg/notification"
)

// caregivingRoles 是 geofence:alert 的长连接广播目标
var caregivingRoles = map[string]bool{
	models.RoleCaregiver: true,
	models.RoleDoctor:    true,
	"admin":              true,
}

// socketBroadcaster is the slice of the signaling hub the dispatcher needs.
type socketBroadcaster interface {
	BroadcastToRoles(roles map[string]bool, env *signaling.Envelope) int
}

type sseBroadcaster interface {
	BroadcastEvent(event string, v interface{})
}

type smsSender interface {
	SendGeofenceAlert(ctx context.Context, to string, a notification.GeofenceSMS) error
}

type mailSender interface {
	SendGeofenceAlert(to, patientName string, distance, safeRadius float64, lat, lng float64) error
}

// AlertDispatcher fans a breach out to sockets, SSE, SMS and email.
// Socket and email fire once per breach edge; SMS is gated by a
// per-user cooldown so a patient lingering outside keeps reminding
// the caregiver without flooding them.
type AlertDispatcher struct {
	alerts   store.AlertStore
	hub      socketBroadcaster
	sse      sseBroadcaster
	sms      smsSender
	mail     mailSender
	cooldown cache.Cache
	ttl      time.Duration
}

func NewAlertDispatcher(alerts store.AlertStore, hub socketBroadcaster, sse sseBroadcaster,
	sms smsSender, mail mailSender, cooldown cache.Cache, smsCooldown time.Duration) *AlertDispatcher {
	return &AlertDispatcher{
		alerts:   alerts,
		hub:      hub,
		sse:      sse,
		sms:      sms,
		mail:     mail,
		cooldown: cooldown,
		ttl:      smsCooldown,
	}
}

// DispatchBreach handles one inside→outside transition. Every channel
// failure is logged and absorbed; one channel going down never blocks
// the others.
func (d *AlertDispatcher) DispatchBreach(ctx context.Context, user *models.User, ev Evaluation, lat, lng float64) {
	if m := metrics.Global(); m != nil {
		m.RecordBreach()
	}

	alert := &models.GeofenceAlert{
		AlertID:     uuid.New().String(),
		UserID:      user.ID,
		PatientName: user.DisplayName,
		Distance:    ev.DistanceMeters,
		SafeRadius:  user.SafeRadiusMeters,
		Latitude:    lat,
		Longitude:   lng,
	}
	if err := d.alerts.Create(ctx, alert); err != nil {
		// 落库失败不阻断实时通知
		logger.Error("保存越界警报失败", zap.String("user_id", user.ID), zap.Error(err))
	}

	payload := signaling.GeofenceAlertPayload{
		AlertID:     alert.AlertID,
		UserID:      user.ID,
		PatientName: user.DisplayName,
		Distance:    ev.DistanceMeters,
		SafeRadius:  user.SafeRadiusMeters,
		Latitude:    lat,
		Longitude:   lng,
	}

	if d.hub != nil {
		n := d.hub.BroadcastToRoles(caregivingRoles, signaling.NewEnvelope(signaling.EventGeofenceAlert, payload))
		logger.Info("越界警报已广播",
			zap.String("user_id", user.ID),
			zap.Float64("distance", ev.DistanceMeters),
			zap.Int("recipients", n))
	}
	if d.sse != nil {
		d.sse.BroadcastEvent(signaling.EventGeofenceAlert, payload)
	}

	d.sendSMS(ctx, user, ev, lat, lng)
	d.sendEmail(user, ev, lat, lng)
}

// RepeatWhileOutside is the reminder path for samples that are still
// outside after the initial breach. Only SMS re-fires, and only once
// the cooldown has lapsed.
func (d *AlertDispatcher) RepeatWhileOutside(ctx context.Context, user *models.User, ev Evaluation, lat, lng float64) {
	d.sendSMS(ctx, user, ev, lat, lng)
}

func (d *AlertDispatcher) sendSMS(ctx context.Context, user *models.User, ev Evaluation, lat, lng float64) {
	if d.sms == nil || user.ContactPhone == "" {
		return
	}
	// 先占冷却窗口再发送；发送失败也不退还，避免供应商故障时打爆联系人
	if !d.cooldown.Add(ctx, "sms:cooldown:"+user.ID, "1", d.ttl) {
		if m := metrics.Global(); m != nil {
			m.RecordSMS("suppressed")
		}
		return
	}
	err := d.sms.SendGeofenceAlert(ctx, user.ContactPhone, notification.GeofenceSMS{
		PatientName: user.DisplayName,
		Distance:    ev.DistanceMeters,
		SafeRadius:  user.SafeRadiusMeters,
		Latitude:    lat,
		Longitude:   lng,
	})
	if err != nil {
		logger.Error("警报短信发送失败", zap.String("user_id", user.ID), zap.Error(err))
		if m := metrics.Global(); m != nil {
			m.RecordSMS("failed")
		}
		return
	}
	if m := metrics.Global(); m != nil {
		m.RecordSMS("sent")
	}
}

func (d *AlertDispatcher) sendEmail(user *models.User, ev Evaluation, lat, lng float64) {
	if d.mail == nil || user.ContactEmail == "" {
		return
	}
	err := d.mail.SendGeofenceAlert(user.ContactEmail, user.DisplayName,
		ev.DistanceMeters, user.SafeRadiusMeters, lat, lng)
	if err != nil {
		logger.Warn("警报邮件发送失败", zap.String("user_id", user.ID), zap.Error(err))
		if m := metrics.Global(); m != nil {
			m.RecordEmail("failed")
		}
		return
	}
	if m := metrics.Global(); m != nil {
		m.RecordEmail("sent")
	}
}
