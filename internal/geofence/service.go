package geofence

import (
	"context"
	"time"

	"go.uber.org/zap"

	"CareHive/internal/models"
	"CareHive/internal/store"
	"CareHive/pkg/errors"
	"CareHive/pkg/logger"
	"CareHive/pkg/metrics"
)

// UpdateResult is returned to the reporting client.
type UpdateResult struct {
	AcceptedLatitude  float64 `json:"acceptedLatitude"`
	AcceptedLongitude float64 `json:"acceptedLongitude"`
	DistanceMeters    float64 `json:"distanceMeters"`
	OutsideRadius     bool    `json:"outsideRadius"`
	AlertActive       bool    `json:"alertActive"`
	IsRealMovement    bool    `json:"isRealMovement"`
}

// Service 串起定位更新的完整链路：
// 校验 → 噪声过滤 → 围栏判定 → 落库 → 警报分发
type Service struct {
	users      store.UserStore
	locations  store.LocationStore
	filter     *LocationFilter
	evaluator  *GeofenceEvaluator
	dispatcher *AlertDispatcher

	defaultSafeRadius float64
}

func NewService(users store.UserStore, locations store.LocationStore,
	dispatcher *AlertDispatcher, defaultSafeRadius float64) *Service {
	return &Service{
		users:             users,
		locations:         locations,
		filter:            NewLocationFilter(),
		evaluator:         NewGeofenceEvaluator(),
		dispatcher:        dispatcher,
		defaultSafeRadius: defaultSafeRadius,
	}
}

// ProcessUpdate runs one raw GPS sample through the pipeline. A storage
// failure is the only error that aborts the request after validation;
// alert channel failures are absorbed downstream.
func (s *Service) ProcessUpdate(ctx context.Context, userID string, lat, lng, accuracy float64) (*UpdateResult, error) {
	if !ValidCoordinates(lat, lng) {
		return nil, errors.WithCodef(errors.CodeInvalidCoordinates,
			"coordinates out of range: %.6f, %.6f", lat, lng)
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.WrapCode(errors.CodeInternal, err, "load user")
	}

	safeRadius := user.SafeRadiusMeters
	if safeRadius <= 0 {
		safeRadius = s.defaultSafeRadius
	}

	// 进程重启后从存储恢复过滤/围栏状态，避免参考点漂移
	if !s.filter.HasState(userID) || !s.evaluator.HasState(userID) {
		s.hydrate(ctx, userID)
	}

	fr := s.filter.Accept(userID, lat, lng, accuracy)
	ev := s.evaluator.Evaluate(userID, fr.AcceptedLat, fr.AcceptedLng, safeRadius)

	sample := &models.LocationSample{
		UserID:             userID,
		Latitude:           lat,
		Longitude:          lng,
		Accuracy:           accuracy,
		Timestamp:          time.Now(),
		AcceptedLatitude:   fr.AcceptedLat,
		AcceptedLongitude:  fr.AcceptedLng,
		ReferenceLatitude:  ev.ReferenceLat,
		ReferenceLongitude: ev.ReferenceLng,
		OutsideRadius:      ev.Outside,
	}
	if err := s.locations.Upsert(ctx, sample); err != nil {
		return nil, errors.WrapCode(errors.CodeInternal, err, "persist location")
	}
	if m := metrics.Global(); m != nil {
		m.RecordLocationUpdate()
	}

	// Home 坐标在首个样本时固定到用户档案
	if ev.FirstFix && user.HomeLatitude == nil {
		refLat, refLng := ev.ReferenceLat, ev.ReferenceLng
		user.HomeLatitude = &refLat
		user.HomeLongitude = &refLng
		if err := s.users.Save(ctx, user); err != nil {
			logger.Warn("保存 Home 坐标失败", zap.String("user_id", userID), zap.Error(err))
		}
	}

	if user.AlertActive && s.dispatcher != nil {
		if ev.JustBreached {
			s.dispatcher.DispatchBreach(ctx, user, ev, fr.AcceptedLat, fr.AcceptedLng)
		} else if ev.Outside {
			s.dispatcher.RepeatWhileOutside(ctx, user, ev, fr.AcceptedLat, fr.AcceptedLng)
		}
	}

	return &UpdateResult{
		AcceptedLatitude:  fr.AcceptedLat,
		AcceptedLongitude: fr.AcceptedLng,
		DistanceMeters:    ev.DistanceMeters,
		OutsideRadius:     ev.Outside,
		AlertActive:       user.AlertActive,
		IsRealMovement:    fr.IsRealMovement,
	}, nil
}

// hydrate restores per-user state from the last persisted sample.
func (s *Service) hydrate(ctx context.Context, userID string) {
	prev, err := s.locations.FindLatest(ctx, userID)
	if err != nil {
		logger.Warn("恢复定位状态失败", zap.String("user_id", userID), zap.Error(err))
		return
	}
	if prev == nil {
		return
	}
	if !s.filter.HasState(userID) {
		s.filter.Seed(userID, prev.AcceptedLatitude, prev.AcceptedLongitude)
	}
	if !s.evaluator.HasState(userID) {
		s.evaluator.Seed(userID, prev.ReferenceLatitude, prev.ReferenceLongitude, prev.OutsideRadius)
	}
}

// ResetHome drops the stored reference so the user's next fix re-anchors
// the safe zone. Used after a move or a deliberate relocation.
func (s *Service) ResetHome(ctx context.Context, userID string) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return errors.WrapCode(errors.CodeInternal, err, "load user")
	}
	s.filter.Reset(userID)
	s.evaluator.Reset(userID)
	user.HomeLatitude = nil
	user.HomeLongitude = nil
	if err := s.users.Save(ctx, user); err != nil {
		return errors.WrapCode(errors.CodeInternal, err, "clear home coordinates")
	}
	logger.Info("安全区参考点已重置", zap.String("user_id", userID))
	return nil
}

// UpdateSettings changes the safe radius and alert toggle.
func (s *Service) UpdateSettings(ctx context.Context, userID string, safeRadius *float64, alertActive *bool) (*models.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, errors.WrapCode(errors.CodeInternal, err, "load user")
	}
	if safeRadius != nil {
		if *safeRadius <= 0 {
			return nil, errors.WithCode(errors.CodeInvalidPayload, "safe radius must be positive")
		}
		user.SafeRadiusMeters = *safeRadius
	}
	if alertActive != nil {
		user.AlertActive = *alertActive
	}
	if err := s.users.Save(ctx, user); err != nil {
		return nil, errors.WrapCode(errors.CodeInternal, err, "save settings")
	}
	return user, nil
}
