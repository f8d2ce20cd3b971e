package geofence

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CareHive/internal/models"
	"CareHive/pkg/cache"
	"CareHive/pkg/errors"
)

type fakeUserStore struct {
	users map[string]*models.User
	saved int
}

func newFakeUserStore(users ...*models.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]*models.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s not found", id)
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) Save(ctx context.Context, user *models.User) error {
	s.users[user.ID] = user
	s.saved++
	return nil
}

type fakeLocationStore struct {
	samples    map[string]*models.LocationSample
	failUpsert bool
}

func newFakeLocationStore() *fakeLocationStore {
	return &fakeLocationStore{samples: make(map[string]*models.LocationSample)}
}

func (s *fakeLocationStore) Upsert(ctx context.Context, sample *models.LocationSample) error {
	if s.failUpsert {
		return fmt.Errorf("disk full")
	}
	cp := *sample
	s.samples[sample.UserID] = &cp
	return nil
}

func (s *fakeLocationStore) FindLatest(ctx context.Context, userID string) (*models.LocationSample, error) {
	sample, ok := s.samples[userID]
	if !ok {
		return nil, nil
	}
	cp := *sample
	return &cp, nil
}

type serviceFixture struct {
	svc       *Service
	users     *fakeUserStore
	locations *fakeLocationStore
	alerts    *fakeAlertStore
	sms       *fakeSMS
}

func newServiceFixture(t *testing.T, user *models.User) *serviceFixture {
	t.Helper()
	c, err := cache.NewCache(cache.Config{Type: "gocache"})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	users := newFakeUserStore(user)
	locations := newFakeLocationStore()
	alerts := &fakeAlertStore{}
	sms := &fakeSMS{}
	dispatcher := NewAlertDispatcher(alerts, &fakeBroadcaster{}, &fakeSSE{}, sms, &fakeMail{}, c, time.Minute)
	svc := NewService(users, locations, dispatcher, 100)
	return &serviceFixture{svc: svc, users: users, locations: locations, alerts: alerts, sms: sms}
}

func TestProcessUpdateRejectsInvalidCoordinates(t *testing.T) {
	fx := newServiceFixture(t, testUser())

	_, err := fx.svc.ProcessUpdate(context.Background(), "alice", 91, 0, 10)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidCoordinates, errors.GetCode(err))
	assert.Empty(t, fx.locations.samples, "invalid sample is not persisted")
}

func TestProcessUpdateFirstFix(t *testing.T) {
	fx := newServiceFixture(t, testUser())

	res, err := fx.svc.ProcessUpdate(context.Background(), "alice", 39.9, 116.4, 10)
	require.NoError(t, err)
	assert.False(t, res.OutsideRadius)
	assert.True(t, res.IsRealMovement)
	assert.Zero(t, res.DistanceMeters)

	sample := fx.locations.samples["alice"]
	require.NotNil(t, sample)
	assert.Equal(t, 39.9, sample.ReferenceLatitude)
	assert.Equal(t, 116.4, sample.ReferenceLongitude)
	assert.False(t, sample.OutsideRadius)

	// Home 坐标固定到用户档案
	user := fx.users.users["alice"]
	require.NotNil(t, user.HomeLatitude)
	assert.Equal(t, 39.9, *user.HomeLatitude)
}

func TestProcessUpdateFiltersJitter(t *testing.T) {
	fx := newServiceFixture(t, testUser())
	_, err := fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0, 100)
	require.NoError(t, err)

	res, err := fx.svc.ProcessUpdate(context.Background(), "alice", 20*degPerMeter, 0, 100)
	require.NoError(t, err)
	assert.False(t, res.IsRealMovement)
	assert.Equal(t, 0.0, res.AcceptedLatitude)

	// 持久化的是过滤后的稳定位置，原始值保留
	sample := fx.locations.samples["alice"]
	assert.Equal(t, 0.0, sample.AcceptedLatitude)
	assert.InDelta(t, 20*degPerMeter, sample.Latitude, 1e-12)
}

func TestProcessUpdateBreachDispatchesOnce(t *testing.T) {
	user := testUser()
	user.SafeRadiusMeters = 5
	fx := newServiceFixture(t, user)

	_, err := fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0, 10)
	require.NoError(t, err)

	res, err := fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0.002, 10)
	require.NoError(t, err)
	assert.True(t, res.OutsideRadius)
	assert.InDelta(t, 222, res.DistanceMeters, 2)
	assert.Len(t, fx.alerts.created, 1)
	assert.Len(t, fx.sms.sent, 1)

	// 还在外面：冷却期内既不再建警报也不再发短信
	_, err = fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0.0021, 10)
	require.NoError(t, err)
	assert.Len(t, fx.alerts.created, 1)
	assert.Len(t, fx.sms.sent, 1)
}

func TestProcessUpdatePersistFailureAborts(t *testing.T) {
	user := testUser()
	user.SafeRadiusMeters = 5
	fx := newServiceFixture(t, user)
	_, err := fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0, 10)
	require.NoError(t, err)

	fx.locations.failUpsert = true
	_, err = fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0.002, 10)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInternal, errors.GetCode(err))
	assert.Empty(t, fx.alerts.created, "no alert when the sample could not be saved")
}

func TestProcessUpdateAlertToggleOff(t *testing.T) {
	user := testUser()
	user.SafeRadiusMeters = 5
	user.AlertActive = false
	fx := newServiceFixture(t, user)

	_, err := fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0, 10)
	require.NoError(t, err)
	res, err := fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0.002, 10)
	require.NoError(t, err)

	assert.True(t, res.OutsideRadius, "evaluation still runs")
	assert.False(t, res.AlertActive)
	assert.Empty(t, fx.alerts.created)
	assert.Empty(t, fx.sms.sent)
}

func TestProcessUpdateDefaultSafeRadius(t *testing.T) {
	user := testUser()
	user.SafeRadiusMeters = 0 // 未配置时用默认 100 米
	fx := newServiceFixture(t, user)

	_, err := fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0, 10)
	require.NoError(t, err)

	res, err := fx.svc.ProcessUpdate(context.Background(), "alice", 0, 50*degPerMeter, 10)
	require.NoError(t, err)
	assert.False(t, res.OutsideRadius)

	res, err = fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0.002, 10)
	require.NoError(t, err)
	assert.True(t, res.OutsideRadius)
}

func TestProcessUpdateHydratesAfterRestart(t *testing.T) {
	user := testUser()
	user.SafeRadiusMeters = 5
	fx := newServiceFixture(t, user)

	// 上一进程留下的持久状态：已在界外
	fx.locations.samples["alice"] = &models.LocationSample{
		UserID:             "alice",
		AcceptedLatitude:   0,
		AcceptedLongitude:  0.002,
		ReferenceLatitude:  0,
		ReferenceLongitude: 0,
		OutsideRadius:      true,
	}

	res, err := fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0.0021, 10)
	require.NoError(t, err)
	assert.True(t, res.OutsideRadius)
	// 重启不是新的越界边沿
	assert.Empty(t, fx.alerts.created)
}

func TestResetHomeReanchors(t *testing.T) {
	user := testUser()
	user.SafeRadiusMeters = 5
	fx := newServiceFixture(t, user)

	_, err := fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0, 10)
	require.NoError(t, err)

	require.NoError(t, fx.svc.ResetHome(context.Background(), "alice"))
	assert.Nil(t, fx.users.users["alice"].HomeLatitude)

	// 搬家后的第一个定位成为新的参考点
	res, err := fx.svc.ProcessUpdate(context.Background(), "alice", 0, 0.002, 10)
	require.NoError(t, err)
	assert.False(t, res.OutsideRadius)
	assert.Zero(t, res.DistanceMeters)
}

func TestUpdateSettings(t *testing.T) {
	fx := newServiceFixture(t, testUser())

	radius := 250.0
	active := false
	user, err := fx.svc.UpdateSettings(context.Background(), "alice", &radius, &active)
	require.NoError(t, err)
	assert.Equal(t, 250.0, user.SafeRadiusMeters)
	assert.False(t, user.AlertActive)

	bad := -1.0
	_, err = fx.svc.UpdateSettings(context.Background(), "alice", &bad, nil)
	require.Error(t, err)
	assert.Equal(t, errors.CodeInvalidPayload, errors.GetCode(err))
}
