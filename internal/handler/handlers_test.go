package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CareHive/internal/geofence"
	"CareHive/internal/models"
	"CareHive/internal/store"
	"CareHive/pkg/middleware"
)

type memUserStore struct {
	users map[string]*models.User
}

func (s *memUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s not found", id)
	}
	cp := *u
	return &cp, nil
}

func (s *memUserStore) Save(ctx context.Context, user *models.User) error {
	s.users[user.ID] = user
	return nil
}

type memLocationStore struct {
	samples map[string]*models.LocationSample
}

func (s *memLocationStore) Upsert(ctx context.Context, sample *models.LocationSample) error {
	cp := *sample
	s.samples[sample.UserID] = &cp
	return nil
}

func (s *memLocationStore) FindLatest(ctx context.Context, userID string) (*models.LocationSample, error) {
	sample, ok := s.samples[userID]
	if !ok {
		return nil, nil
	}
	cp := *sample
	return &cp, nil
}

type memCallStore struct {
	records []models.CallRecord
}

func (s *memCallStore) Create(ctx context.Context, rec *models.CallRecord) error { return nil }
func (s *memCallStore) Update(ctx context.Context, callID string, fields map[string]interface{}) error {
	return nil
}
func (s *memCallStore) Find(ctx context.Context, callID string) (*models.CallRecord, error) {
	return nil, nil
}
func (s *memCallStore) HistoryFor(ctx context.Context, userID string, limit, offset int) ([]models.CallRecord, int64, error) {
	return s.records, int64(len(s.records)), nil
}

type memAlertStore struct {
	alerts []models.GeofenceAlert
}

func (s *memAlertStore) Create(ctx context.Context, alert *models.GeofenceAlert) error { return nil }
func (s *memAlertStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.GeofenceAlert, error) {
	return s.alerts, nil
}
func (s *memAlertStore) ListSince(ctx context.Context, since time.Time) ([]models.GeofenceAlert, error) {
	return s.alerts, nil
}

func newTestHandlers(t *testing.T) (*Handlers, *memLocationStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	users := &memUserStore{users: map[string]*models.User{
		"alice": {ID: "alice", DisplayName: "Alice", Role: models.RoleElderly, SafeRadiusMeters: 100, AlertActive: true},
		"bob":   {ID: "bob", DisplayName: "Bob", Role: models.RoleCaregiver},
	}}
	locations := &memLocationStore{samples: make(map[string]*models.LocationSample)}
	stores := &store.Stores{
		Calls:     &memCallStore{},
		Locations: locations,
		Users:     users,
		Alerts:    &memAlertStore{},
	}
	// 告警分发不在 handler 层测试范围内
	geo := geofence.NewService(users, locations, nil, 100)
	return NewHandlers(nil, stores, geo, nil, nil, nil, nil), locations
}

func perform(t *testing.T, handler gin.HandlerFunc, method, body, userID, role string, params gin.Params) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(method, "/", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Params = params
	c.Set(middleware.CtxUserID, userID)
	c.Set(middleware.CtxRole, role)
	handler(c)
	return w
}

func TestUpdateLocationSelf(t *testing.T) {
	h, locations := newTestHandlers(t)

	body := `{"userId":"alice","latitude":39.9,"longitude":116.4,"accuracy":10}`
	w := perform(t, h.UpdateLocation, http.MethodPost, body, "alice", "elderly", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NotNil(t, locations.samples["alice"])

	var resp struct {
		Code int                   `json:"code"`
		Data geofence.UpdateResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 0, resp.Code)
	assert.False(t, resp.Data.OutsideRadius)
	assert.True(t, resp.Data.AlertActive)
}

func TestUpdateLocationForOtherUserForbidden(t *testing.T) {
	h, _ := newTestHandlers(t)

	body := `{"userId":"alice","latitude":39.9,"longitude":116.4,"accuracy":10}`
	w := perform(t, h.UpdateLocation, http.MethodPost, body, "mallory", "elderly", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	// 看护角色可以代报
	w = perform(t, h.UpdateLocation, http.MethodPost, body, "bob", "caregiver", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestUpdateLocationInvalidCoordinates(t *testing.T) {
	h, _ := newTestHandlers(t)

	body := `{"userId":"alice","latitude":91,"longitude":0,"accuracy":10}`
	w := perform(t, h.UpdateLocation, http.MethodPost, body, "alice", "elderly", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLatestLocationAccess(t *testing.T) {
	h, locations := newTestHandlers(t)
	locations.samples["alice"] = &models.LocationSample{UserID: "alice", AcceptedLatitude: 39.9}
	params := gin.Params{{Key: "userId", Value: "alice"}}

	w := perform(t, h.GetLatestLocation, http.MethodGet, "", "mallory", "elderly", params)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(t, h.GetLatestLocation, http.MethodGet, "", "alice", "elderly", params)
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(t, h.GetLatestLocation, http.MethodGet, "", "bob", "caregiver", params)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetLatestLocationNotFound(t *testing.T) {
	h, _ := newTestHandlers(t)
	params := gin.Params{{Key: "userId", Value: "alice"}}

	w := perform(t, h.GetLatestLocation, http.MethodGet, "", "alice", "elderly", params)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetCallHistoryAccess(t *testing.T) {
	h, _ := newTestHandlers(t)
	params := gin.Params{{Key: "userId", Value: "alice"}}

	w := perform(t, h.GetCallHistory, http.MethodGet, "", "mallory", "elderly", params)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(t, h.GetCallHistory, http.MethodGet, "", "bob", "doctor", params)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUpdateGeofenceSettings(t *testing.T) {
	h, _ := newTestHandlers(t)

	w := perform(t, h.UpdateGeofenceSettings, http.MethodPut, `{"userId":"alice"}`, "alice", "elderly", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code, "empty update is rejected")

	body := `{"userId":"alice","safeRadiusMeters":250,"alertActive":false}`
	w = perform(t, h.UpdateGeofenceSettings, http.MethodPut, body, "alice", "elderly", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			SafeRadiusMeters float64 `json:"safeRadiusMeters"`
			AlertActive      bool    `json:"alertActive"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 250.0, resp.Data.SafeRadiusMeters)
	assert.False(t, resp.Data.AlertActive)
}

func TestResetHomeEndpoint(t *testing.T) {
	h, _ := newTestHandlers(t)

	w := perform(t, h.ResetHome, http.MethodPost, `{"userId":"alice"}`, "mallory", "elderly", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(t, h.ResetHome, http.MethodPost, `{"userId":"alice"}`, "bob", "caregiver", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}
