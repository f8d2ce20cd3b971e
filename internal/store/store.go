package store

import (
	"context"
	"time"

	"CareHive/internal/models"
)

// Storage interfaces for the signaling and geofence services. Gorm-backed
// implementations live in gorm.go; tests substitute in-memory fakes.

type CallStore interface {
	Create(ctx context.Context, rec *models.CallRecord) error
	Update(ctx context.Context, callID string, fields map[string]interface{}) error
	Find(ctx context.Context, callID string) (*models.CallRecord, error)
	HistoryFor(ctx context.Context, userID string, limit, offset int) ([]models.CallRecord, int64, error)
}

type LocationStore interface {
	Upsert(ctx context.Context, sample *models.LocationSample) error
	FindLatest(ctx context.Context, userID string) (*models.LocationSample, error)
}

type UserStore interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	Save(ctx context.Context, user *models.User) error
}

type AlertStore interface {
	Create(ctx context.Context, alert *models.GeofenceAlert) error
	ListByUser(ctx context.Context, userID string, limit int) ([]models.GeofenceAlert, error)
	ListSince(ctx context.Context, since time.Time) ([]models.GeofenceAlert, error)
}

// Stores bundles everything the handlers and services need.
type Stores struct {
	Calls     CallStore
	Locations LocationStore
	Users     UserStore
	Alerts    AlertStore
}
