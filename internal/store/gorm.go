package store

import (
	"context"
	"errors"
	"time"

	"CareHive/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AutoMigrate creates or updates the schema for all CareHive tables.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.CallRecord{},
		&models.LocationSample{},
		&models.GeofenceAlert{},
	)
}

// NewGormStores wires every store onto one gorm handle.
func NewGormStores(db *gorm.DB) *Stores {
	return &Stores{
		Calls:     &gormCallStore{db: db},
		Locations: &gormLocationStore{db: db},
		Users:     &gormUserStore{db: db},
		Alerts:    &gormAlertStore{db: db},
	}
}

type gormCallStore struct {
	db *gorm.DB
}

func (s *gormCallStore) Create(ctx context.Context, rec *models.CallRecord) error {
	return s.db.WithContext(ctx).Create(rec).Error
}

func (s *gormCallStore) Update(ctx context.Context, callID string, fields map[string]interface{}) error {
	return s.db.WithContext(ctx).
		Model(&models.CallRecord{}).
		Where("call_id = ?", callID).
		Updates(fields).Error
}

func (s *gormCallStore) Find(ctx context.Context, callID string) (*models.CallRecord, error) {
	var rec models.CallRecord
	if err := s.db.WithContext(ctx).First(&rec, "call_id = ?", callID).Error; err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *gormCallStore) HistoryFor(ctx context.Context, userID string, limit, offset int) ([]models.CallRecord, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	q := s.db.WithContext(ctx).
		Model(&models.CallRecord{}).
		Where("caller_id = ? OR callee_id = ?", userID, userID)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var recs []models.CallRecord
	err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&recs).Error
	return recs, total, err
}

type gormLocationStore struct {
	db *gorm.DB
}

func (s *gormLocationStore) Upsert(ctx context.Context, sample *models.LocationSample) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			UpdateAll: true,
		}).
		Create(sample).Error
}

func (s *gormLocationStore) FindLatest(ctx context.Context, userID string) (*models.LocationSample, error) {
	var sample models.LocationSample
	err := s.db.WithContext(ctx).First(&sample, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

type gormUserStore struct {
	db *gorm.DB
}

func (s *gormUserStore) FindByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *gormUserStore) Save(ctx context.Context, user *models.User) error {
	return s.db.WithContext(ctx).Save(user).Error
}

type gormAlertStore struct {
	db *gorm.DB
}

func (s *gormAlertStore) Create(ctx context.Context, alert *models.GeofenceAlert) error {
	return s.db.WithContext(ctx).Create(alert).Error
}

func (s *gormAlertStore) ListByUser(ctx context.Context, userID string, limit int) ([]models.GeofenceAlert, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var alerts []models.GeofenceAlert
	err := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&alerts).Error
	return alerts, err
}

func (s *gormAlertStore) ListSince(ctx context.Context, since time.Time) ([]models.GeofenceAlert, error) {
	var alerts []models.GeofenceAlert
	err := s.db.WithContext(ctx).
		Where("created_at >= ?", since).
		Order("created_at ASC").
		Find(&alerts).Error
	return alerts, err
}
