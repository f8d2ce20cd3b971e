package models

import "time"

// LocationSample keeps exactly one current position per user, overwritten
// in place. Reference coordinates ("home") are fixed on the first-ever
// sample and only change through an explicit reset.
type LocationSample struct {
	UserID    string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	Latitude  float64   `json:"latitude"`  // 原始上报
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	Timestamp time.Time `json:"timestamp"`

	// 噪声过滤后的稳定位置
	AcceptedLatitude  float64 `json:"accepted_latitude"`
	AcceptedLongitude float64 `json:"accepted_longitude"`

	ReferenceLatitude  float64 `json:"reference_latitude"`
	ReferenceLongitude float64 `json:"reference_longitude"`

	// 始终由 distance(reference, accepted) > safeRadius 推导
	OutsideRadius bool `json:"outside_radius"`

	UpdatedAt time.Time `json:"updated_at"`
}
