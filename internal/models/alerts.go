package models

import "time"

// Geofence Alert（越界警报）
// 每次 inside→outside 跳变只创建一条，之后不再修改；
// 看护端的确认/忽略是客户端状态。
type GeofenceAlert struct {
	AlertID     string  `gorm:"primaryKey;type:varchar(64)" json:"alert_id"`
	UserID      string  `gorm:"type:varchar(64);index" json:"user_id"`
	PatientName string  `json:"patient_name"`
	Distance    float64 `json:"distance"`
	SafeRadius  float64 `json:"safe_radius"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`

	CreatedAt time.Time `json:"created_at"`
}
