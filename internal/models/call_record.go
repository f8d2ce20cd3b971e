package models

import "time"

// CallStatus represents the status of a call
type CallStatus string

const (
	CallStatusRinging   CallStatus = "ringing"
	CallStatusAccepted  CallStatus = "accepted"
	CallStatusRejected  CallStatus = "rejected"
	CallStatusCancelled CallStatus = "cancelled"
	CallStatusEnded     CallStatus = "ended"
	CallStatusMissed    CallStatus = "missed" // ring timeout
)

// CallRecord is the append-only history of a call attempt. It is the only
// durable evidence of a call's outcome; signaling failures never roll it back.
type CallRecord struct {
	CallID     string     `gorm:"primaryKey;type:varchar(64)" json:"call_id"`
	CallerID   string     `gorm:"type:varchar(64);index" json:"caller_id"`
	CallerName string     `json:"caller_name"`
	CallerRole string     `gorm:"type:varchar(20)" json:"caller_role"`
	CalleeID   string     `gorm:"type:varchar(64);index" json:"callee_id"`
	CalleeName string     `json:"callee_name"`
	CalleeRole string     `gorm:"type:varchar(20)" json:"callee_role"`
	RoomName   string     `gorm:"type:varchar(100)" json:"room_name"` // 发起时生成，生命周期内不变
	Status     CallStatus `gorm:"type:varchar(20)" json:"status"`

	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int        `json:"duration_seconds"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
