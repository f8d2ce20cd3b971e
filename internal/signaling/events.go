package signaling

import (
	"encoding/json"
	"time"
)

// 入站事件
const (
	EventPing           = "ping"
	EventUserOnline     = "user:online"
	EventCallInitiate   = "call:initiate"
	EventCallAccept     = "call:accept"
	EventCallReject     = "call:reject"
	EventCallCancel     = "call:cancel"
	EventCallEnd        = "call:end"
	EventChatSend       = "chat:send"
	EventUsersGetOnline = "users:getOnline"
	EventGeofenceAck    = "geofence:acknowledge"
	EventGeofenceIgnore = "geofence:ignore"
)

// 出站事件
const (
	EventPong          = "pong"
	EventUsersOnline   = "users:online"
	EventCallRinging   = "call:ringing"
	EventCallIncoming  = "call:incoming"
	EventCallAccepted  = "call:accepted"
	EventCallRejected  = "call:rejected"
	EventCallCancelled = "call:cancelled"
	EventCallEnded     = "call:ended"
	EventCallTimeout   = "call:timeout"
	EventCallError     = "call:error"
	EventChatReceive   = "chat:receive"
	EventGeofenceAlert = "geofence:alert"
)

// Envelope 定义信令消息结构
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp int64           `json:"timestamp,omitempty"`
}

// NewEnvelope marshals data into a ready-to-send envelope.
func NewEnvelope(event string, data interface{}) *Envelope {
	var raw json.RawMessage
	if data != nil {
		raw, _ = json.Marshal(data)
	}
	return &Envelope{Event: event, Data: raw, Timestamp: time.Now().Unix()}
}

// Inbound payloads. Each event has a closed struct decoded at the
// connection boundary; unknown fields are dropped.

type UserOnlinePayload struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
}

type CallInitiatePayload struct {
	CallerID   string `json:"callerId"`
	CallerName string `json:"callerName"`
	CallerRole string `json:"callerRole"`
	CalleeID   string `json:"calleeId"`
}

type CallAcceptPayload struct {
	CallID   string `json:"callId"`
	RoomName string `json:"roomName"`
	CallerID string `json:"callerId"`
}

type CallRejectPayload struct {
	CallID   string `json:"callId"`
	CallerID string `json:"callerId"`
}

type CallCancelPayload struct {
	CallID   string `json:"callId"`
	CalleeID string `json:"calleeId"`
}

type CallEndPayload struct {
	CallID      string `json:"callId"`
	OtherUserID string `json:"otherUserId"`
}

type ChatSendPayload struct {
	ToUserID   string `json:"toUserId"`
	Text       string `json:"text"`
	SenderName string `json:"senderName"`
	SenderRole string `json:"senderRole"`
}

type GeofenceAckPayload struct {
	AlertID     string `json:"alertId"`
	UserID      string `json:"userId"`
	CaregiverID string `json:"caregiverId"`
}

// Outbound payloads.

type OnlineUser struct {
	UserID string `json:"userId"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Device string `json:"device,omitempty"`
}

type CallRingingPayload struct {
	CallID     string `json:"callId"`
	RoomName   string `json:"roomName"`
	CalleeID   string `json:"calleeId"`
	CalleeName string `json:"calleeName"`
}

type CallIncomingPayload struct {
	CallID     string `json:"callId"`
	RoomName   string `json:"roomName"`
	CallerID   string `json:"callerId"`
	CallerName string `json:"callerName"`
	CallerRole string `json:"callerRole"`
}

type CallStatusPayload struct {
	CallID          string `json:"callId"`
	RoomName        string `json:"roomName,omitempty"`
	DurationSeconds int    `json:"durationSeconds,omitempty"`
}

type ChatReceivePayload struct {
	FromUserID string `json:"fromUserId"`
	Text       string `json:"text"`
	SenderName string `json:"senderName"`
	SenderRole string `json:"senderRole"`
}

type GeofenceAlertPayload struct {
	AlertID     string  `json:"alertId"`
	UserID      string  `json:"userId"`
	PatientName string  `json:"patientName"`
	Distance    float64 `json:"distance"`
	SafeRadius  float64 `json:"safeRadius"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
}

type ErrorPayload struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	CallID  string `json:"callId,omitempty"`
}
