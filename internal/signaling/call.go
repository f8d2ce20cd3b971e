package signaling

import (
	"context"
	"sync"
	"time"

	"CareHive/internal/models"
	"CareHive/internal/store"
	"CareHive/pkg/errors"
	"CareHive/pkg/logger"
	"CareHive/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Notifier delivers envelopes to connections or users. *Hub satisfies it;
// tests substitute a recorder.
type Notifier interface {
	SendToConn(connID string, env *Envelope) bool
	SendToUser(userID string, env *Envelope) bool
}

// callSession is the in-memory state of one call attempt. The durable
// record lives in the call store; the session exists so transitions can
// be validated without a read round-trip and so racing signals resolve
// first-wins under one lock.
type callSession struct {
	callID     string
	callerID   string
	callerName string
	calleeID   string
	roomName   string
	status     models.CallStatus
	startedAt  time.Time
	createdAt  time.Time
}

// CallCoordinator runs the per-call state machine:
// ringing -> {accepted -> ended, rejected, cancelled, missed}.
type CallCoordinator struct {
	mu       sync.Mutex
	sessions map[string]*callSession

	calls    store.CallStore
	presence *PresenceRegistry
	notify   Notifier
}

func NewCallCoordinator(calls store.CallStore, presence *PresenceRegistry, notify Notifier) *CallCoordinator {
	return &CallCoordinator{
		sessions: make(map[string]*callSession),
		calls:    calls,
		presence: presence,
		notify:   notify,
	}
}

// Initiate starts a call attempt. An offline callee fails with UserOffline
// signaled to the caller only, and no record is created. A record-store
// failure is reported to the caller but does not block ringing either side.
func (cc *CallCoordinator) Initiate(ctx context.Context, callerConnID string, p CallInitiatePayload) {
	calleeConnID, online := cc.presence.LookupConn(p.CalleeID)
	if !online {
		cc.notify.SendToConn(callerConnID, NewEnvelope(EventCallError, ErrorPayload{
			Code:    errors.CodeUserOffline,
			Message: "callee is offline",
		}))
		if m := metrics.Global(); m != nil {
			m.RecordCall("offline")
		}
		return
	}
	callee, _ := cc.presence.Lookup(calleeConnID)

	callID := uuid.NewString()
	roomName := "room-" + uuid.NewString()

	cc.mu.Lock()
	cc.sessions[callID] = &callSession{
		callID:     callID,
		callerID:   p.CallerID,
		callerName: p.CallerName,
		calleeID:   p.CalleeID,
		roomName:   roomName,
		status:     models.CallStatusRinging,
		createdAt:  time.Now(),
	}
	cc.mu.Unlock()

	rec := &models.CallRecord{
		CallID:     callID,
		CallerID:   p.CallerID,
		CallerName: p.CallerName,
		CallerRole: p.CallerRole,
		CalleeID:   p.CalleeID,
		CalleeName: callee.Name,
		CalleeRole: callee.Role,
		RoomName:   roomName,
		Status:     models.CallStatusRinging,
	}
	if err := cc.calls.Create(ctx, rec); err != nil {
		logger.Error("call record create failed", zap.String("call_id", callID), zap.Error(err))
		cc.notify.SendToConn(callerConnID, NewEnvelope(EventCallError, ErrorPayload{
			Code:    errors.CodeCallPersistence,
			Message: "call record could not be saved",
			CallID:  callID,
		}))
		// 信令继续，通话记录缺失不阻断双方振铃
	}

	cc.notify.SendToConn(callerConnID, NewEnvelope(EventCallRinging, CallRingingPayload{
		CallID:     callID,
		RoomName:   roomName,
		CalleeID:   p.CalleeID,
		CalleeName: callee.Name,
	}))
	cc.notify.SendToConn(calleeConnID, NewEnvelope(EventCallIncoming, CallIncomingPayload{
		CallID:     callID,
		RoomName:   roomName,
		CallerID:   p.CallerID,
		CallerName: p.CallerName,
		CallerRole: p.CallerRole,
	}))
}

// transition validates and applies a state change under the coordinator
// lock. It returns the session snapshot, or nil when the call is unknown
// or not in the required state (a stale signal).
func (cc *CallCoordinator) transition(callID string, require, next models.CallStatus) *callSession {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	sess, ok := cc.sessions[callID]
	if !ok || sess.status != require {
		return nil
	}
	sess.status = next
	if next == models.CallStatusAccepted {
		sess.startedAt = time.Now()
	}
	snapshot := *sess
	if next != models.CallStatusAccepted {
		// 终态会话出内存表，持久记录保留
		delete(cc.sessions, callID)
	}
	return &snapshot
}

func (cc *CallCoordinator) rejectStale(connID, callID string) {
	cc.notify.SendToConn(connID, NewEnvelope(EventCallError, ErrorPayload{
		Code:    errors.CodeCallAlreadyResolved,
		Message: "call already resolved",
		CallID:  callID,
	}))
}

func (cc *CallCoordinator) persist(ctx context.Context, connID, callID string, fields map[string]interface{}) {
	if err := cc.calls.Update(ctx, callID, fields); err != nil {
		logger.Error("call record update failed", zap.String("call_id", callID), zap.Error(err))
		cc.notify.SendToConn(connID, NewEnvelope(EventCallError, ErrorPayload{
			Code:    errors.CodeCallPersistence,
			Message: "call record could not be saved",
			CallID:  callID,
		}))
	}
}

// Accept transitions ringing -> accepted. A caller who went offline
// between ring and accept is tolerated silently.
func (cc *CallCoordinator) Accept(ctx context.Context, acceptorConnID string, p CallAcceptPayload) {
	sess := cc.transition(p.CallID, models.CallStatusRinging, models.CallStatusAccepted)
	if sess == nil {
		cc.rejectStale(acceptorConnID, p.CallID)
		return
	}

	cc.persist(ctx, acceptorConnID, p.CallID, map[string]interface{}{
		"status":     models.CallStatusAccepted,
		"started_at": sess.startedAt,
	})

	payload := CallStatusPayload{CallID: p.CallID, RoomName: sess.roomName}
	cc.notify.SendToUser(p.CallerID, NewEnvelope(EventCallAccepted, payload))
	cc.notify.SendToConn(acceptorConnID, NewEnvelope(EventCallAccepted, payload))
}

// Reject transitions ringing -> rejected and tells the caller if present.
func (cc *CallCoordinator) Reject(ctx context.Context, rejectorConnID string, p CallRejectPayload) {
	sess := cc.transition(p.CallID, models.CallStatusRinging, models.CallStatusRejected)
	if sess == nil {
		cc.rejectStale(rejectorConnID, p.CallID)
		return
	}

	cc.persist(ctx, rejectorConnID, p.CallID, map[string]interface{}{
		"status": models.CallStatusRejected,
	})
	cc.notify.SendToUser(p.CallerID, NewEnvelope(EventCallRejected, CallStatusPayload{CallID: p.CallID}))
	if m := metrics.Global(); m != nil {
		m.RecordCall("rejected")
	}
}

// Cancel is the caller's pre-answer abort; the callee is told if present.
func (cc *CallCoordinator) Cancel(ctx context.Context, callerConnID string, p CallCancelPayload) {
	sess := cc.transition(p.CallID, models.CallStatusRinging, models.CallStatusCancelled)
	if sess == nil {
		cc.rejectStale(callerConnID, p.CallID)
		return
	}

	cc.persist(ctx, callerConnID, p.CallID, map[string]interface{}{
		"status": models.CallStatusCancelled,
	})
	cc.notify.SendToUser(p.CalleeID, NewEnvelope(EventCallCancelled, CallStatusPayload{CallID: p.CallID}))
	if m := metrics.Global(); m != nil {
		m.RecordCall("cancelled")
	}
}

// End closes an accepted call and computes its duration.
func (cc *CallCoordinator) End(ctx context.Context, enderConnID string, p CallEndPayload) {
	sess := cc.endSession(p.CallID)
	if sess == nil {
		cc.rejectStale(enderConnID, p.CallID)
		return
	}

	now := time.Now()
	duration := 0
	if !sess.startedAt.IsZero() {
		duration = int(now.Sub(sess.startedAt).Seconds())
		if duration < 0 {
			duration = 0
		}
	}

	cc.persist(ctx, enderConnID, p.CallID, map[string]interface{}{
		"status":           models.CallStatusEnded,
		"ended_at":         now,
		"duration_seconds": duration,
	})
	cc.notify.SendToUser(p.OtherUserID, NewEnvelope(EventCallEnded, CallStatusPayload{
		CallID:          p.CallID,
		DurationSeconds: duration,
	}))
	if m := metrics.Global(); m != nil {
		m.RecordCall("ended")
	}
}

func (cc *CallCoordinator) endSession(callID string) *callSession {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	sess, ok := cc.sessions[callID]
	if !ok || sess.status != models.CallStatusAccepted {
		return nil
	}
	sess.status = models.CallStatusEnded
	snapshot := *sess
	delete(cc.sessions, callID)
	return &snapshot
}

// SweepStale cancels calls that have been ringing longer than timeout.
// Both parties get call:timeout; the record is closed as missed.
func (cc *CallCoordinator) SweepStale(ctx context.Context, timeout time.Duration) int {
	cutoff := time.Now().Add(-timeout)

	cc.mu.Lock()
	var stale []*callSession
	for id, sess := range cc.sessions {
		if sess.status == models.CallStatusRinging && sess.createdAt.Before(cutoff) {
			snapshot := *sess
			stale = append(stale, &snapshot)
			delete(cc.sessions, id)
		}
	}
	cc.mu.Unlock()

	for _, sess := range stale {
		if err := cc.calls.Update(ctx, sess.callID, map[string]interface{}{
			"status": models.CallStatusMissed,
		}); err != nil {
			logger.Error("missed call record update failed", zap.String("call_id", sess.callID), zap.Error(err))
		}
		env := NewEnvelope(EventCallTimeout, CallStatusPayload{CallID: sess.callID})
		cc.notify.SendToUser(sess.callerID, env)
		cc.notify.SendToUser(sess.calleeID, env)
		if m := metrics.Global(); m != nil {
			m.RecordCall("missed")
		}
	}
	return len(stale)
}

// ActiveSessions reports how many call attempts are in flight.
func (cc *CallCoordinator) ActiveSessions() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return len(cc.sessions)
}
