package geofence

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	evalStateSize = 10000
	evalStateTTL  = 24 * time.Hour
)

type fenceState struct {
	refLat     float64
	refLng     float64
	wasOutside bool
}

// Evaluation is the geofence verdict for one accepted fix.
type Evaluation struct {
	DistanceMeters float64
	Outside        bool
	// JustBreached 仅在 inside→outside 的那一次为 true
	JustBreached bool
	ReferenceLat float64
	ReferenceLng float64
	FirstFix     bool
}

// GeofenceEvaluator tracks each user's home reference point and
// edge-detects safe-radius breaches. The reference is pinned to the
// first fix ever seen for a user and only moves on an explicit reset.
type GeofenceEvaluator struct {
	state *expirable.LRU[string, fenceState]
}

func NewGeofenceEvaluator() *GeofenceEvaluator {
	return &GeofenceEvaluator{
		state: expirable.NewLRU[string, fenceState](evalStateSize, nil, evalStateTTL),
	}
}

// Evaluate compares the accepted fix against the user's reference.
// The very first fix fixes the reference and is inside by definition.
func (e *GeofenceEvaluator) Evaluate(userID string, lat, lng, safeRadiusMeters float64) Evaluation {
	st, ok := e.state.Get(userID)
	if !ok {
		e.state.Add(userID, fenceState{refLat: lat, refLng: lng})
		return Evaluation{ReferenceLat: lat, ReferenceLng: lng, FirstFix: true}
	}

	dist := HaversineMeters(st.refLat, st.refLng, lat, lng)
	outside := dist > safeRadiusMeters
	just := outside && !st.wasOutside

	st.wasOutside = outside
	e.state.Add(userID, st)

	return Evaluation{
		DistanceMeters: dist,
		Outside:        outside,
		JustBreached:   just,
		ReferenceLat:   st.refLat,
		ReferenceLng:   st.refLng,
	}
}

// HasState reports whether the user has an in-memory reference.
func (e *GeofenceEvaluator) HasState(userID string) bool {
	_, ok := e.state.Get(userID)
	return ok
}

// Seed restores a reference point and breach flag from storage.
func (e *GeofenceEvaluator) Seed(userID string, refLat, refLng float64, wasOutside bool) {
	e.state.Add(userID, fenceState{refLat: refLat, refLng: refLng, wasOutside: wasOutside})
}

// Reset drops the reference so the next fix re-anchors home.
func (e *GeofenceEvaluator) Reset(userID string) {
	e.state.Remove(userID)
}
