package geofence

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// 噪声阈值参数。上报的 accuracy 对单样本噪声的约束并不紧，
// 按比例缩放再加下限，精度差时不误报静止、精度好时不过度抑制。
const (
	noiseAccuracyFactor = 0.3
	noiseFloorMeters    = 3.0
)

// 过滤状态上限与闲置回收时间；被淘汰的用户下一个定位直接采纳
const (
	filterStateSize = 10000
	filterStateTTL  = 24 * time.Hour
)

type lastFix struct {
	lat float64
	lng float64
}

// FilterResult is the outcome of one raw GPS sample.
type FilterResult struct {
	AcceptedLat    float64
	AcceptedLng    float64
	IsRealMovement bool
}

// LocationFilter rejects GPS jitter: a new fix closer to the last
// accepted fix than the noise threshold re-emits the previous stable
// position unchanged.
type LocationFilter struct {
	state *expirable.LRU[string, lastFix]
}

func NewLocationFilter() *LocationFilter {
	return &LocationFilter{
		state: expirable.NewLRU[string, lastFix](filterStateSize, nil, filterStateTTL),
	}
}

// Accept decides whether a raw fix is genuine movement.
func (f *LocationFilter) Accept(userID string, rawLat, rawLng, accuracyMeters float64) FilterResult {
	threshold := accuracyMeters * noiseAccuracyFactor
	if threshold < noiseFloorMeters {
		threshold = noiseFloorMeters
	}

	prev, ok := f.state.Get(userID)
	if !ok {
		// 首个定位直接采纳
		f.state.Add(userID, lastFix{lat: rawLat, lng: rawLng})
		return FilterResult{AcceptedLat: rawLat, AcceptedLng: rawLng, IsRealMovement: true}
	}

	if HaversineMeters(prev.lat, prev.lng, rawLat, rawLng) < threshold {
		// 抖动，维持上一个稳定位置
		return FilterResult{AcceptedLat: prev.lat, AcceptedLng: prev.lng, IsRealMovement: false}
	}

	f.state.Add(userID, lastFix{lat: rawLat, lng: rawLng})
	return FilterResult{AcceptedLat: rawLat, AcceptedLng: rawLng, IsRealMovement: true}
}

// HasState reports whether the user has an in-memory accepted fix.
func (f *LocationFilter) HasState(userID string) bool {
	_, ok := f.state.Get(userID)
	return ok
}

// Seed restores the last accepted fix, e.g. from storage after restart.
func (f *LocationFilter) Seed(userID string, lat, lng float64) {
	f.state.Add(userID, lastFix{lat: lat, lng: lng})
}

// Reset drops the user's filter state.
func (f *LocationFilter) Reset(userID string) {
	f.state.Remove(userID)
}
