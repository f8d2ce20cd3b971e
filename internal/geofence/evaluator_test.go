package geofence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluatorFirstFixAnchorsReference(t *testing.T) {
	e := NewGeofenceEvaluator()

	ev := e.Evaluate("alice", 39.9, 116.4, 100)
	assert.True(t, ev.FirstFix)
	assert.False(t, ev.Outside)
	assert.False(t, ev.JustBreached)
	assert.Equal(t, 39.9, ev.ReferenceLat)
	assert.Equal(t, 116.4, ev.ReferenceLng)
	assert.Zero(t, ev.DistanceMeters)
}

func TestEvaluatorBreachIsEdgeTriggered(t *testing.T) {
	e := NewGeofenceEvaluator()
	e.Evaluate("alice", 0, 0, 5)

	// 0.002 度经度约 222 米，半径 5 米，明显越界
	ev := e.Evaluate("alice", 0, 0.002, 5)
	assert.True(t, ev.Outside)
	assert.True(t, ev.JustBreached)
	assert.InDelta(t, 222, ev.DistanceMeters, 2)

	// 仍在外面，不再触发边沿
	ev = e.Evaluate("alice", 0, 0.0021, 5)
	assert.True(t, ev.Outside)
	assert.False(t, ev.JustBreached)

	// 回到安全区
	ev = e.Evaluate("alice", 0, 0, 5)
	assert.False(t, ev.Outside)
	assert.False(t, ev.JustBreached)

	// 再次出界是新的边沿
	ev = e.Evaluate("alice", 0, 0.002, 5)
	assert.True(t, ev.JustBreached)
}

func TestEvaluatorBoundaryIsInside(t *testing.T) {
	e := NewGeofenceEvaluator()
	e.Evaluate("alice", 0, 0, 100)

	// 严格大于才算出界，距离正好等于半径仍在圈内
	d := 100 * degPerMeter
	ev := e.Evaluate("alice", d, 0, HaversineMeters(0, 0, d, 0))
	assert.False(t, ev.Outside)
}

func TestEvaluatorReferenceDoesNotDrift(t *testing.T) {
	e := NewGeofenceEvaluator()
	e.Evaluate("alice", 0, 0, 100)

	// 参考点固定在首个定位，不随后续样本移动
	e.Evaluate("alice", 0, 0.001, 100)
	ev := e.Evaluate("alice", 0, 0.002, 100)
	assert.Equal(t, 0.0, ev.ReferenceLat)
	assert.Equal(t, 0.0, ev.ReferenceLng)
	assert.InDelta(t, 222, ev.DistanceMeters, 2)
}

func TestEvaluatorSeedRestoresBreachFlag(t *testing.T) {
	e := NewGeofenceEvaluator()

	// 重启恢复：已处于界外的用户不再触发边沿
	e.Seed("alice", 0, 0, true)
	ev := e.Evaluate("alice", 0, 0.002, 5)
	assert.True(t, ev.Outside)
	assert.False(t, ev.JustBreached)

	e.Reset("alice")
	ev = e.Evaluate("alice", 0, 0.002, 5)
	assert.True(t, ev.FirstFix, "reset re-anchors on the next fix")
	assert.False(t, ev.Outside)
}
