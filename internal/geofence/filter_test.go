package geofence

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// 赤道附近 1 米约等于的纬度增量
const degPerMeter = 1.0 / 111194.9

func TestFilterFirstFixAccepted(t *testing.T) {
	f := NewLocationFilter()

	r := f.Accept("alice", 39.9, 116.4, 50)
	assert.True(t, r.IsRealMovement)
	assert.Equal(t, 39.9, r.AcceptedLat)
	assert.Equal(t, 116.4, r.AcceptedLng)
}

func TestFilterRejectsJitterWithinThreshold(t *testing.T) {
	f := NewLocationFilter()
	f.Accept("alice", 0, 0, 100)

	// accuracy=100 时阈值为 30 米，20 米的跳动是噪声
	r := f.Accept("alice", 20*degPerMeter, 0, 100)
	assert.False(t, r.IsRealMovement)
	assert.Equal(t, 0.0, r.AcceptedLat, "stable position is re-emitted")
	assert.Equal(t, 0.0, r.AcceptedLng)

	// 35 米是真实移动
	r = f.Accept("alice", 35*degPerMeter, 0, 100)
	assert.True(t, r.IsRealMovement)
	assert.InDelta(t, 35*degPerMeter, r.AcceptedLat, 1e-12)
}

func TestFilterThresholdFloor(t *testing.T) {
	f := NewLocationFilter()
	f.Accept("alice", 0, 0, 1) // accuracy*0.3 = 0.3m，下限 3m 生效

	r := f.Accept("alice", 2*degPerMeter, 0, 1)
	assert.False(t, r.IsRealMovement)

	r = f.Accept("alice", 4*degPerMeter, 0, 1)
	assert.True(t, r.IsRealMovement)
}

func TestFilterJitterDoesNotMoveBaseline(t *testing.T) {
	f := NewLocationFilter()
	f.Accept("alice", 0, 0, 100)

	// 连续小跳动不能通过蠕变累积成位移
	for i := 0; i < 10; i++ {
		r := f.Accept("alice", 25*degPerMeter, 0, 100)
		assert.False(t, r.IsRealMovement)
	}
}

func TestFilterPerUserState(t *testing.T) {
	f := NewLocationFilter()
	f.Accept("alice", 0, 0, 100)

	// 另一个用户的首个定位不受 alice 的基线影响
	r := f.Accept("bob", 10*degPerMeter, 0, 100)
	assert.True(t, r.IsRealMovement)
}

func TestFilterSeedAndReset(t *testing.T) {
	f := NewLocationFilter()
	assert.False(t, f.HasState("alice"))

	f.Seed("alice", 0, 0)
	assert.True(t, f.HasState("alice"))
	r := f.Accept("alice", 5*degPerMeter, 0, 100)
	assert.False(t, r.IsRealMovement, "seeded baseline filters jitter")

	f.Reset("alice")
	r = f.Accept("alice", 5*degPerMeter, 0, 100)
	assert.True(t, r.IsRealMovement, "after reset the next fix is accepted outright")
}
