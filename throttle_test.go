package defrag

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestThrottle_SpeedHundredDisables(t *testing.T) {
	th := NewThrottle(100)
	slept := time.Duration(-1)
	th.sleep = func(d time.Duration) { slept = d }

	th.Tick()
	require.Equal(t, time.Duration(-1), slept, "speed 100 must never call sleep")
}

func TestThrottle_DelayClampedToThirtySeconds(t *testing.T) {
	th := NewThrottle(1)

	base := time.Unix(0, 0)
	th.startTime = base
	th.lastCheckpoint = base
	th.now = func() time.Time { return base.Add(time.Hour) }

	var slept time.Duration
	th.sleep = func(d time.Duration) { slept = d }

	th.Tick()
	require.Equal(t, maxThrottleDelay, slept)
}

func TestThrottle_NoDelayWhenBehindSchedule(t *testing.T) {
	th := NewThrottle(50)

	base := time.Unix(0, 0)
	th.startTime = base
	// Only the last 10 of the 60 elapsed minutes count as working time:
	// 10m*100/50 - 60m is negative, so the delay clamps to zero.
	th.lastCheckpoint = base.Add(50 * time.Minute)
	th.now = func() time.Time { return base.Add(time.Hour) }

	var slept time.Duration
	th.sleep = func(d time.Duration) { slept = d }

	th.Tick()
	require.Equal(t, time.Duration(0), slept)
}
