package logic

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rawTrendConfig makes the EMA follow the input exactly so tests can script
// the smoothed voltage directly.
func rawTrendConfig() TrendConfig {
	cfg := DefaultTrendConfig()
	cfg.Alpha = 1
	return cfg
}

// feed sends volts at start, start+step, ... and returns the last inference.
func feed(t *testing.T, e *TrendEstimator, start Millis, step time.Duration, volts ...float64) ChargeInference {
	t.Helper()
	var inf ChargeInference
	for i, v := range volts {
		var ok bool
		inf, ok = e.Update(v, start.Add(time.Duration(i)*step))
		require.True(t, ok, "sample %d rejected", i)
	}
	return inf
}

func TestTrendSeedsEMAWithFirstSample(t *testing.T) {
	e := NewTrendEstimator(DefaultTrendConfig())

	inf, ok := e.Update(3.7, 0)
	require.True(t, ok)
	assert.InDelta(t, 3.7, inf.EMA, 1e-9)
	assert.False(t, inf.Charging)
	assert.InDelta(t, 0, inf.DeltaMillivolts, 1e-9)

	inf, _ = e.Update(3.8, 1000)
	assert.InDelta(t, 3.715, inf.EMA, 1e-9)
}

func TestTrendRejectsFailedReads(t *testing.T) {
	e := NewTrendEstimator(DefaultTrendConfig())
	e.Update(3.9, 0)

	for _, v := range []float64{0, -1, 0.05, math.NaN(), math.Inf(1)} {
		inf, ok := e.Update(v, 1000)
		assert.False(t, ok, "sample %v should be rejected", v)
		assert.InDelta(t, 3.9, inf.EMA, 1e-9)
	}
	assert.Equal(t, 1, e.hist.len(), "rejected samples must not enter history")
}

func TestTrendDetectsPlug(t *testing.T) {
	e := NewTrendEstimator(rawTrendConfig())

	inf := feed(t, e, 0, time.Second, 3.70, 3.70, 3.70, 3.70, 3.75)

	assert.True(t, inf.Charging)
	assert.True(t, inf.Locked)
	assert.Equal(t, Millis(4000+90000), inf.LockUntil)
	assert.InDelta(t, 50, inf.DeltaMillivolts, 1e-6)
}

func TestTrendUsesOldestWhenHistoryIsShort(t *testing.T) {
	e := NewTrendEstimator(rawTrendConfig())

	inf := feed(t, e, 0, time.Second, 3.70, 3.76)

	assert.True(t, inf.Charging, "a rise within less than one window still counts against the oldest sample")
	assert.InDelta(t, 60, inf.DeltaMillivolts, 1e-6)
}

func TestTrendIgnoresNoise(t *testing.T) {
	e := NewTrendEstimator(rawTrendConfig())

	volts := []float64{3.80, 3.81, 3.79, 3.82, 3.78, 3.80, 3.81, 3.79, 3.80, 3.82, 3.78}
	for i, v := range volts {
		inf, _ := e.Update(v, Millis(i*1000))
		assert.False(t, inf.Charging, "sample %d", i)
		assert.False(t, inf.Locked, "sample %d", i)
	}
}

func TestTrendLockHoldsThroughRelaxation(t *testing.T) {
	e := NewTrendEstimator(rawTrendConfig())
	feed(t, e, 0, time.Second, 3.70, 3.70, 3.70, 3.70, 3.75)

	// Voltage sags well past the unplug threshold but the lock holds.
	for now := Millis(5000); now < 94000; now += 1000 {
		inf, _ := e.Update(3.65, now)
		require.True(t, inf.Charging, "flipped inside lock at %d", now)
		require.True(t, inf.Locked)
	}

	// Lock expired; flat voltage is no reason to change.
	inf, _ := e.Update(3.65, 94000)
	assert.True(t, inf.Charging)
	assert.False(t, inf.Locked)

	// A real drop now flips it and starts a new lock.
	inf, _ = e.Update(3.55, 95000)
	assert.False(t, inf.Charging)
	assert.True(t, inf.Locked)
	assert.Equal(t, Millis(95000+90000), inf.LockUntil)
}

func TestTrendCannotFlipTwiceInOneLock(t *testing.T) {
	e := NewTrendEstimator(rawTrendConfig())
	feed(t, e, 0, time.Second, 3.70, 3.70, 3.70, 3.70, 3.80)
	require.True(t, e.Charging())

	flips := 0
	prev := true
	volts := []float64{3.60, 3.90, 3.50, 4.00, 3.40, 4.10}
	for i := 0; i < 80; i++ {
		inf, _ := e.Update(volts[i%len(volts)], Millis(5000+i*1000))
		if inf.Charging != prev {
			flips++
			prev = inf.Charging
		}
	}
	assert.Zero(t, flips)
}

func TestTrendAcrossClockWrap(t *testing.T) {
	e := NewTrendEstimator(rawTrendConfig())
	start := Millis(math.MaxUint32 - 2000)

	inf := feed(t, e, start, time.Second, 3.70, 3.70, 3.70, 3.70, 3.75)
	require.True(t, inf.Charging)
	assert.Equal(t, start.Add(4*time.Second+90*time.Second), inf.LockUntil)

	inf, _ = e.Update(3.60, start.Add(5*time.Second))
	assert.True(t, inf.Charging)
	assert.True(t, inf.Locked)

	inf, _ = e.Update(3.60, start.Add(95*time.Second))
	assert.False(t, inf.Locked)
}

func TestTrendLockStaysExpiredAfterLongGap(t *testing.T) {
	e := NewTrendEstimator(rawTrendConfig())
	inf := feed(t, e, 0, time.Second, 3.70, 3.70, 3.70, 3.70, 3.75)
	require.True(t, inf.Charging)
	require.Equal(t, Millis(94000), inf.LockUntil)

	// More than 2^31 ms past the deadline, a naive signed comparison reads
	// the lock as active again.
	later := inf.LockUntil + 1<<31 + 1000
	inf, _ = e.Update(3.75, later)
	assert.False(t, inf.Locked)
	assert.True(t, inf.Charging)

	inf, _ = e.Update(3.45, later+1000)
	assert.False(t, inf.Charging, "unplug must be seen once the lock has run out")
	assert.True(t, inf.Locked)
	assert.InDelta(t, -300, inf.DeltaMillivolts, 1e-6)
}

func TestTrendLockExpiresAcrossSingleLongGap(t *testing.T) {
	e := NewTrendEstimator(rawTrendConfig())
	feed(t, e, 0, time.Second, 3.70, 3.70, 3.70, 3.70, 3.75)

	inf, _ := e.Update(3.45, 94000+1<<31+1000)
	assert.False(t, inf.Charging)
}

func TestTrendConfigValidate(t *testing.T) {
	assert.NoError(t, DefaultTrendConfig().Validate())

	bad := DefaultTrendConfig()
	bad.Alpha = 0
	assert.Error(t, bad.Validate())

	bad = DefaultTrendConfig()
	bad.Window = 0
	assert.Error(t, bad.Validate())

	bad = DefaultTrendConfig()
	bad.UnplugMillivolts = -1
	assert.Error(t, bad.Validate())
}
