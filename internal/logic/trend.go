package logic

import "math"

// ChargeInference is the estimator's answer for one sample.
type ChargeInference struct {
	Charging        bool
	LockUntil       Millis
	Locked          bool // true while inside the lock window
	EMA             float64
	DeltaMillivolts float64
}

// TrendEstimator infers "charging" from the smoothed voltage trend alone.
// The inference is sticky: it only flips on a large enough delta, and once
// flipped it holds for the lock duration so post-unplug relaxation cannot be
// read as another plug event.
type TrendEstimator struct {
	cfg TrendConfig

	ema    float64
	seeded bool
	hist   history

	charging  bool
	lock      window
	lastDelta float64
}

// NewTrendEstimator creates an estimator that starts out "not charging".
func NewTrendEstimator(cfg TrendConfig) *TrendEstimator {
	return &TrendEstimator{cfg: cfg}
}

// Update feeds one raw voltage sample taken at now. Samples at or below
// MinValidVolts (and NaN/Inf) are failed reads: they are dropped, the EMA is
// kept, and ok is false.
func (e *TrendEstimator) Update(volts float64, now Millis) (inf ChargeInference, ok bool) {
	if !e.valid(volts) {
		return e.snapshot(now), false
	}

	if !e.seeded {
		e.ema = volts
		e.seeded = true
	}
	e.ema += e.cfg.Alpha * (volts - e.ema)
	e.hist.push(e.ema, now)

	e.infer(now)
	return e.snapshot(now), true
}

func (e *TrendEstimator) valid(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return false
	}
	return v > e.cfg.MinValidVolts
}

func (e *TrendEstimator) infer(now Millis) {
	ref, ok := e.hist.lookback(now, e.cfg.Window)
	if !ok {
		return
	}
	e.lastDelta = (e.ema - ref.volts) * 1000

	e.lock.expire(now)
	if e.locked(now) {
		return
	}

	switch {
	case e.lastDelta > e.cfg.PlugMillivolts:
		e.setCharging(true, now)
	case e.lastDelta < -e.cfg.UnplugMillivolts:
		e.setCharging(false, now)
	}
}

func (e *TrendEstimator) setCharging(charging bool, now Millis) {
	e.charging = charging
	e.lock.openAt(now, e.cfg.Lock)
}

func (e *TrendEstimator) locked(now Millis) bool {
	return e.lock.active(now)
}

func (e *TrendEstimator) snapshot(now Millis) ChargeInference {
	return ChargeInference{
		Charging:        e.charging,
		LockUntil:       e.lock.until(),
		Locked:          e.locked(now),
		EMA:             e.ema,
		DeltaMillivolts: e.lastDelta,
	}
}

// EMA returns the smoothed voltage and whether any valid sample has been seen.
func (e *TrendEstimator) EMA() (float64, bool) {
	return e.ema, e.seeded
}

// Charging returns the current sticky inference.
func (e *TrendEstimator) Charging() bool {
	return e.charging
}
