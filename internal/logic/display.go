package logic

import "math"

// DisplaySmoother turns (smoothed voltage, charging) into a percentage that
// rises quickly, falls slowly, and freezes for a while after the charger is
// removed to hide the voltage cliff caused by the charger's internal
// resistance.
type DisplaySmoother struct {
	cfg DisplayConfig

	shown int
	set   bool

	lastDecrement Millis
	relax         window
	wasCharging   bool
	target        int
}

// NewDisplaySmoother creates a smoother with no percentage shown yet.
func NewDisplaySmoother(cfg DisplayConfig) *DisplaySmoother {
	return &DisplaySmoother{cfg: cfg}
}

// Update computes the shown percentage for this tick.
func (s *DisplaySmoother) Update(ema float64, charging bool, now Millis) int {
	s.relax.expire(now)
	if s.wasCharging && !charging {
		s.relax.openAt(now, s.cfg.Relax)
		s.lastDecrement = now
	}
	s.wasCharging = charging

	relaxing := s.Relaxing(now)
	full := s.cfg.RestingFullVolts
	if charging || relaxing {
		full = s.cfg.ChargingFullVolts
	}
	s.target = percentOf(ema, s.cfg.EmptyVolts, full)

	if !s.set {
		s.shown = s.target
		s.set = true
		return s.shown
	}

	delta := s.target - s.shown
	switch {
	case delta > 0:
		if delta > s.cfg.RiseCap {
			delta = s.cfg.RiseCap
		}
		s.shown += delta
	case delta < 0:
		if relaxing {
			break
		}
		if now.Sub(s.lastDecrement) < uint32(s.cfg.DecrementInterval.Milliseconds()) {
			break
		}
		if delta < -s.cfg.DropCap {
			delta = -s.cfg.DropCap
		}
		s.shown += delta
		s.lastDecrement = now
	}
	return s.shown
}

// percentOf maps v linearly onto [empty, full], rounded and clamped to 0..100.
func percentOf(v, empty, full float64) int {
	p := int(math.Floor((v-empty)*100/(full-empty) + 0.5))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Shown returns the displayed percentage; ok is false before the first update.
func (s *DisplaySmoother) Shown() (int, bool) {
	return s.shown, s.set
}

// Target returns the unsmoothed percentage computed on the last update.
func (s *DisplaySmoother) Target() int {
	return s.target
}

// Relaxing reports whether now is inside the post-unplug freeze.
func (s *DisplaySmoother) Relaxing(now Millis) bool {
	return s.relax.active(now)
}
