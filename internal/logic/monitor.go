package logic

// Reading is the battery state after one monitor update.
type Reading struct {
	At              Millis
	Valid           bool // false if the sample was rejected
	Volts           float64
	EMA             float64
	DeltaMillivolts float64
	Charging        bool
	Locked          bool
	LockUntil       Millis
	Relaxing        bool
	Percent         int // -1 until the first valid sample
	Target          int
}

// BatteryMonitor chains the trend estimator and the display smoother in the
// order one battery tick needs them.
type BatteryMonitor struct {
	trend   *TrendEstimator
	display *DisplaySmoother
	last    Reading
}

// NewBatteryMonitor creates a monitor from the estimator and smoother configs.
func NewBatteryMonitor(trend TrendConfig, display DisplayConfig) *BatteryMonitor {
	return &BatteryMonitor{
		trend:   NewTrendEstimator(trend),
		display: NewDisplaySmoother(display),
		last:    Reading{Percent: -1},
	}
}

// Update processes one voltage sample and returns the new reading plus any
// CHARGING/DISCHARGING events. A rejected sample leaves every piece of state
// untouched and returns the previous reading with Valid=false.
func (m *BatteryMonitor) Update(volts float64, now Millis) (Reading, []Event) {
	wasCharging := m.trend.Charging()

	inf, ok := m.trend.Update(volts, now)
	if !ok {
		r := m.last
		r.At = now
		r.Valid = false
		r.Volts = volts
		return r, nil
	}

	percent := m.display.Update(inf.EMA, inf.Charging, now)

	m.last = Reading{
		At:              now,
		Valid:           true,
		Volts:           volts,
		EMA:             inf.EMA,
		DeltaMillivolts: inf.DeltaMillivolts,
		Charging:        inf.Charging,
		Locked:          inf.Locked,
		LockUntil:       inf.LockUntil,
		Relaxing:        m.display.Relaxing(now),
		Percent:         percent,
		Target:          m.display.Target(),
	}

	if inf.Charging == wasCharging {
		return m.last, nil
	}

	typ := EventDischarging
	if inf.Charging {
		typ = EventCharging
	}
	return m.last, []Event{{
		At:       now,
		Type:     typ,
		Percent:  percent,
		Charging: inf.Charging,
	}}
}

// Last returns the most recent valid reading.
func (m *BatteryMonitor) Last() Reading {
	return m.last
}
