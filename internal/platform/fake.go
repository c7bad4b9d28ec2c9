package platform

import "context"

// FakePlatform records power actions for test assertions.
type FakePlatform struct {
	// Calls lists "sleep", "restart" and "halt" in the order invoked.
	Calls []string

	SleepError   error
	RestartError error
	HaltError    error

	// OnSleep, if set, runs while "asleep" (before Sleep returns).
	OnSleep func()
}

// NewFakePlatform creates a FakePlatform.
func NewFakePlatform() *FakePlatform {
	return &FakePlatform{}
}

// Sleep records the call.
func (f *FakePlatform) Sleep(ctx context.Context) error {
	f.Calls = append(f.Calls, "sleep")
	if f.OnSleep != nil {
		f.OnSleep()
	}
	return f.SleepError
}

// Restart records the call.
func (f *FakePlatform) Restart() error {
	f.Calls = append(f.Calls, "restart")
	return f.RestartError
}

// Halt records the call.
func (f *FakePlatform) Halt() error {
	f.Calls = append(f.Calls, "halt")
	return f.HaltError
}

// FakeBacklight records every level set.
type FakeBacklight struct {
	Levels []uint8
}

// SetBacklight records the level.
func (f *FakeBacklight) SetBacklight(level uint8) {
	f.Levels = append(f.Levels, level)
}

// BatterySignal is one recorded SignalBattery call.
type BatterySignal struct {
	Volts    float64
	Percent  int
	Charging bool
}

// FakeSignaler records battery signals.
type FakeSignaler struct {
	Signals []BatterySignal
	Err     error
}

// SignalBattery records the signal.
func (f *FakeSignaler) SignalBattery(volts float64, percent int, charging bool) error {
	if f.Err != nil {
		return f.Err
	}
	f.Signals = append(f.Signals, BatterySignal{Volts: volts, Percent: percent, Charging: charging})
	return nil
}
