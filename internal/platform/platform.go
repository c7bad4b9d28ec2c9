// Package platform provides the low-power, reset and backlight primitives the
// power controller invokes. It decides nothing: callers choose when.
package platform

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Platform carries out the irreversible power actions.
type Platform interface {
	// Sleep enters a light low-power state and blocks until the system wakes
	// (or ctx is done).
	Sleep(ctx context.Context) error

	// Restart performs a full reset.
	Restart() error

	// Halt enters the lowest-power state available.
	Halt() error
}

// Backlight sets display brightness, 0..100.
type Backlight interface {
	SetBacklight(level uint8)
}

// BatterySignaler broadcasts battery state to local consumers.
type BatterySignaler interface {
	SignalBattery(volts float64, percent int, charging bool) error
}

// NoBacklight is the default Backlight: it does nothing.
type NoBacklight struct{}

// SetBacklight does nothing.
func (NoBacklight) SetBacklight(uint8) {}

// DryRun logs power actions instead of performing them. Sleep returns
// immediately as if the system had woken straight away.
type DryRun struct {
	Log logrus.FieldLogger
}

// Sleep logs the request.
func (d DryRun) Sleep(ctx context.Context) error {
	d.Log.Info("dry-run: would suspend")
	return ctx.Err()
}

// Restart logs the request.
func (d DryRun) Restart() error {
	d.Log.Info("dry-run: would reboot")
	return nil
}

// Halt logs the request.
func (d DryRun) Halt() error {
	d.Log.Info("dry-run: would power off")
	return nil
}
