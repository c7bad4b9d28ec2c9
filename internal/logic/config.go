package logic

import (
	"errors"
	"fmt"
	"time"
)

// PowerConfig holds the press-duration thresholds, in sequencer ticks.
type PowerConfig struct {
	SleepAt    uint16
	RestartAt  uint16
	ShutdownAt uint16

	// CountBootHold lets a hold that started before boot escalate to
	// Shutdown without first being released. Off by default: the boot
	// gesture must be released once before any escalation.
	CountBootHold bool
}

// DefaultPowerConfig returns the thresholds used on the reference panel.
func DefaultPowerConfig() PowerConfig {
	return PowerConfig{
		SleepAt:    10,
		RestartAt:  15,
		ShutdownAt: 20,
	}
}

// Validate checks that the thresholds are ascending and non-zero.
func (c PowerConfig) Validate() error {
	if c.SleepAt == 0 {
		return errors.New("power: sleep threshold must be > 0")
	}
	if !(c.SleepAt < c.RestartAt && c.RestartAt < c.ShutdownAt) {
		return fmt.Errorf("power: thresholds must ascend (sleep=%d restart=%d shutdown=%d)",
			c.SleepAt, c.RestartAt, c.ShutdownAt)
	}
	return nil
}

// TrendConfig tunes the charge trend estimator.
type TrendConfig struct {
	Alpha            float64 // EMA weight of the newest sample
	Window           time.Duration
	PlugMillivolts   float64
	UnplugMillivolts float64
	Lock             time.Duration

	// Samples at or below this are treated as failed reads.
	MinValidVolts float64
}

// DefaultTrendConfig returns the estimator defaults.
func DefaultTrendConfig() TrendConfig {
	return TrendConfig{
		Alpha:            0.15,
		Window:           4 * time.Second,
		PlugMillivolts:   35,
		UnplugMillivolts: 35,
		Lock:             90 * time.Second,
		MinValidVolts:    0.05,
	}
}

// Validate checks the estimator parameters.
func (c TrendConfig) Validate() error {
	if c.Alpha <= 0 || c.Alpha > 1 {
		return fmt.Errorf("trend: alpha %v out of range (0,1]", c.Alpha)
	}
	if c.Window <= 0 {
		return errors.New("trend: window must be > 0")
	}
	if c.PlugMillivolts <= 0 || c.UnplugMillivolts <= 0 {
		return errors.New("trend: thresholds must be > 0")
	}
	if c.Lock < 0 {
		return errors.New("trend: lock must be >= 0")
	}
	return nil
}

// DisplayConfig tunes the percentage smoother.
type DisplayConfig struct {
	EmptyVolts        float64
	ChargingFullVolts float64 // full reference while charging or relaxing
	RestingFullVolts  float64 // full reference at rest

	Relax             time.Duration
	DecrementInterval time.Duration
	RiseCap           int
	DropCap           int
}

// DefaultDisplayConfig returns the smoother defaults for a 1S Li-ion pack.
func DefaultDisplayConfig() DisplayConfig {
	return DisplayConfig{
		EmptyVolts:        3.30,
		ChargingFullVolts: 4.15,
		RestingFullVolts:  4.00,
		Relax:             60 * time.Second,
		DecrementInterval: 5 * time.Second,
		RiseCap:           3,
		DropCap:           1,
	}
}

// Validate checks the smoother parameters.
func (c DisplayConfig) Validate() error {
	if !(c.EmptyVolts < c.RestingFullVolts && c.RestingFullVolts <= c.ChargingFullVolts) {
		return fmt.Errorf("display: need empty < resting full <= charging full (%.2f, %.2f, %.2f)",
			c.EmptyVolts, c.RestingFullVolts, c.ChargingFullVolts)
	}
	if c.RiseCap <= 0 || c.DropCap <= 0 {
		return errors.New("display: rise and drop caps must be > 0")
	}
	if c.Relax < 0 || c.DecrementInterval < 0 {
		return errors.New("display: durations must be >= 0")
	}
	return nil
}
