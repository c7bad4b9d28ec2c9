// Package logic contains the pure decision logic for power sequencing and
// battery state estimation.
// This package has NO external dependencies (no GPIO, ADC, D-Bus, MQTT, OS or time.Sleep).
// Time is always injectable via Millis parameters.
package logic

import "time"

// Millis is a timestamp from the single monotonic millisecond clock shared by
// every component. It wraps after ~49.7 days; all comparisons use wraparound-safe
// arithmetic.
type Millis uint32

// MillisSince converts a wall-clock instant into clock ticks relative to start.
func MillisSince(start, now time.Time) Millis {
	return Millis(uint32(now.Sub(start).Milliseconds()))
}

// Sub returns the milliseconds elapsed from earlier to m.
func (m Millis) Sub(earlier Millis) uint32 {
	return uint32(m - earlier)
}

// Add returns m advanced by d (truncated to whole milliseconds).
func (m Millis) Add(d time.Duration) Millis {
	return m + Millis(uint32(d.Milliseconds()))
}

// Before reports whether m is earlier than deadline.
// Valid while the two are less than 2^31 ms apart.
func (m Millis) Before(deadline Millis) bool {
	return int32(m-deadline) < 0
}

// PowerState is the state of the power sequencer.
type PowerState string

const (
	StateIdle          PowerState = "IDLE"
	StateKeyHeldAtBoot PowerState = "KEY_HELD_AT_BOOT"
	StateRunning       PowerState = "RUNNING"
	StateOff           PowerState = "OFF"
)

// PendingAction is the action that will fire when the button is released.
type PendingAction string

const (
	PendingNone    PendingAction = "NONE"
	PendingSleep   PendingAction = "SLEEP"
	PendingRestart PendingAction = "RESTART"
)

// Action is what a sequencer tick asks the caller to carry out.
type Action string

const (
	ActionNone     Action = "NONE"
	ActionSleep    Action = "SLEEP"
	ActionRestart  Action = "RESTART"
	ActionShutdown Action = "SHUTDOWN"
)

// EventType identifies a reportable power or battery event.
type EventType string

const (
	EventBoot        EventType = "BOOT"
	EventSleep       EventType = "SLEEP"
	EventWake        EventType = "WAKE"
	EventRestart     EventType = "RESTART"
	EventShutdown    EventType = "SHUTDOWN"
	EventCharging    EventType = "CHARGING"
	EventDischarging EventType = "DISCHARGING"
)

// Event represents a state change to be published.
type Event struct {
	// Wall-clock time; stamped by the caller, logic only knows At.
	Time       time.Time
	At         Millis
	Type       EventType
	State      PowerState
	PressTicks uint16
	Percent    int // -1 when no percentage has been shown yet
	Charging   bool
}

// EventForAction returns the event type reported for a sequencer action.
// ok is false for ActionNone.
func EventForAction(a Action) (EventType, bool) {
	switch a {
	case ActionSleep:
		return EventSleep, true
	case ActionRestart:
		return EventRestart, true
	case ActionShutdown:
		return EventShutdown, true
	}
	return "", false
}

// EventCounts tracks the number of each event type since startup.
type EventCounts struct {
	Sleep       int
	Wake        int
	Restart     int
	Shutdown    int
	Charging    int
	Discharging int
}

// HeartbeatData contains information for a heartbeat event.
type HeartbeatData struct {
	Timestamp time.Time
	Uptime    time.Duration
	Counts    EventCounts
}
