// Package status provides a thread-safe status tracker for the panel-power
// daemon. It is written by the run loop and read by HTTP handlers.
package status

import (
	"sync"
	"time"

	"github.com/sweeney/panel-power/internal/logic"
)

// Config contains daemon configuration for display.
type Config struct {
	PowerTickMs   int64
	BatteryTickMs int64
	HeartbeatMs   int64
	SleepTicks    uint16
	RestartTicks  uint16
	ShutdownTicks uint16
	Broker        string
	HTTPPort      string
}

// PowerInfo is the sequencer's externally visible state.
type PowerInfo struct {
	State      logic.PowerState
	Pending    logic.PendingAction
	PressTicks uint16
	Latched    bool
}

// Snapshot is a point-in-time view of daemon state.
// It is a value type, safe to use after the lock is released.
type Snapshot struct {
	Power         PowerInfo
	Battery       logic.Reading
	HaveBattery   bool // false until the first battery tick
	Counts        logic.EventCounts
	StartTime     time.Time
	Now           time.Time
	MQTTConnected bool
	Config        Config
}

// Uptime returns the duration since the daemon started.
func (s Snapshot) Uptime() time.Duration {
	return s.Now.Sub(s.StartTime)
}

// Tracker holds mutable daemon state behind an RWMutex.
type Tracker struct {
	mu   sync.RWMutex
	snap Snapshot
}

// NewTracker creates a Tracker with the given start time and config.
func NewTracker(startTime time.Time, cfg Config) *Tracker {
	return &Tracker{
		snap: Snapshot{
			StartTime: startTime,
			Config:    cfg,
			Power: PowerInfo{
				State:   logic.StateIdle,
				Pending: logic.PendingNone,
			},
			Battery: logic.Reading{Percent: -1},
		},
	}
}

// UpdatePower records the sequencer state. Called from runLoop on every
// power tick.
func (t *Tracker) UpdatePower(p PowerInfo) {
	t.mu.Lock()
	t.snap.Power = p
	t.mu.Unlock()
}

// UpdateBattery records the latest battery reading.
func (t *Tracker) UpdateBattery(r logic.Reading) {
	t.mu.Lock()
	t.snap.Battery = r
	t.snap.HaveBattery = true
	t.mu.Unlock()
}

// SetCounts records event counts.
func (t *Tracker) SetCounts(counts logic.EventCounts) {
	t.mu.Lock()
	t.snap.Counts = counts
	t.mu.Unlock()
}

// SetMQTTConnected sets the MQTT connection status.
func (t *Tracker) SetMQTTConnected(connected bool) {
	t.mu.Lock()
	t.snap.MQTTConnected = connected
	t.mu.Unlock()
}

// Snapshot returns a point-in-time copy of the daemon state.
// The Now field is set to the current time at the moment of the call.
func (t *Tracker) Snapshot() Snapshot {
	t.mu.RLock()
	s := t.snap
	t.mu.RUnlock()
	s.Now = time.Now()
	return s
}
