package status

import (
	"encoding/json"
	"math"
	"time"
)

// StatusJSON is the top-level JSON envelope for status output.
type StatusJSON struct {
	Status StatusInner `json:"status"`
}

// StatusInner contains the status details.
type StatusInner struct {
	Event         string       `json:"event,omitempty"`
	Reason        string       `json:"reason,omitempty"`
	Power         PowerJSON    `json:"power"`
	Battery       *BatteryJSON `json:"battery,omitempty"`
	UptimeSeconds int64        `json:"uptime_seconds"`
	StartTime     string       `json:"start_time"`
	Timestamp     string       `json:"timestamp"`
	MQTT          MQTTStatus   `json:"mqtt"`
	Counts        CountsJSON   `json:"event_counts"`
	Config        ConfigJSON   `json:"config"`
}

// PowerJSON reports the sequencer.
type PowerJSON struct {
	State      string `json:"state"`
	Pending    string `json:"pending"`
	PressTicks uint16 `json:"press_ticks"`
	Latched    bool   `json:"latched"`
}

// BatteryJSON reports the latest battery reading. Percent is null until the
// first valid sample.
type BatteryJSON struct {
	Valid    bool    `json:"valid"`
	Volts    float64 `json:"volts"`
	EMA      float64 `json:"ema_volts"`
	Percent  *int    `json:"percent"`
	Charging bool    `json:"charging"`
	Locked   bool    `json:"locked"`
	Relaxing bool    `json:"relaxing"`
}

// MQTTStatus reports MQTT connection state.
type MQTTStatus struct {
	Connected bool   `json:"connected"`
	Broker    string `json:"broker"`
}

// CountsJSON is the JSON representation of event counts.
type CountsJSON struct {
	Sleep       int `json:"sleep"`
	Wake        int `json:"wake"`
	Restart     int `json:"restart"`
	Shutdown    int `json:"shutdown"`
	Charging    int `json:"charging"`
	Discharging int `json:"discharging"`
}

// ConfigJSON is the JSON representation of daemon config.
type ConfigJSON struct {
	PowerTickMs   int64  `json:"power_tick_ms"`
	BatteryTickMs int64  `json:"battery_tick_ms"`
	HeartbeatMs   int64  `json:"heartbeat_ms"`
	SleepTicks    uint16 `json:"sleep_ticks"`
	RestartTicks  uint16 `json:"restart_ticks"`
	ShutdownTicks uint16 `json:"shutdown_ticks"`
	Broker        string `json:"broker"`
	HTTPPort      string `json:"http_port"`
}

// roundMV rounds volts to the nearest millivolt.
func roundMV(v float64) float64 {
	return math.Round(v*1000) / 1000
}

func buildBattery(snap Snapshot) *BatteryJSON {
	if !snap.HaveBattery {
		return nil
	}
	r := snap.Battery
	b := &BatteryJSON{
		Valid:    r.Valid,
		Volts:    roundMV(r.Volts),
		EMA:      roundMV(r.EMA),
		Charging: r.Charging,
		Locked:   r.Locked,
		Relaxing: r.Relaxing,
	}
	if r.Percent >= 0 {
		p := r.Percent
		b.Percent = &p
	}
	return b
}

func buildInner(snap Snapshot) StatusInner {
	state := string(snap.Power.State)
	if state == "" {
		state = "UNKNOWN"
	}
	pending := string(snap.Power.Pending)
	if pending == "" {
		pending = "NONE"
	}

	return StatusInner{
		Power: PowerJSON{
			State:      state,
			Pending:    pending,
			PressTicks: snap.Power.PressTicks,
			Latched:    snap.Power.Latched,
		},
		Battery:       buildBattery(snap),
		UptimeSeconds: int64(snap.Uptime().Truncate(time.Second).Seconds()),
		StartTime:     snap.StartTime.UTC().Format(time.RFC3339),
		Timestamp:     snap.Now.UTC().Format(time.RFC3339),
		MQTT:          MQTTStatus{Connected: snap.MQTTConnected, Broker: snap.Config.Broker},
		Counts: CountsJSON{
			Sleep:       snap.Counts.Sleep,
			Wake:        snap.Counts.Wake,
			Restart:     snap.Counts.Restart,
			Shutdown:    snap.Counts.Shutdown,
			Charging:    snap.Counts.Charging,
			Discharging: snap.Counts.Discharging,
		},
		Config: ConfigJSON{
			PowerTickMs:   snap.Config.PowerTickMs,
			BatteryTickMs: snap.Config.BatteryTickMs,
			HeartbeatMs:   snap.Config.HeartbeatMs,
			SleepTicks:    snap.Config.SleepTicks,
			RestartTicks:  snap.Config.RestartTicks,
			ShutdownTicks: snap.Config.ShutdownTicks,
			Broker:        snap.Config.Broker,
			HTTPPort:      snap.Config.HTTPPort,
		},
	}
}

// FormatJSON returns the JSON status for the web endpoint (no event/reason).
func FormatJSON(snap Snapshot) []byte {
	data, _ := json.MarshalIndent(StatusJSON{Status: buildInner(snap)}, "", "  ")
	return data
}

// FormatStatusEvent returns the JSON status for an MQTT system event.
func FormatStatusEvent(snap Snapshot, event, reason string) []byte {
	inner := buildInner(snap)
	inner.Event = event
	inner.Reason = reason

	data, _ := json.Marshal(StatusJSON{Status: inner})
	return data
}
