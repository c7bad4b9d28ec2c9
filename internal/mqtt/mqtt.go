// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/panel-power/internal/logic"
)

// Topic is the MQTT topic for power and battery events.
const Topic = "panel/power/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "panel/power/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a power or battery event to the broker.
	// Returns error if publishing fails (should not crash the process).
	Publish(event logic.Event) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // e.g., "STARTUP", "SHUTDOWN", "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "SIGINT" (shutdown only)
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool   // Whether the message should be retained by the broker
}

// Payload is the MQTT message for a logic.Event. Exactly one of Power and
// Battery is set.
type Payload struct {
	Power   *PowerPayload   `json:"power,omitempty"`
	Battery *BatteryPayload `json:"battery,omitempty"`
}

// PowerPayload describes a button-driven or boot event.
type PowerPayload struct {
	Timestamp  string `json:"timestamp"`
	Event      string `json:"event"`
	State      string `json:"state"`
	PressTicks uint16 `json:"press_ticks"`
}

// BatteryPayload describes a charge-state change.
type BatteryPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Charging  bool   `json:"charging"`
	Percent   *int   `json:"percent"`
}

func isBatteryEvent(t logic.EventType) bool {
	return t == logic.EventCharging || t == logic.EventDischarging
}

// FormatPayload creates the JSON payload for an event.
func FormatPayload(event logic.Event) ([]byte, error) {
	ts := event.Time.UTC().Format(time.RFC3339)

	var payload Payload
	if isBatteryEvent(event.Type) {
		b := &BatteryPayload{
			Timestamp: ts,
			Event:     string(event.Type),
			Charging:  event.Charging,
		}
		if event.Percent >= 0 {
			p := event.Percent
			b.Percent = &p
		}
		payload.Battery = b
	} else {
		payload.Power = &PowerPayload{
			Timestamp:  ts,
			Event:      string(event.Type),
			State:      string(event.State),
			PressTicks: event.PressTicks,
		}
	}
	return json.Marshal(payload)
}

// SystemPayload represents the MQTT message payload for system events.
// Used for simple events (LWT, RECONNECTED) that don't carry a full status snapshot.
type SystemPayload struct {
	System SystemPayloadInner `json:"system"`
}

// SystemPayloadInner contains the system event details.
type SystemPayloadInner struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	Reason    string `json:"reason,omitempty"`
}

// FormatSystemPayload creates the JSON payload for a system event.
// If event.RawPayload is set, it is returned directly (used for full status snapshots).
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}

	payload := SystemPayload{
		System: SystemPayloadInner{
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
			Event:     event.Event,
			Reason:    event.Reason,
		},
	}
	return json.Marshal(payload)
}
