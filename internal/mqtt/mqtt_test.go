package mqtt

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/sweeney/panel-power/internal/logic"
)

var ts = time.Date(2026, 2, 2, 22, 18, 12, 0, time.UTC)

func TestFormatPayloadPowerEvent(t *testing.T) {
	event := logic.Event{
		Time:       ts,
		Type:       logic.EventSleep,
		State:      logic.StateRunning,
		PressTicks: 12,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"power":{"timestamp":"2026-02-02T22:18:12Z","event":"SLEEP","state":"RUNNING","press_ticks":12}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadBatteryEvent(t *testing.T) {
	event := logic.Event{
		Time:     ts,
		Type:     logic.EventCharging,
		Charging: true,
		Percent:  64,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"battery":{"timestamp":"2026-02-02T22:18:12Z","event":"CHARGING","charging":true,"percent":64}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatPayloadBatteryPercentUnknown(t *testing.T) {
	payload, err := FormatPayload(logic.Event{Time: ts, Type: logic.EventDischarging, Percent: -1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed map[string]map[string]interface{}
	if err := json.Unmarshal(payload, &parsed); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if v, ok := parsed["battery"]["percent"]; !ok || v != nil {
		t.Errorf("percent: got %v (present=%t), want null", v, ok)
	}
	if _, ok := parsed["power"]; ok {
		t.Error("battery events should not carry a power block")
	}
}

func TestFormatPayloadAllEventTypes(t *testing.T) {
	tests := []struct {
		eventType   logic.EventType
		wantBattery bool
	}{
		{logic.EventBoot, false},
		{logic.EventSleep, false},
		{logic.EventWake, false},
		{logic.EventRestart, false},
		{logic.EventShutdown, false},
		{logic.EventCharging, true},
		{logic.EventDischarging, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.eventType), func(t *testing.T) {
			payload, err := FormatPayload(logic.Event{Time: ts, Type: tt.eventType, State: logic.StateRunning})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			var parsed Payload
			if err := json.Unmarshal(payload, &parsed); err != nil {
				t.Fatalf("invalid JSON: %v", err)
			}

			if tt.wantBattery {
				if parsed.Battery == nil || parsed.Power != nil {
					t.Fatalf("expected battery block only: %s", payload)
				}
				if parsed.Battery.Event != string(tt.eventType) {
					t.Errorf("event: got %s, want %s", parsed.Battery.Event, tt.eventType)
				}
				return
			}
			if parsed.Power == nil || parsed.Battery != nil {
				t.Fatalf("expected power block only: %s", payload)
			}
			if parsed.Power.Event != string(tt.eventType) {
				t.Errorf("event: got %s, want %s", parsed.Power.Event, tt.eventType)
			}
		})
	}
}

func TestFormatPayloadTimezoneConversion(t *testing.T) {
	loc := time.FixedZone("NZDT", 13*60*60)
	event := logic.Event{
		Time: time.Date(2026, 2, 3, 11, 18, 12, 0, loc),
		Type: logic.EventBoot,
	}

	payload, err := FormatPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var parsed Payload
	json.Unmarshal(payload, &parsed)
	if parsed.Power.Timestamp != "2026-02-02T22:18:12Z" {
		t.Errorf("expected UTC timestamp, got %s", parsed.Power.Timestamp)
	}
}

func TestTopics(t *testing.T) {
	if Topic != "panel/power/events" {
		t.Errorf("unexpected topic: %s", Topic)
	}
	if TopicSystem != "panel/power/system" {
		t.Errorf("unexpected system topic: %s", TopicSystem)
	}
}

func TestFormatSystemPayloadExactJSON(t *testing.T) {
	event := SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 8, 30, 0, 0, time.UTC),
		Event:     "SHUTDOWN",
		Reason:    "MQTT_DISCONNECT",
	}

	payload, err := FormatSystemPayload(event)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T08:30:00Z","event":"SHUTDOWN","reason":"MQTT_DISCONNECT"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadOmitsEmptyReason(t *testing.T) {
	payload, err := FormatSystemPayload(SystemEvent{
		Timestamp: time.Date(2026, 2, 10, 14, 30, 0, 0, time.UTC),
		Event:     "RECONNECTED",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := `{"system":{"timestamp":"2026-02-10T14:30:00Z","event":"RECONNECTED"}}`
	if string(payload) != expected {
		t.Errorf("unexpected payload:\ngot:  %s\nwant: %s", payload, expected)
	}
}

func TestFormatSystemPayloadRawPassthrough(t *testing.T) {
	raw := []byte(`{"status":{"event":"STARTUP"}}`)
	payload, err := FormatSystemPayload(SystemEvent{Event: "STARTUP", RawPayload: raw})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(payload) != string(raw) {
		t.Errorf("expected raw payload passthrough, got %s", payload)
	}
}

func TestFakePublisherRecordsInOrder(t *testing.T) {
	f := NewFakePublisher()

	f.PublishSystem(SystemEvent{Timestamp: ts, Event: "STARTUP", Retained: true})
	f.Publish(logic.Event{Time: ts, Type: logic.EventBoot, State: logic.StateRunning})
	f.Publish(logic.Event{Time: ts, Type: logic.EventCharging, Charging: true, Percent: 40})
	f.PublishSystem(SystemEvent{Timestamp: ts, Event: "HEARTBEAT"})

	if len(f.Messages) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(f.Messages))
	}
	wantTopics := []string{TopicSystem, Topic, Topic, TopicSystem}
	for i, want := range wantTopics {
		if f.Messages[i].Topic != want {
			t.Errorf("message %d: topic %s, want %s", i, f.Messages[i].Topic, want)
		}
	}

	types := f.EventTypes()
	if len(types) != 2 || types[0] != logic.EventBoot || types[1] != logic.EventCharging {
		t.Errorf("event types: got %v", types)
	}
	names := f.SystemEventNames()
	if len(names) != 2 || names[0] != "STARTUP" || names[1] != "HEARTBEAT" {
		t.Errorf("system events: got %v", names)
	}
	if !f.SystemEvents[0].Retained || f.SystemEvents[1].Retained {
		t.Error("retained flag not preserved")
	}
}

func TestFakePublisherErrors(t *testing.T) {
	f := NewFakePublisher()
	f.PublishError = errors.New("simulated error")
	f.PublishSystemError = errors.New("simulated system error")

	if err := f.Publish(logic.Event{Type: logic.EventBoot}); err == nil {
		t.Error("expected error")
	}
	if err := f.PublishSystem(SystemEvent{Event: "STARTUP"}); err == nil {
		t.Error("expected system error")
	}
	if len(f.Events) != 0 || len(f.SystemEvents) != 0 || len(f.Messages) != 0 {
		t.Error("nothing should be recorded on error")
	}
}

func TestFakePublisherCloseAndConnected(t *testing.T) {
	f := NewFakePublisher()
	if !f.IsConnected() {
		t.Error("fake should start connected")
	}
	if f.Closed {
		t.Error("should not be closed initially")
	}
	if err := f.Close(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if !f.Closed {
		t.Error("should be closed after Close()")
	}
}

func TestPublisherInterfaces(t *testing.T) {
	var _ Publisher = (*FakePublisher)(nil)
	var _ ConnectionStatus = (*FakePublisher)(nil)
	var _ Publisher = (*RealPublisher)(nil)
	var _ ConnectionStatus = (*RealPublisher)(nil)
}
