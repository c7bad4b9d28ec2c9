package mqtt

import (
	"github.com/sweeney/panel-power/internal/logic"
)

// Message is one recorded publish, in the order it happened.
type Message struct {
	Topic   string
	Payload []byte
}

// FakePublisher records published events for test assertions.
type FakePublisher struct {
	// Events contains all power and battery events that were published.
	Events []logic.Event

	// SystemEvents contains all system events that were published.
	SystemEvents []SystemEvent

	// Messages contains every payload across both topics, in publish order.
	Messages []Message

	// PublishError, if set, will be returned by Publish.
	PublishError error

	// PublishSystemError, if set, will be returned by PublishSystem.
	PublishSystemError error

	Closed    bool
	Connected bool
}

// NewFakePublisher creates a connected FakePublisher.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{Connected: true}
}

// Publish records the event.
func (f *FakePublisher) Publish(event logic.Event) error {
	if f.PublishError != nil {
		return f.PublishError
	}
	payload, err := FormatPayload(event)
	if err != nil {
		return err
	}
	f.Events = append(f.Events, event)
	f.Messages = append(f.Messages, Message{Topic: Topic, Payload: payload})
	return nil
}

// PublishSystem records the system event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	if f.PublishSystemError != nil {
		return f.PublishSystemError
	}
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.SystemEvents = append(f.SystemEvents, event)
	f.Messages = append(f.Messages, Message{Topic: TopicSystem, Payload: payload})
	return nil
}

// EventTypes returns the types of the recorded events, in order.
func (f *FakePublisher) EventTypes() []logic.EventType {
	out := make([]logic.EventType, 0, len(f.Events))
	for _, e := range f.Events {
		out = append(out, e.Type)
	}
	return out
}

// SystemEventNames returns the names of the recorded system events, in order.
func (f *FakePublisher) SystemEventNames() []string {
	out := make([]string, 0, len(f.SystemEvents))
	for _, e := range f.SystemEvents {
		out = append(out, e.Event)
	}
	return out
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.Closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	return f.Connected
}
