package mqtt

import (
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/sweeney/panel-power/internal/logic"
)

// recorder stands in for the broker connection.
type recorder struct {
	mu     sync.Mutex
	topics []string
	events []string
	err    error
	onSend func(n int)
}

func (r *recorder) send(m bufferedMsg) error {
	r.mu.Lock()
	n := len(r.topics)
	r.mu.Unlock()
	if r.onSend != nil {
		r.onSend(n)
	}
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	r.topics = append(r.topics, m.topic)
	r.events = append(r.events, string(m.payload))
	r.mu.Unlock()
	return nil
}

func newTestPublisher(t *testing.T, size int) (*RealPublisher, *recorder) {
	t.Helper()
	log, _ := test.NewNullLogger()
	rec := &recorder{}
	p := newPublisher(size, log)
	p.send = rec.send
	return p, rec
}

func eventPayload(t *testing.T, typ logic.EventType) string {
	t.Helper()
	b, err := FormatPayload(logic.Event{Type: typ, Percent: -1})
	if err != nil {
		t.Fatalf("format: %v", err)
	}
	return string(b)
}

func TestRealPublisherBuffersWhileOffline(t *testing.T) {
	p, rec := newTestPublisher(t, 8)

	if err := p.Publish(logic.Event{Type: logic.EventBoot}); !errors.Is(err, errNotConnected) {
		t.Errorf("offline publish: got %v, want errNotConnected", err)
	}
	if p.Buffered() != 1 {
		t.Errorf("buffered: got %d, want 1", p.Buffered())
	}
	if len(rec.topics) != 0 {
		t.Errorf("nothing should be sent offline, got %v", rec.topics)
	}
}

func TestRealPublisherReplaysBeforeNewMessages(t *testing.T) {
	p, rec := newTestPublisher(t, 8)
	p.Publish(logic.Event{Type: logic.EventBoot})
	p.Publish(logic.Event{Type: logic.EventSleep})

	gen := p.markConnected()
	if !p.IsConnected() {
		t.Fatal("expected connected")
	}

	// Published after the connect but before the replay ran.
	if err := p.Publish(logic.Event{Type: logic.EventWake}); err != nil {
		t.Errorf("publish during replay: %v", err)
	}
	if len(rec.events) != 0 {
		t.Fatal("a new message overtook the replay")
	}

	p.replay(gen)

	want := []string{
		eventPayload(t, logic.EventBoot),
		eventPayload(t, logic.EventSleep),
		eventPayload(t, logic.EventWake),
	}
	if len(rec.events) != len(want) {
		t.Fatalf("sent %d messages, want %d: %v", len(rec.events), len(want), rec.events)
	}
	for i := range want {
		if rec.events[i] != want[i] {
			t.Errorf("message %d: got %s, want %s", i, rec.events[i], want[i])
		}
	}

	if err := p.Publish(logic.Event{Type: logic.EventRestart}); err != nil {
		t.Errorf("publish after replay: %v", err)
	}
	if len(rec.events) != 4 || p.Buffered() != 0 {
		t.Errorf("after replay messages go straight out: sent=%d buffered=%d", len(rec.events), p.Buffered())
	}
}

func TestRealPublisherReconnectQueuesReconnected(t *testing.T) {
	p, rec := newTestPublisher(t, 8)
	p.replay(p.markConnected())
	p.onConnectionLost(nil, errors.New("eof"))

	p.Publish(logic.Event{Type: logic.EventCharging})
	p.replay(p.markConnected())

	if len(rec.topics) != 2 {
		t.Fatalf("sent %d messages, want 2", len(rec.topics))
	}
	if rec.topics[0] != Topic || rec.topics[1] != TopicSystem {
		t.Errorf("topics: got %v, want buffered event then RECONNECTED", rec.topics)
	}
}

func TestRealPublisherFailedSendIsNotBuffered(t *testing.T) {
	p, rec := newTestPublisher(t, 8)
	p.replay(p.markConnected())

	rec.err = errors.New("publish timeout")
	if err := p.Publish(logic.Event{Type: logic.EventSleep}); err == nil {
		t.Error("expected the send error to be returned")
	}
	if p.Buffered() != 0 {
		t.Errorf("buffered: got %d, want 0", p.Buffered())
	}

	// A later reconnect has nothing stale to replay.
	rec.err = nil
	p.onConnectionLost(nil, errors.New("eof"))
	p.replay(p.markConnected())
	if len(rec.topics) != 1 || rec.topics[0] != TopicSystem {
		t.Errorf("only RECONNECTED should be sent, got %v", rec.topics)
	}
}

func TestRealPublisherReplayStopsOnDisconnect(t *testing.T) {
	p, rec := newTestPublisher(t, 8)
	for i := 0; i < 3; i++ {
		p.Publish(logic.Event{Type: logic.EventBoot})
	}

	rec.onSend = func(n int) {
		if n == 0 {
			p.onConnectionLost(nil, errors.New("eof"))
		}
	}
	p.replay(p.markConnected())

	if len(rec.topics) != 1 {
		t.Errorf("sent %d messages, want 1", len(rec.topics))
	}
	if p.Buffered() != 2 {
		t.Errorf("buffered: got %d, want 2 left for the next connect", p.Buffered())
	}
	if p.IsConnected() {
		t.Error("expected disconnected")
	}
}

func TestRealPublisherStaleReplayStops(t *testing.T) {
	p, rec := newTestPublisher(t, 8)
	p.Publish(logic.Event{Type: logic.EventBoot})

	old := p.markConnected()
	p.onConnectionLost(nil, errors.New("eof"))
	p.markConnected()

	p.replay(old)
	if len(rec.topics) != 0 {
		t.Errorf("stale replay sent %v", rec.topics)
	}
}
