package mqtt

import (
	"testing"
)

func push(rb *ringBuffer, from, to int) {
	for i := from; i < to; i++ {
		rb.push(bufferedMsg{topic: "t", payload: []byte{byte(i)}})
	}
}

// drain pops everything, oldest first, and collects the drop count.
func drain(rb *ringBuffer) ([]bufferedMsg, int) {
	var out []bufferedMsg
	for {
		msg, ok := rb.pop()
		if !ok {
			break
		}
		out = append(out, msg)
	}
	return out, rb.takeDropped()
}

func TestRingBufferEmptyDrain(t *testing.T) {
	rb := newRingBuffer(10)
	got, dropped := drain(rb)
	if got != nil {
		t.Errorf("expected nil from empty drain, got %d items", len(got))
	}
	if dropped != 0 {
		t.Errorf("expected 0 dropped, got %d", dropped)
	}
}

func TestRingBufferPushAndDrain(t *testing.T) {
	rb := newRingBuffer(10)
	push(rb, 0, 5)

	got, _ := drain(rb)
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		if got[i].payload[0] != byte(i) {
			t.Errorf("item %d: expected payload %d, got %d", i, i, got[i].payload[0])
		}
	}

	if again, _ := drain(rb); again != nil {
		t.Errorf("expected nil from second drain, got %d items", len(again))
	}
}

func TestRingBufferOverflowDropsOldest(t *testing.T) {
	rb := newRingBuffer(5)

	for i := 0; i < 5; i++ {
		if rb.push(bufferedMsg{payload: []byte{byte(i)}}) {
			t.Fatalf("push %d: unexpected drop before full", i)
		}
	}
	for i := 5; i < 8; i++ {
		if !rb.push(bufferedMsg{payload: []byte{byte(i)}}) {
			t.Errorf("push %d: expected drop when full", i)
		}
	}

	got, dropped := drain(rb)
	if dropped != 3 {
		t.Errorf("dropped: got %d, want 3", dropped)
	}
	if len(got) != 5 {
		t.Fatalf("expected 5 items, got %d", len(got))
	}
	for i := 0; i < 5; i++ {
		want := byte(i + 3)
		if got[i].payload[0] != want {
			t.Errorf("item %d: expected payload %d, got %d", i, want, got[i].payload[0])
		}
	}

	if _, dropped := drain(rb); dropped != 0 {
		t.Errorf("dropped should reset after drain, got %d", dropped)
	}
}

func TestRingBufferMultipleCycles(t *testing.T) {
	rb := newRingBuffer(5)

	push(rb, 0, 3)
	if got, _ := drain(rb); len(got) != 3 {
		t.Fatalf("cycle 1: expected 3 items, got %d", len(got))
	}

	push(rb, 10, 14)
	got, _ := drain(rb)
	if len(got) != 4 {
		t.Fatalf("cycle 2: expected 4 items, got %d", len(got))
	}
	for i, msg := range got {
		if want := byte(10 + i); msg.payload[0] != want {
			t.Errorf("cycle 2 item %d: expected %d, got %d", i, want, msg.payload[0])
		}
	}
}

func TestRingBufferLen(t *testing.T) {
	rb := newRingBuffer(3)
	if rb.len() != 0 {
		t.Errorf("expected len 0, got %d", rb.len())
	}

	push(rb, 0, 5)
	if rb.len() != 3 {
		t.Errorf("expected len capped at 3, got %d", rb.len())
	}

	drain(rb)
	if rb.len() != 0 {
		t.Errorf("expected len 0 after drain, got %d", rb.len())
	}
}

func TestRingBufferMinimumCapacity(t *testing.T) {
	rb := newRingBuffer(0)
	push(rb, 0, 2)

	got, dropped := drain(rb)
	if len(got) != 1 || got[0].payload[0] != 1 {
		t.Errorf("expected only the newest message, got %v", got)
	}
	if dropped != 1 {
		t.Errorf("dropped: got %d, want 1", dropped)
	}
}

func TestRingBufferPopInterleavedWithPush(t *testing.T) {
	rb := newRingBuffer(3)
	push(rb, 0, 3)

	if msg, _ := rb.pop(); msg.payload[0] != 0 {
		t.Fatalf("first pop: got %d, want 0", msg.payload[0])
	}
	push(rb, 3, 4)
	if rb.len() != 3 {
		t.Fatalf("len: got %d, want 3", rb.len())
	}

	got, dropped := drain(rb)
	if dropped != 0 {
		t.Errorf("dropped: got %d, want 0", dropped)
	}
	for i, msg := range got {
		if want := byte(i + 1); msg.payload[0] != want {
			t.Errorf("item %d: got %d, want %d", i, msg.payload[0], want)
		}
	}
}

func TestRingBufferPreservesFields(t *testing.T) {
	rb := newRingBuffer(10)
	rb.push(bufferedMsg{
		topic:    TopicSystem,
		payload:  []byte(`{"test":true}`),
		qos:      1,
		retained: true,
	})

	got, _ := drain(rb)
	if len(got) != 1 {
		t.Fatalf("expected 1 item, got %d", len(got))
	}
	if got[0].topic != TopicSystem {
		t.Errorf("topic: got %s, want %s", got[0].topic, TopicSystem)
	}
	if string(got[0].payload) != `{"test":true}` {
		t.Errorf("payload: got %s", got[0].payload)
	}
	if got[0].qos != 1 || !got[0].retained {
		t.Errorf("qos/retained: got %d/%t, want 1/true", got[0].qos, got[0].retained)
	}
}
