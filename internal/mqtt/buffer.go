package mqtt

// bufferedMsg stores a serialized MQTT message for replay after reconnection.
type bufferedMsg struct {
	topic    string
	payload  []byte
	qos      byte
	retained bool
}

// ringBuffer is a fixed-capacity FIFO that stores messages while disconnected.
// When full, the oldest message is overwritten.
// Not safe for concurrent use; caller must synchronize.
type ringBuffer struct {
	buf     []bufferedMsg
	head    int // next write position
	count   int
	dropped int // messages overwritten since last takeDropped
}

func newRingBuffer(capacity int) *ringBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &ringBuffer{buf: make([]bufferedMsg, capacity)}
}

// push stores msg and reports whether an older message was dropped for it.
func (r *ringBuffer) push(msg bufferedMsg) bool {
	size := len(r.buf)
	r.buf[r.head] = msg
	r.head = (r.head + 1) % size
	if r.count == size {
		r.dropped++
		return true
	}
	r.count++
	return false
}

// pop removes and returns the oldest message.
func (r *ringBuffer) pop() (bufferedMsg, bool) {
	if r.count == 0 {
		return bufferedMsg{}, false
	}
	size := len(r.buf)
	i := (r.head - r.count + size) % size
	msg := r.buf[i]
	r.buf[i] = bufferedMsg{}
	r.count--
	return msg, true
}

// takeDropped returns how many messages were overwritten since the last
// call and resets the count.
func (r *ringBuffer) takeDropped() int {
	n := r.dropped
	r.dropped = 0
	return n
}

func (r *ringBuffer) len() int {
	return r.count
}
