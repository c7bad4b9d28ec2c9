package logic

import "time"

// window is a span of time opened at a Millis timestamp. Elapsed time is
// measured from the opening, so the answer stays right for gaps up to the
// full 2^32 ms clock range; expire closes it for good once it has run out.
type window struct {
	start  Millis
	length uint32
	open   bool
}

func (w *window) openAt(now Millis, d time.Duration) {
	w.start = now
	w.length = uint32(d.Milliseconds())
	w.open = true
}

func (w *window) active(now Millis) bool {
	return w.open && now.Sub(w.start) < w.length
}

// expire closes the window if it has run out by now.
func (w *window) expire(now Millis) {
	if w.open && !w.active(now) {
		w.open = false
	}
}

// until returns the first instant outside the window.
func (w *window) until() Millis {
	return w.start + Millis(w.length)
}
