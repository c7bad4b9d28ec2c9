package logic

import "time"

const historyCapacity = 8

type voltageSample struct {
	volts float64
	at    Millis
}

// history is a fixed-capacity ring of smoothed voltages, overwritten
// oldest-first.
type history struct {
	buf   [historyCapacity]voltageSample
	head  int // next write position
	count int
}

func (h *history) push(volts float64, at Millis) {
	h.buf[h.head] = voltageSample{volts: volts, at: at}
	h.head = (h.head + 1) % historyCapacity
	if h.count < historyCapacity {
		h.count++
	}
}

func (h *history) len() int {
	return h.count
}

// lookback walks from newest to oldest and returns the first entry at least
// window old, or the oldest entry if none is. ok is false when empty.
func (h *history) lookback(now Millis, window time.Duration) (voltageSample, bool) {
	if h.count == 0 {
		return voltageSample{}, false
	}
	w := uint32(window.Milliseconds())
	idx := h.head
	for i := 0; i < h.count; i++ {
		idx = (idx - 1 + historyCapacity) % historyCapacity
		if now.Sub(h.buf[idx].at) >= w {
			break
		}
	}
	return h.buf[idx], true
}
