package logic

import "time"

// Heartbeat counts published events and decides when a periodic heartbeat is due.
type Heartbeat struct {
	startTime     time.Time
	lastHeartbeat time.Time
	counts        EventCounts
}

// NewHeartbeat creates a heartbeat clock. The startTime is used for
// calculating uptime in heartbeat events.
func NewHeartbeat(startTime time.Time) *Heartbeat {
	return &Heartbeat{
		startTime:     startTime,
		lastHeartbeat: startTime,
	}
}

// Record counts an event.
func (h *Heartbeat) Record(e Event) {
	switch e.Type {
	case EventSleep:
		h.counts.Sleep++
	case EventWake:
		h.counts.Wake++
	case EventRestart:
		h.counts.Restart++
	case EventShutdown:
		h.counts.Shutdown++
	case EventCharging:
		h.counts.Charging++
	case EventDischarging:
		h.counts.Discharging++
	}
}

// Counts returns a copy of the event counts.
func (h *Heartbeat) Counts() EventCounts {
	return h.counts
}

// Check returns heartbeat data if the interval has elapsed since the
// last heartbeat (or startup). Returns nil if the interval has not
// elapsed, or if interval is <= 0 (disabled).
func (h *Heartbeat) Check(now time.Time, interval time.Duration) *HeartbeatData {
	if interval <= 0 {
		return nil
	}

	if now.Sub(h.lastHeartbeat) < interval {
		return nil
	}

	h.lastHeartbeat = now
	return &HeartbeatData{
		Timestamp: now,
		Uptime:    now.Sub(h.startTime),
		Counts:    h.counts,
	}
}
