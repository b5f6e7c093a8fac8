package fraud

import (
	"sync"
	"time"
)

// VelocityTracker maintains a sliding time window of timestamps per
// partition key (user or IP) and reports the in-window count after each
// insertion.
//
// Eviction compares against the timestamp of the event being recorded, never
// wall-clock time, so replaying historical data is deterministic. Sequence
// order is insertion order; out-of-order timestamps are accepted but not
// re-sorted. Each key's window is independent, and all mutation is
// serialized through the tracker's lock (single writer per key).
type VelocityTracker struct {
	horizon time.Duration

	mu      sync.Mutex
	windows map[string][]time.Time
}

// NewVelocityTracker creates a tracker with a fixed eviction horizon.
func NewVelocityTracker(horizon time.Duration) *VelocityTracker {
	return &VelocityTracker{
		horizon: horizon,
		windows: make(map[string][]time.Time),
	}
}

// Record appends ts to key's window, evicts entries strictly older than
// ts - horizon, and returns the remaining count.
func (t *VelocityTracker) Record(key string, ts time.Time) int {
	t.mu.Lock()
	defer t.mu.Unlock()

	window := append(t.windows[key], ts)

	cutoff := ts.Add(-t.horizon)
	evict := 0
	for evict < len(window) && window[evict].Before(cutoff) {
		evict++
	}
	if evict > 0 {
		window = append(window[:0], window[evict:]...)
	}

	t.windows[key] = window
	return len(window)
}

// Count returns the current window size for key without recording anything.
func (t *VelocityTracker) Count(key string) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.windows[key])
}

// Reset drops all window state. Used between replays.
func (t *VelocityTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.windows = make(map[string][]time.Time)
}
