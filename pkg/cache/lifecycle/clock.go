package lifecycle

import "time"

// Clock supplies both time references the coordinator needs: the wall clock
// (the only thing meaningful across process restarts) and a monotonic
// reading (ground truth for how long the cache has actually been warm,
// immune to NTP sync, manual clock changes, and timezone moves).
type Clock interface {
	// Now returns the current wall-clock time.
	Now() time.Time

	// Monotonic returns a reading from a monotonic clock. Only
	// differences between readings are meaningful; the origin is
	// arbitrary and resets on process start.
	Monotonic() time.Duration
}

// systemClock implements Clock on the runtime clocks.
type systemClock struct {
	origin time.Time
}

// NewSystemClock returns the real clock.
func NewSystemClock() Clock {
	return &systemClock{origin: time.Now()}
}

func (c *systemClock) Now() time.Time {
	return time.Now()
}

// Monotonic exploits the monotonic reading Go embeds in time.Time:
// time.Since strips the wall component when both ends carry one.
func (c *systemClock) Monotonic() time.Duration {
	return time.Since(c.origin)
}
