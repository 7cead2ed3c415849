package models

import (
	"sync"
	"time"
)

// Time is a point in time recorded twice: wall-clock milliseconds for display
// and a monotonic tick for ordering and durations.
type Time struct {
	Wall time.Time
	Tick time.Duration
}

// Since returns the monotonic duration elapsed between t and later
func (t Time) Since(later Time) time.Duration {
	return later.Tick - t.Tick
}

// Clock produces Time values
type Clock interface {
	Now() Time
}

// SystemClock reads the system clock; ticks are measured from its creation
type SystemClock struct {
	start time.Time
}

// NewSystemClock creates a clock whose ticks start at zero now
func NewSystemClock() *SystemClock {
	return &SystemClock{start: time.Now()}
}

// Now returns the current time
func (c *SystemClock) Now() Time {
	now := time.Now()
	return Time{
		Wall: now.Truncate(time.Millisecond),
		Tick: now.Sub(c.start),
	}
}

// ManualClock is a Clock that only moves when told to
type ManualClock struct {
	mu   sync.Mutex
	wall time.Time
	tick time.Duration
}

// NewManualClock creates a manual clock set to the given wall time
func NewManualClock(wall time.Time) *ManualClock {
	return &ManualClock{wall: wall.Truncate(time.Millisecond)}
}

// Now returns the clock's current reading
func (c *ManualClock) Now() Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Time{Wall: c.wall, Tick: c.tick}
}

// Advance moves the clock forward by d
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.wall = c.wall.Add(d).Truncate(time.Millisecond)
	c.tick += d
}
