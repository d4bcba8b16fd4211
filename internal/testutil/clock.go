// Package testutil provides deterministic test doubles shared across
// packages.
package testutil

import (
	"sync"
	"time"
)

// Clock is a deterministic wall clock for tests.
//
// Its Now method plugs into engine.WithNow so error-row timestamps are
// reproducible. Each call to Now advances the clock by the configured
// step, so successive rows get distinct, strictly increasing stamps.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Clock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

// NewClock creates a clock starting at the given instant, advancing one
// second per Now call.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start, step: time.Second}
}

// Now returns the current instant and advances the clock by one step.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

// Advance moves the clock forward without consuming a tick.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}
