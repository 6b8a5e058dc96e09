// Package testutil provides deterministic test doubles shared across
// ledger packages.
package testutil

import (
	"sync"
	"time"
)

// DeterministicClock is a thread-safe time source for tests. Every call
// to Now advances it by a fixed step, so row timestamps and signed
// payload timestamps are reproducible across runs.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type DeterministicClock struct {
	mu      sync.Mutex
	base    time.Time
	step    time.Duration
	current time.Time
}

// NewDeterministicClock creates a clock starting at base, advancing by
// step on every Now call.
//
// The first call to Now() returns base + step.
func NewDeterministicClock(base time.Time, step time.Duration) *DeterministicClock {
	return &DeterministicClock{base: base, step: step, current: base}
}

// Now advances the clock by one step and returns the new time.
//
// Monotonic: never returns the same or an earlier time twice.
func (c *DeterministicClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(c.step)
	return c.current
}

// Current returns the last time handed out without advancing.
func (c *DeterministicClock) Current() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Reset rewinds the clock to its base time for test reuse.
func (c *DeterministicClock) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.base
}
