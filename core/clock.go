package core

import (
	"sync"
	"time"
)

// Clock is the time source behind the tick source and the control loop's
// idle polling. Targets use SystemClock; tests and the fast simulator use
// FakeClock.
type Clock interface {
	// Now returns the current time
	Now() time.Time

	// After returns a channel that receives once d has elapsed
	After(d time.Duration) <-chan time.Time
}

// SystemClock is the monotonic wall clock
type SystemClock struct{}

// Now returns time.Now()
func (SystemClock) Now() time.Time {
	return time.Now()
}

// After wraps time.After
func (SystemClock) After(d time.Duration) <-chan time.Time {
	return time.After(d)
}

// FakeClock is a virtual clock. After never blocks: it advances the virtual
// time by d and returns an already-fired channel, so a wait of any length
// completes instantly while Now still reports the simulated elapsed time.
type FakeClock struct {
	mu    sync.Mutex
	now   time.Time
	waits uint64
}

// NewFakeClock creates a fake clock starting at start
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the virtual time
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After advances the virtual time by d and fires immediately
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.waits++
	now := c.now
	c.mu.Unlock()

	ch := make(chan time.Time, 1)
	ch <- now
	return ch
}

// Advance moves the virtual time forward without a wait
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// Waits returns how many times After has been called
func (c *FakeClock) Waits() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.waits
}
