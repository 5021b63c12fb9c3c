package core

import (
	"context"
	"time"
)

// Timer calibration of the AVR panel board: timer0 with a 1024
// prescaler overflows 31 times in roughly one second.
const (
	TimerPrescaler     = 1024
	OverflowsPerSecond = 31
)

// TickSource implements the coarse one-second delay by counting timer
// overflow events. Overflow is the interrupt entry point; it only counts
// while the source is enabled.
type TickSource struct {
	clock     Clock
	overflows uint32
	period    time.Duration
	counter   overflowCounter
}

// NewTickSource creates a tick source that signals elapsed after the given
// number of overflows. Zero selects OverflowsPerSecond.
func NewTickSource(clock Clock, overflows uint32) *TickSource {
	if overflows == 0 {
		overflows = OverflowsPerSecond
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &TickSource{
		clock:     clock,
		overflows: overflows,
		period:    time.Second / time.Duration(overflows),
	}
}

// Start resets the overflow counter and enables counting
func (t *TickSource) Start() {
	t.counter.store(0)
	t.counter.setEnabled(true)
}

// Stop disables overflow counting
func (t *TickSource) Stop() {
	t.counter.setEnabled(false)
}

// Reset clears the overflow counter without touching the enabled state
func (t *TickSource) Reset() {
	t.counter.store(0)
}

// Overflow is called once per hardware timer overflow
func (t *TickSource) Overflow() {
	if t.counter.enabled() {
		t.counter.inc()
	}
}

// Elapsed reports whether the configured number of overflows has been counted
func (t *TickSource) Elapsed() bool {
	return t.counter.load() >= t.overflows
}

// Overflows returns the current overflow count
func (t *TickSource) Overflows() uint32 {
	return t.counter.load()
}

// Enabled reports whether overflow counting is active
func (t *TickSource) Enabled() bool {
	return t.counter.enabled()
}

// Target returns the number of overflows that make up one second
func (t *TickSource) Target() uint32 {
	return t.overflows
}

// WaitOneSecond blocks until one second worth of overflows has been counted.
// Overflows are produced by the clock at a fixed period. Counting is always
// disabled on return so nothing drifts between calls. The only error is
// ctx.Err() when the hosted program shuts down mid-wait.
func (t *TickSource) WaitOneSecond(ctx context.Context) error {
	t.Start()
	defer t.Stop()

	for !t.Elapsed() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.clock.After(t.period):
			t.Overflow()
		}
	}
	return nil
}
