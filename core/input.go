package core

import (
	"context"
	"sync/atomic"
)

// WaterLevel is the selected water level preset. 0 means unselected.
type WaterLevel uint8

const (
	LevelNone WaterLevel = iota
	LevelLow
	LevelMedium
	LevelHigh
)

func (l WaterLevel) String() string {
	switch l {
	case LevelLow:
		return "low"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	default:
		return "none"
	}
}

// Valid reports whether l is one of the selectable presets (1..3)
func (l WaterLevel) Valid() bool {
	return l >= LevelLow && l <= LevelHigh
}

// SelectorLines is the raw state of the three selector inputs
type SelectorLines struct {
	A bool // level 1
	B bool // level 2
	C bool // level 3
}

// EncodeWaterLevel maps the highest-priority asserted line to a level.
// Priority is C, then B, then A.
func EncodeWaterLevel(lines SelectorLines) WaterLevel {
	switch {
	case lines.C:
		return LevelHigh
	case lines.B:
		return LevelMedium
	case lines.A:
		return LevelLow
	default:
		return LevelNone
	}
}

// Inputs is a consistent view of both latched inputs
type Inputs struct {
	StartPause bool
	Level      WaterLevel
}

// InputEventKind identifies which input fired
type InputEventKind uint8

const (
	EventStartPause InputEventKind = iota + 1
	EventSelector
)

func (k InputEventKind) String() string {
	switch k {
	case EventStartPause:
		return "start_pause"
	case EventSelector:
		return "selector"
	default:
		return "unknown"
	}
}

// InputEvent is one hardware input activation
type InputEvent struct {
	Kind  InputEventKind
	Lines SelectorLines // only for EventSelector
}

// InputLatch holds the two asynchronously written inputs. Each cell has a
// single writer (the interrupt handler or the producer task) and a single
// reader (the control loop). Writes are single-word; there is no queue, only
// the latest value is kept.
type InputLatch struct {
	startPause atomic.Bool
	level      atomic.Uint32
}

// NewInputLatch creates a latch with the button released and no level selected
func NewInputLatch() *InputLatch {
	return &InputLatch{}
}

// ToggleStartPause flips the start/pause flag
func (l *InputLatch) ToggleStartPause() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	l.startPause.Store(!l.startPause.Load())
}

// SetSelector encodes the selector lines and stores the resulting level
func (l *InputLatch) SetSelector(lines SelectorLines) {
	l.SetLevel(EncodeWaterLevel(lines))
}

// SetLevel stores a level directly. Anything outside 0..3 stores 0.
func (l *InputLatch) SetLevel(level WaterLevel) {
	if level > LevelHigh {
		level = LevelNone
	}

	state := disableInterrupts()
	defer restoreInterrupts(state)

	l.level.Store(uint32(level))
}

// StartPause returns the current start/pause flag
func (l *InputLatch) StartPause() bool {
	return l.startPause.Load()
}

// Level returns the current water level
func (l *InputLatch) Level() WaterLevel {
	return WaterLevel(l.level.Load())
}

// Snapshot reads both inputs inside one critical section
func (l *InputLatch) Snapshot() Inputs {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	return Inputs{
		StartPause: l.startPause.Load(),
		Level:      WaterLevel(l.level.Load()),
	}
}

// Apply applies a single input event
func (l *InputLatch) Apply(ev InputEvent) {
	switch ev.Kind {
	case EventStartPause:
		l.ToggleStartPause()
	case EventSelector:
		l.SetSelector(ev.Lines)
	}
}

// Run is the producer task: it applies events until the channel is closed
// or ctx is done.
func (l *InputLatch) Run(ctx context.Context, events <-chan InputEvent) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			l.Apply(ev)
		}
	}
}
