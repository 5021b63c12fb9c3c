package cycle

import (
	"context"
	"errors"
	"sync"
	"time"

	"washctl/core"
	"washctl/protocol"
)

// DefaultPollInterval paces iterations that did not wait on the tick source
const DefaultPollInterval = 10 * time.Millisecond

var ErrMissingDependency = errors.New("cycle: missing dependency")

// InputReader provides a consistent view of the latched inputs
type InputReader interface {
	Snapshot() core.Inputs
}

// Ticker provides the one-second wait
type Ticker interface {
	WaitOneSecond(ctx context.Context) error
}

// Renderer shows the elapsed seconds
type Renderer interface {
	Render(seconds int) error
}

// Lamp shows the active phase
type Lamp interface {
	Show(pattern core.IndicatorPattern) error
}

// Context is the whole control-loop state. It is owned by the Machine and
// only changes at the end of an iteration.
type Context struct {
	State   State
	Pending State
	Resume  State // phase to return to after a pause; never Config

	TankFull  bool
	WashDone  bool
	RinseDone bool
	DryDone   bool

	ElapsedSeconds uint32

	// Inputs is the snapshot taken at the start of the last iteration
	Inputs core.Inputs
}

// doneFlag returns the completion flag of phase, or nil
func (c *Context) doneFlag(phase State) *bool {
	switch phase {
	case Fill:
		return &c.TankFull
	case Wash:
		return &c.WashDone
	case Rinse:
		return &c.RinseDone
	case Dry:
		return &c.DryDone
	default:
		return nil
	}
}

// startPhase prepares a phase entered from scratch: the counter restarts and
// the phase's completion flag is cleared
func (c *Context) startPhase(phase State) {
	c.ElapsedSeconds = 0
	if f := c.doneFlag(phase); f != nil {
		*f = false
	}
}

// Options wires a Machine to its collaborators
type Options struct {
	Inputs    InputReader
	Ticks     Ticker
	Display   Renderer
	Indicator Lamp

	// Clock paces idle iterations in Run; defaults to core.SystemClock
	Clock core.Clock
	// PollInterval defaults to DefaultPollInterval
	PollInterval time.Duration
	// Observer defaults to NopObserver
	Observer Observer
	// OnError receives output write errors in Run; the loop keeps going
	OnError func(error)
}

// Machine is the cycle state machine
type Machine struct {
	inputs    InputReader
	ticks     Ticker
	display   Renderer
	indicator Lamp
	clock     core.Clock
	poll      time.Duration
	observer  Observer
	onError   func(error)

	mu  sync.RWMutex
	ctx Context
}

// New creates a machine in Idle
func New(cfg Options) (*Machine, error) {
	if cfg.Inputs == nil || cfg.Ticks == nil || cfg.Display == nil || cfg.Indicator == nil {
		return nil, ErrMissingDependency
	}
	m := &Machine{
		inputs:    cfg.Inputs,
		ticks:     cfg.Ticks,
		display:   cfg.Display,
		indicator: cfg.Indicator,
		clock:     cfg.Clock,
		poll:      cfg.PollInterval,
		observer:  cfg.Observer,
		onError:   cfg.OnError,
	}
	if m.clock == nil {
		m.clock = core.SystemClock{}
	}
	if m.poll <= 0 {
		m.poll = DefaultPollInterval
	}
	if m.observer == nil {
		m.observer = NopObserver{}
	}
	return m, nil
}

// SetObserver replaces the observer. It must be called before Run.
func (m *Machine) SetObserver(o Observer) {
	if o == nil {
		o = NopObserver{}
	}
	m.observer = o
}

// Snapshot returns a copy of the current context
func (m *Machine) Snapshot() Context {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ctx
}

// State returns the committed state
func (m *Machine) State() State {
	return m.Snapshot().State
}

// Status reports the context in service-link form
func (m *Machine) Status() protocol.Status {
	c := m.Snapshot()
	var flags uint8
	if c.TankFull {
		flags |= protocol.FlagTankFull
	}
	if c.WashDone {
		flags |= protocol.FlagWashDone
	}
	if c.RinseDone {
		flags |= protocol.FlagRinseDone
	}
	if c.DryDone {
		flags |= protocol.FlagDryDone
	}
	return protocol.Status{
		State:      uint8(c.State),
		Pending:    uint8(c.Pending),
		Resume:     uint8(c.Resume),
		Level:      uint8(c.Inputs.Level),
		StartPause: c.Inputs.StartPause,
		Elapsed:    c.ElapsedSeconds,
		Flags:      flags,
	}
}

// Step runs one control-loop iteration. The only blocking point is the
// one-second wait of a running phase; inputs are read once, before it.
func (m *Machine) Step(ctx context.Context) error {
	_, err := m.step(ctx)
	return err
}

// Run repeats Step until ctx is done; ctx.Err() is its only return value.
// Output write errors go to OnError and the loop continues. Iterations that
// did not wait on the tick source are paced by the poll interval.
func (m *Machine) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		waited, err := m.step(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if m.onError != nil {
				m.onError(err)
			}
		}
		if waited {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-m.clock.After(m.poll):
		}
	}
}

func (m *Machine) step(ctx context.Context) (waited bool, err error) {
	var renderErr error
	c := m.Snapshot()
	in := m.inputs.Snapshot()
	c.Inputs = in
	c.Pending = c.State

	switch c.State {
	case Idle:
		if in.StartPause {
			if c.Resume != Idle {
				c.Pending = c.Resume
				c.Resume = Idle
			} else {
				c.Pending = Config
			}
		}

	case Config:
		if in.Level.Valid() {
			c.TankFull, c.WashDone, c.RinseDone, c.DryDone = false, false, false, false
			c.startPhase(Fill)
			c.Pending = Fill
		}

	case Fill, Wash, Rinse, Dry:
		phase := c.State
		if err := m.indicator.Show(indicatorFor(phase)); err != nil {
			return false, err
		}
		done := c.doneFlag(phase)

		switch {
		case !in.StartPause:
			c.Resume = phase
			c.Pending = Idle

		case *done:
			next := nextPhase(phase)
			c.Pending = next
			if next == Idle {
				c.ElapsedSeconds = 0
				c.Resume = Idle
			} else {
				c.startPhase(next)
			}

		default:
			if err := m.ticks.WaitOneSecond(ctx); err != nil {
				return false, err
			}
			waited = true
			c.ElapsedSeconds++
			// the second has passed even if the display failed
			renderErr = m.display.Render(int(c.ElapsedSeconds))
			m.observer.Second(phase, c.ElapsedSeconds)
			if limit, ok := Threshold(phase, in.Level); ok && c.ElapsedSeconds >= limit {
				*done = true
				m.observer.PhaseDone(phase, c.ElapsedSeconds)
			}
		}

	default:
		// unknown state: stay put
	}

	c.State = c.Pending
	if from := m.commit(c); from != c.State {
		m.observer.Transition(from, c.State, c)
	}
	return waited, renderErr
}

// commit stores c and returns the previously committed state
func (m *Machine) commit(c Context) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	from := m.ctx.State
	m.ctx = c
	return from
}
