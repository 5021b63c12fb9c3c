package cycle

import (
	"washctl/core"
	"washctl/protocol"
)

// Observer is notified of control-loop progress. Calls happen on the loop
// goroutine after the corresponding side effects; implementations must not
// block for long.
type Observer interface {
	// Transition is called after a state change is committed
	Transition(from, to State, c Context)

	// Second is called after a phase counted one more second
	Second(phase State, elapsed uint32)

	// PhaseDone is called when a phase reaches its threshold
	PhaseDone(phase State, elapsed uint32)
}

// NopObserver ignores everything
type NopObserver struct{}

func (NopObserver) Transition(State, State, Context) {}
func (NopObserver) Second(State, uint32)             {}
func (NopObserver) PhaseDone(State, uint32)          {}

// Observers fans out to several observers in order
type Observers []Observer

func (o Observers) Transition(from, to State, c Context) {
	for _, ob := range o {
		ob.Transition(from, to, c)
	}
}

func (o Observers) Second(phase State, elapsed uint32) {
	for _, ob := range o {
		ob.Second(phase, elapsed)
	}
}

func (o Observers) PhaseDone(phase State, elapsed uint32) {
	for _, ob := range o {
		ob.PhaseDone(phase, elapsed)
	}
}

// TraceObserver records into a core.TraceRing
type TraceObserver struct {
	Ring *core.TraceRing
}

func (t TraceObserver) Transition(from, to State, c Context) {
	t.Ring.Record(core.TraceEvent{Kind: core.TraceTransition, From: uint8(from), To: uint8(to), Seconds: c.ElapsedSeconds})
}

func (t TraceObserver) Second(phase State, elapsed uint32) {
	t.Ring.Record(core.TraceEvent{Kind: core.TraceSecond, From: uint8(phase), To: uint8(phase), Seconds: elapsed})
}

func (t TraceObserver) PhaseDone(phase State, elapsed uint32) {
	t.Ring.Record(core.TraceEvent{Kind: core.TracePhaseDone, From: uint8(phase), To: uint8(phase), Seconds: elapsed})
}

// TransitionSink accepts transition reports; core.Service implements it
type TransitionSink interface {
	SendTransition(tr protocol.Transition) error
}

// LinkObserver forwards transitions over the service link
type LinkObserver struct {
	Sink    TransitionSink
	OnError func(error)
}

func (l LinkObserver) Transition(from, to State, c Context) {
	err := l.Sink.SendTransition(protocol.Transition{From: uint8(from), To: uint8(to), Elapsed: c.ElapsedSeconds})
	if err != nil && l.OnError != nil {
		l.OnError(err)
	}
}

func (LinkObserver) Second(State, uint32)    {}
func (LinkObserver) PhaseDone(State, uint32) {}
