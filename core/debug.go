package core

// DebugWriter receives human-readable diagnostic lines
type DebugWriter func(string)

// TraceKind classifies a trace entry
type TraceKind uint8

const (
	TraceTransition TraceKind = iota + 1 // committed state change
	TraceSecond                          // one second counted in a phase
	TracePhaseDone                       // a phase reached its threshold
	TraceInput                           // input latch changed
)

func (k TraceKind) String() string {
	switch k {
	case TraceTransition:
		return "transition"
	case TraceSecond:
		return "second"
	case TracePhaseDone:
		return "phase_done"
	case TraceInput:
		return "input"
	default:
		return "unknown"
	}
}

// TraceEvent is one entry of the trace ring. From and To are state codes;
// for TraceSecond and TracePhaseDone both hold the phase.
type TraceEvent struct {
	Kind    TraceKind
	From    uint8
	To      uint8
	Seconds uint32
}

// TraceRingSize is the number of entries kept for post-mortem inspection
const TraceRingSize = 32

// TraceRing keeps the most recent trace events without allocating
type TraceRing struct {
	entries [TraceRingSize]TraceEvent
	head    uint8 // next write position
	count   uint8
	writer  DebugWriter
}

// NewTraceRing creates a trace ring. writer, if set, also receives a line
// per recorded event.
func NewTraceRing(writer DebugWriter) *TraceRing {
	return &TraceRing{writer: writer}
}

// Record appends an event, overwriting the oldest when full
func (r *TraceRing) Record(ev TraceEvent) {
	state := disableInterrupts()
	r.entries[r.head] = ev
	r.head = (r.head + 1) % TraceRingSize
	if r.count < TraceRingSize {
		r.count++
	}
	restoreInterrupts(state)

	if r.writer != nil {
		r.writer(ev.Kind.String() + " " + itoa(int(ev.From)) + "->" + itoa(int(ev.To)) + " t=" + itoa(int(ev.Seconds)))
	}
}

// Entries returns the recorded events, oldest first
func (r *TraceRing) Entries() []TraceEvent {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	out := make([]TraceEvent, 0, r.count)
	start := (int(r.head) - int(r.count) + TraceRingSize) % TraceRingSize
	for i := 0; i < int(r.count); i++ {
		out = append(out, r.entries[(start+i)%TraceRingSize])
	}
	return out
}

// Reset discards all entries
func (r *TraceRing) Reset() {
	state := disableInterrupts()
	r.head = 0
	r.count = 0
	restoreInterrupts(state)
}
