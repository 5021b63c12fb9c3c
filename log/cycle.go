package log

import (
	"github.com/sirupsen/logrus"

	"washctl/cycle"
)

// CycleLogger logs control-loop progress. Transitions are logged at info,
// seconds at debug.
type CycleLogger struct {
	Log logrus.FieldLogger
}

func (l CycleLogger) Transition(from, to cycle.State, c cycle.Context) {
	fields := logrus.Fields{
		"func":    "Transition",
		"event":   EventTransition,
		"from":    from.String(),
		"to":      to.String(),
		"elapsed": c.ElapsedSeconds,
	}
	switch {
	case from == cycle.Config && to == cycle.Fill:
		fields["event"] = EventCycleStarted
		fields["water_level"] = c.Inputs.Level.String()
	case from == cycle.Dry && to == cycle.Idle:
		fields["event"] = EventCycleFinished
	case to == cycle.Idle && c.Resume != cycle.Idle:
		fields["resume"] = c.Resume.String()
	}
	l.Log.WithFields(fields).Infof("%s -> %s", from, to)
}

func (l CycleLogger) Second(phase cycle.State, elapsed uint32) {
	l.Log.WithFields(logrus.Fields{
		"func":    "Second",
		"event":   EventSecond,
		"state":   phase.String(),
		"elapsed": elapsed,
	}).Debug("tick")
}

func (l CycleLogger) PhaseDone(phase cycle.State, elapsed uint32) {
	l.Log.WithFields(logrus.Fields{
		"func":    "PhaseDone",
		"event":   EventPhaseDone,
		"state":   phase.String(),
		"elapsed": elapsed,
	}).Infof("%s done", phase)
}
