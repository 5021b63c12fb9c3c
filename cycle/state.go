// Package cycle implements the washing-cycle state machine: the control loop
// that sequences Config, Fill, Wash, Rinse and Dry from the latched inputs.
package cycle

import (
	"errors"
	"strconv"
)

// State is a control-loop state. Values match the state numbering reported
// over the service link.
type State uint8

const (
	Idle State = iota
	Config
	Fill
	Wash
	Rinse
	Dry
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Config:
		return "config"
	case Fill:
		return "fill"
	case Wash:
		return "wash"
	case Rinse:
		return "rinse"
	case Dry:
		return "dry"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler for the names String
// returns
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range States {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return errors.New("cycle: unknown state " + strconv.Quote(string(text)))
}

// IsPhase reports whether s is one of the four timed phases
func (s State) IsPhase() bool {
	return s >= Fill && s <= Dry
}

// States lists every state in cycle order
var States = []State{Idle, Config, Fill, Wash, Rinse, Dry}
