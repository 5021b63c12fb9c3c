package protocol

// Command IDs (host -> controller)
const (
	MsgToggleStartPause uint16 = iota
	MsgSetLevel
	MsgGetStatus
	// Response IDs (controller -> host)
	MsgStatus
	MsgTransition
)

// MessageNames maps every message ID to its name
var MessageNames = map[uint16]string{
	MsgToggleStartPause: "toggle_start_pause",
	MsgSetLevel:         "set_water_level",
	MsgGetStatus:        "get_status",
	MsgStatus:           "status",
	MsgTransition:       "transition",
}

// Status flag bits
const (
	FlagTankFull uint8 = 1 << iota
	FlagWashDone
	FlagRinseDone
	FlagDryDone
)

// Status is the controller state reported over the link. State values use
// the controller's state numbering (0 = idle ... 5 = dry).
type Status struct {
	State      uint8
	Pending    uint8
	Resume     uint8
	Level      uint8
	StartPause bool
	Elapsed    uint32
	Flags      uint8
}

// Transition reports a committed state change
type Transition struct {
	From    uint8
	To      uint8
	Elapsed uint32
}

func boolToUint(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// EncodeStatus writes the status message arguments
func EncodeStatus(output OutputBuffer, s Status) {
	EncodeVLQUint(output, uint32(s.State))
	EncodeVLQUint(output, uint32(s.Pending))
	EncodeVLQUint(output, uint32(s.Resume))
	EncodeVLQUint(output, uint32(s.Level))
	EncodeVLQUint(output, boolToUint(s.StartPause))
	EncodeVLQUint(output, s.Elapsed)
	EncodeVLQUint(output, uint32(s.Flags))
}

// DecodeStatus reads the status message arguments
func DecodeStatus(data *[]byte) (Status, error) {
	var (
		s    Status
		vals [7]uint32
	)
	for i := range vals {
		v, err := DecodeVLQUint(data)
		if err != nil {
			return s, err
		}
		vals[i] = v
	}
	s.State = uint8(vals[0])
	s.Pending = uint8(vals[1])
	s.Resume = uint8(vals[2])
	s.Level = uint8(vals[3])
	s.StartPause = vals[4] != 0
	s.Elapsed = vals[5]
	s.Flags = uint8(vals[6])
	return s, nil
}

// EncodeTransition writes the transition message arguments
func EncodeTransition(output OutputBuffer, t Transition) {
	EncodeVLQUint(output, uint32(t.From))
	EncodeVLQUint(output, uint32(t.To))
	EncodeVLQUint(output, t.Elapsed)
}

// DecodeTransition reads the transition message arguments
func DecodeTransition(data *[]byte) (Transition, error) {
	var t Transition
	from, err := DecodeVLQUint(data)
	if err != nil {
		return t, err
	}
	to, err := DecodeVLQUint(data)
	if err != nil {
		return t, err
	}
	elapsed, err := DecodeVLQUint(data)
	if err != nil {
		return t, err
	}
	t.From, t.To, t.Elapsed = uint8(from), uint8(to), elapsed
	return t, nil
}
