package cycle

import "washctl/core"

var (
	washSeconds  = [...]uint32{core.LevelLow: 3, core.LevelMedium: 7, core.LevelHigh: 10}
	rinseSeconds = [...]uint32{core.LevelLow: 2, core.LevelMedium: 4, core.LevelHigh: 5}
)

// Threshold returns how many seconds phase lasts at level. ok is false for
// states that are not timed phases and for an unselected level.
func Threshold(phase State, level core.WaterLevel) (seconds uint32, ok bool) {
	if !level.Valid() {
		return 0, false
	}
	switch phase {
	case Fill:
		return uint32(level), true
	case Wash:
		return washSeconds[level], true
	case Rinse:
		return rinseSeconds[level], true
	case Dry:
		return 3 * uint32(level), true
	default:
		return 0, false
	}
}

// CycleDuration is the total of all phase thresholds at level
func CycleDuration(level core.WaterLevel) uint32 {
	var total uint32
	for _, s := range []State{Fill, Wash, Rinse, Dry} {
		d, _ := Threshold(s, level)
		total += d
	}
	return total
}

// indicatorFor maps a phase to its lamp
func indicatorFor(phase State) core.IndicatorPattern {
	switch phase {
	case Fill:
		return core.IndicatorFilling
	case Wash:
		return core.IndicatorWashing
	case Rinse:
		return core.IndicatorRinsing
	case Dry:
		return core.IndicatorDrying
	default:
		return core.IndicatorOff
	}
}

// nextPhase is the state entered when phase completes
func nextPhase(phase State) State {
	switch phase {
	case Fill:
		return Wash
	case Wash:
		return Rinse
	case Rinse:
		return Dry
	default:
		return Idle
	}
}
