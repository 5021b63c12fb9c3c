package cycle

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"washctl/core"
)

func TestThresholds(t *testing.T) {
	levels := []core.WaterLevel{core.LevelLow, core.LevelMedium, core.LevelHigh}
	want := map[State][3]uint32{
		Fill:  {1, 2, 3},
		Wash:  {3, 7, 10},
		Rinse: {2, 4, 5},
		Dry:   {3, 6, 9},
	}

	for phase, secs := range want {
		for i, level := range levels {
			got, ok := Threshold(phase, level)
			assert.True(t, ok, "%v at %v", phase, level)
			assert.Equal(t, secs[i], got, "%v at %v", phase, level)
		}
	}
}

func TestThresholdRejects(t *testing.T) {
	_, ok := Threshold(Wash, core.LevelNone)
	assert.False(t, ok)
	_, ok = Threshold(Idle, core.LevelLow)
	assert.False(t, ok)
	_, ok = Threshold(Config, core.LevelHigh)
	assert.False(t, ok)
}

func TestCycleDuration(t *testing.T) {
	assert.EqualValues(t, 9, CycleDuration(core.LevelLow))
	assert.EqualValues(t, 19, CycleDuration(core.LevelMedium))
	assert.EqualValues(t, 27, CycleDuration(core.LevelHigh))
	assert.EqualValues(t, 0, CycleDuration(core.LevelNone))
}

func TestStateStrings(t *testing.T) {
	names := []string{"idle", "config", "fill", "wash", "rinse", "dry"}
	for i, s := range States {
		assert.Equal(t, names[i], s.String())
		text, err := s.MarshalText()
		assert.NoError(t, err)
		assert.Equal(t, names[i], string(text))
	}
	assert.Equal(t, "unknown", State(42).String())
	assert.True(t, Fill.IsPhase())
	assert.False(t, Config.IsPhase())
}

func TestStateTextRoundTrip(t *testing.T) {
	for _, s := range States {
		text, err := s.MarshalText()
		assert.NoError(t, err)

		var got State
		assert.NoError(t, got.UnmarshalText(text))
		assert.Equal(t, s, got)
	}

	var s State
	assert.Error(t, s.UnmarshalText([]byte("spin")))
}
