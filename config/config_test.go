package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"washctl/core"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, core.OverflowsPerSecond, cfg.Timer.OverflowsPerSecond)
	assert.Equal(t, 10*time.Millisecond, cfg.Timer.PollInterval())
	assert.Equal(t, "washctl", cfg.Service.AppID)
	assert.Equal(t, "info", cfg.Service.LogLevel)
	assert.False(t, cfg.Pins.TM1637.Enabled())
	assert.Empty(t, cfg.Serial.Device)
}

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load([]byte(`{"service": {"app_id": "sim"}, "serial": {"device": "/dev/ttyUSB0"}}`))
	require.NoError(t, err)
	assert.Equal(t, "sim", cfg.Service.AppID)
	assert.Equal(t, "/dev/ttyUSB0", cfg.Serial.Device)
	assert.Equal(t, 250000, cfg.Serial.Baud)
	assert.Equal(t, 100*time.Millisecond, cfg.Serial.ReadTimeout())
	assert.Len(t, cfg.Pins.Display, 8)
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"bad json":       `{"timer":`,
		"timer range":    `{"timer": {"overflows_per_second": 5000}}`,
		"selector count": `{"pins": {"selector": [1, 2]}}`,
		"pin conflict":   `{"pins": {"start_pause": 6}}`,
		"negative pin":   `{"pins": {"display": [-2, 20, 21, 22, 23, 24, 25, 26]}}`,
		"log level":      `{"service": {"log_level": "chatty"}}`,
		"tm1637 clash":   `{"pins": {"tm1637": {"clk": 2, "dio": 27}}}`,
	}
	for name, data := range cases {
		_, err := Load([]byte(data))
		assert.Error(t, err, name)
	}
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		EnvLogLevel:    "debug",
		EnvSerial:      "/dev/ttyACM0",
		EnvNATSURL:     "nats://localhost:4222",
		EnvMetricsAddr: ":9100",
	}
	applyEnv(cfg, func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})

	assert.Equal(t, "debug", cfg.Service.LogLevel)
	assert.Equal(t, "/dev/ttyACM0", cfg.Serial.Device)
	assert.Equal(t, "nats://localhost:4222", cfg.NATS.URL)
	assert.Equal(t, ":9100", cfg.Metrics.Addr)
	assert.NoError(t, cfg.Validate())
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "washctl.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"timer": {"poll_interval_ms": 25}}`), 0o644))

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 25*time.Millisecond, cfg.Timer.PollInterval())

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestPinMap(t *testing.T) {
	m := PinMap([]int{4, UnusedPin, 6})
	assert.Equal(t, core.GPIOPin(4), m[0])
	assert.Equal(t, core.NoPin, m[1])
	assert.Equal(t, core.GPIOPin(6), m[2])
	assert.Equal(t, core.NoPin, m[7])
}
