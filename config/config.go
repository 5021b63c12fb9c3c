// Package config loads the configuration of the hosted programs: the
// simulator and the service panel.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"washctl/core"
)

// Environment overrides, applied after the file is parsed.
const (
	EnvLogLevel    = "WASHCTL_LOG_LEVEL"
	EnvSerial      = "WASHCTL_SERIAL"
	EnvNATSURL     = "WASHCTL_NATS_URL"
	EnvMetricsAddr = "WASHCTL_METRICS_ADDR"
)

// UnusedPin marks a port bit with no pin attached.
const UnusedPin = -1

// Config is the complete controller configuration.
type Config struct {
	Timer   Timer   `json:"timer"`
	Pins    Pins    `json:"pins"`
	Service Service `json:"service"`
	Serial  Serial  `json:"serial"`
	Metrics Metrics `json:"metrics"`
	NATS    NATS    `json:"nats"`
}

// Timer calibrates the tick source.
type Timer struct {
	OverflowsPerSecond int `json:"overflows_per_second"`
	PollIntervalMS     int `json:"poll_interval_ms"`
}

// Pins maps the panel onto GPIO numbers. Display and Indicator are indexed
// by port bit; UnusedPin leaves a bit unconnected.
type Pins struct {
	Selector   []int  `json:"selector"`
	StartPause int    `json:"start_pause"`
	Display    []int  `json:"display"`
	Indicator  []int  `json:"indicator"`
	TM1637     TM1637 `json:"tm1637"`
}

// TM1637 configures the optional 4-digit mirror display. A zero CLK and DIO
// disables it.
type TM1637 struct {
	CLK        int   `json:"clk"`
	DIO        int   `json:"dio"`
	Brightness uint8 `json:"brightness"`
}

// Enabled reports whether a mirror display is wired.
func (t TM1637) Enabled() bool {
	return t.CLK != t.DIO
}

// Service holds the identity and verbosity of the running program.
type Service struct {
	AppID    string `json:"app_id"`
	LogLevel string `json:"log_level"`
}

// Serial configures the service link. An empty Device disables it.
type Serial struct {
	Device        string `json:"device"`
	Baud          int    `json:"baud"`
	ReadTimeoutMS int    `json:"read_timeout_ms"`
}

// Metrics configures the Prometheus endpoint. An empty Addr disables it.
type Metrics struct {
	Addr string `json:"addr"`
}

// NATS configures the telemetry publisher. An empty URL disables it.
type NATS struct {
	URL     string `json:"url"`
	Subject string `json:"subject"`
}

// Load parses a JSON configuration, applies defaults and environment
// overrides and validates the result.
func Load(data []byte) (*Config, error) {
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, errors.Wrap(err, "config: parse")
	}

	applyDefaults(&cfg)
	applyEnv(&cfg, os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFile reads and loads the configuration at path.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "config: read %s", path)
	}
	return Load(data)
}

// Default returns a working configuration for the RP2040 panel wiring and
// the simulator.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	// Timer0 at prescaler 1024 overflows about 31 times a second
	if cfg.Timer.OverflowsPerSecond == 0 {
		cfg.Timer.OverflowsPerSecond = core.OverflowsPerSecond
	}
	if cfg.Timer.PollIntervalMS == 0 {
		cfg.Timer.PollIntervalMS = 10
	}

	if cfg.Pins.Selector == nil {
		cfg.Pins.Selector = []int{2, 3, 4}
	}
	if cfg.Pins.StartPause == 0 {
		cfg.Pins.StartPause = 5
	}
	if cfg.Pins.Display == nil {
		cfg.Pins.Display = []int{6, 7, 8, 9, 10, 11, 12, 13}
	}
	// bits 2..5 carry the phase lamps
	if cfg.Pins.Indicator == nil {
		cfg.Pins.Indicator = []int{UnusedPin, UnusedPin, 14, 15, 16, 17, UnusedPin, UnusedPin}
	}
	if cfg.Pins.TM1637.Brightness == 0 {
		cfg.Pins.TM1637.Brightness = 5
	}

	if cfg.Service.AppID == "" {
		cfg.Service.AppID = "washctl"
	}
	if cfg.Service.LogLevel == "" {
		cfg.Service.LogLevel = "info"
	}

	if cfg.Serial.Baud == 0 {
		cfg.Serial.Baud = 250000
	}
	if cfg.Serial.ReadTimeoutMS == 0 {
		cfg.Serial.ReadTimeoutMS = 100
	}

	if cfg.NATS.Subject == "" {
		cfg.NATS.Subject = "washctl.cycle"
	}
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvLogLevel); ok {
		cfg.Service.LogLevel = v
	}
	if v, ok := lookup(EnvSerial); ok {
		cfg.Serial.Device = v
	}
	if v, ok := lookup(EnvNATSURL); ok {
		cfg.NATS.URL = v
	}
	if v, ok := lookup(EnvMetricsAddr); ok {
		cfg.Metrics.Addr = v
	}
}

// Validate checks the configuration for values the controller cannot run
// with.
func (c *Config) Validate() error {
	if c.Timer.OverflowsPerSecond < 1 || c.Timer.OverflowsPerSecond > 1000 {
		return errors.Errorf("timer: overflows_per_second %d out of range", c.Timer.OverflowsPerSecond)
	}
	if c.Timer.PollIntervalMS < 1 {
		return errors.New("timer: poll_interval_ms must be positive")
	}
	if err := c.Pins.validate(); err != nil {
		return errors.Wrap(err, "pins")
	}
	if _, err := logrus.ParseLevel(c.Service.LogLevel); err != nil {
		return errors.Wrap(err, "service")
	}
	if c.Serial.Device != "" && c.Serial.Baud <= 0 {
		return errors.New("serial: baud must be positive")
	}
	if c.NATS.URL != "" && c.NATS.Subject == "" {
		return errors.New("nats: subject is missing")
	}
	return nil
}

func (p Pins) validate() error {
	if len(p.Selector) != 3 {
		return errors.Errorf("selector needs 3 pins, got %d", len(p.Selector))
	}
	if len(p.Display) != 8 {
		return errors.Errorf("display needs 8 pins, got %d", len(p.Display))
	}
	if len(p.Indicator) != 8 {
		return errors.Errorf("indicator needs 8 pins, got %d", len(p.Indicator))
	}

	used := make(map[int]string)
	claim := func(pin int, what string) error {
		if pin == UnusedPin {
			return nil
		}
		if pin < 0 {
			return errors.Errorf("%s: invalid pin %d", what, pin)
		}
		if prev, ok := used[pin]; ok {
			return errors.Errorf("%s: pin %d already used by %s", what, pin, prev)
		}
		used[pin] = what
		return nil
	}

	for i, pin := range p.Selector {
		if err := claim(pin, "selector "+strconv.Itoa(i)); err != nil {
			return err
		}
	}
	if err := claim(p.StartPause, "start_pause"); err != nil {
		return err
	}
	for i, pin := range p.Display {
		if err := claim(pin, "display bit "+strconv.Itoa(i)); err != nil {
			return err
		}
	}
	for i, pin := range p.Indicator {
		if err := claim(pin, "indicator bit "+strconv.Itoa(i)); err != nil {
			return err
		}
	}
	if p.TM1637.Enabled() {
		if err := claim(p.TM1637.CLK, "tm1637 clk"); err != nil {
			return err
		}
		if err := claim(p.TM1637.DIO, "tm1637 dio"); err != nil {
			return err
		}
	}
	return nil
}

// PollInterval returns the idle pacing of the control loop.
func (t Timer) PollInterval() time.Duration {
	return time.Duration(t.PollIntervalMS) * time.Millisecond
}

// ReadTimeout returns the serial read timeout.
func (s Serial) ReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeoutMS) * time.Millisecond
}

// PinMap converts a port bit mapping to the HAL form.
func PinMap(pins []int) core.PinMap {
	m := core.UnusedPins()
	for i := 0; i < len(pins) && i < len(m); i++ {
		if pins[i] != UnusedPin {
			m[i] = core.GPIOPin(pins[i])
		}
	}
	return m
}
