// washer-panel is an operator console for a washer controller connected
// over its service link.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"washctl/config"
	"washctl/core"
	"washctl/cycle"
	"washctl/host/console"
	"washctl/host/mcu"
	"washctl/host/serial"
	wlog "washctl/log"
	"washctl/protocol"
)

var (
	configPath = flag.String("config", "", "JSON configuration file")
	device     = flag.String("device", "", "Serial device path (overrides the configuration)")
	timeout    = flag.Duration("timeout", 2*time.Second, "Status request timeout")
)

func main() {
	flag.Parse()

	cfg := config.Default()
	if *configPath != "" {
		var err error
		if cfg, err = config.LoadFile(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}
	if *device != "" {
		cfg.Serial.Device = *device
	}
	if cfg.Serial.Device == "" {
		cfg.Serial.Device = "/dev/ttyACM0"
	}

	log, err := wlog.New(cfg.Service.AppID+"-panel", cfg.Service.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if err := run(cfg, log); err != nil && err != console.ErrQuit && err != context.Canceled {
		log.WithField("event", wlog.EventSVCShutdown).Error(err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *logrus.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	m := mcu.NewMCU()
	if err := m.Connect(serial.FromConfig(cfg.Serial)); err != nil {
		return err
	}
	defer m.Close()

	log.WithFields(logrus.Fields{
		"func":   "run",
		"event":  wlog.EventSVCStarted,
		"device": cfg.Serial.Device,
	}).Info("connected")

	m.OnTransition(func(tr protocol.Transition) {
		log.WithFields(logrus.Fields{
			"event":   wlog.EventTransition,
			"from":    cycle.State(tr.From).String(),
			"to":      cycle.State(tr.To).String(),
			"elapsed": tr.Elapsed,
		}).Info("controller transition")
	})

	h := &panel{mcu: m, log: log, timeout: *timeout}
	fmt.Println(console.Usage)
	return console.New(h, os.Stdout).Run(ctx, os.Stdin)
}

// panel forwards console commands to the controller
type panel struct {
	mcu     *mcu.MCU
	log     logrus.FieldLogger
	timeout time.Duration
}

func (p *panel) Toggle() error {
	return p.mcu.ToggleStartPause()
}

func (p *panel) SetLevel(level core.WaterLevel) error {
	return p.mcu.SetWaterLevel(level)
}

func (p *panel) Status() error {
	st, err := p.mcu.GetStatus(p.timeout)
	if err != nil {
		return err
	}
	logStatus(p.log, st)
	return nil
}

func logStatus(log logrus.FieldLogger, st protocol.Status) {
	log.WithFields(logrus.Fields{
		"event":       wlog.EventStatus,
		"state":       cycle.State(st.State).String(),
		"resume":      cycle.State(st.Resume).String(),
		"water_level": core.WaterLevel(st.Level).String(),
		"start_pause": st.StartPause,
		"elapsed":     st.Elapsed,
		"tank_full":   st.Flags&protocol.FlagTankFull != 0,
		"wash_done":   st.Flags&protocol.FlagWashDone != 0,
		"rinse_done":  st.Flags&protocol.FlagRinseDone != 0,
		"dry_done":    st.Flags&protocol.FlagDryDone != 0,
	}).Info("status")
}
