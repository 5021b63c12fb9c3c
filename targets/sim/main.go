//go:build !tinygo

// sim runs the washer controller on the host. Outputs go to an in-memory
// port, inputs come from the console on stdin and, optionally, from a
// service panel on a serial device.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"washctl/config"
	"washctl/core"
	"washctl/cycle"
	"washctl/host/console"
	"washctl/host/serial"
	wlog "washctl/log"
	"washctl/metrics"
	"washctl/telemetry"
)

var (
	configPath = flag.String("config", "", "JSON configuration file")
	fast       = flag.Bool("fast", false, "Count phase seconds on a virtual clock")
	level      = flag.Int("level", 0, "Initial water level (0-3)")
	start      = flag.Bool("start", false, "Start with the start/pause flag set")
	cycles     = flag.Int("cycles", 0, "Exit after this many completed cycles (0 = run until interrupted)")
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

	log, err := wlog.New(cfg.Service.AppID, cfg.Service.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	defer func() {
		if r := recover(); r != nil {
			log.WithFields(logrus.Fields{
				"func":  "main",
				"event": wlog.EventPanic,
			}).Errorf("%s", r)
			os.Exit(1)
		}
	}()

	if err := run(cfg, log); err != nil && errors.Cause(err) != context.Canceled && err != console.ErrQuit {
		log.WithFields(logrus.Fields{
			"func":  "main",
			"event": wlog.EventSVCShutdown,
		}).Error(err)
		os.Exit(1)
	}
	log.WithField("event", wlog.EventSVCShutdown).Info("stopped")
}

func run(cfg *config.Config, log *logrus.Logger) error {
	if *level < 0 || *level > int(core.LevelHigh) {
		return errors.Errorf("level %d out of range", *level)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()
	defer cancel()

	latch := core.NewInputLatch()
	latch.SetLevel(core.WaterLevel(*level))
	if *start {
		latch.ToggleStartPause()
	}

	var tickClock core.Clock = core.SystemClock{}
	if *fast {
		tickClock = core.NewFakeClock(time.Now())
	}

	var collector *metrics.Collector
	countError := func(source string) {
		if collector != nil {
			collector.ErrorCounter(source)
		}
	}

	port := core.NewMemoryPort(64)
	m, err := cycle.New(cycle.Options{
		Inputs:       latch,
		Ticks:        core.NewTickSource(tickClock, uint32(cfg.Timer.OverflowsPerSecond)),
		Display:      core.NewDisplay(port, nil),
		Indicator:    core.NewIndicator(port),
		PollInterval: cfg.Timer.PollInterval(),
		OnError: func(err error) {
			countError("output")
			log.WithField("event", wlog.EventOutputError).Warn(err)
		},
	})
	if err != nil {
		return errors.Wrap(err, "cycle.New()")
	}

	observers := cycle.Observers{wlog.CycleLogger{Log: log}}

	if cfg.Metrics.Addr != "" {
		collector = metrics.New(cfg.Service.AppID)
		observers = append(observers, collector)
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(collector)}
		wg.Add(1)
		go func() {
			defer wg.Done()
			serveMetrics(ctx, srv, log)
		}()
	}
	if cfg.NATS.URL != "" {
		pub := telemetry.New(&telemetry.Cfg{
			URL:           cfg.NATS.URL,
			Subject:       cfg.NATS.Subject,
			Log:           log,
			RetryTimeout:  2 * time.Second,
			RetryAttempts: 3,
		})
		if err := pub.Start(ctx); err != nil {
			return err
		}
		defer func() {
			cancel()
			pub.Wait()
		}()
		observers = append(observers, pub)
	}

	if cfg.Serial.Device != "" {
		link, err := serial.Open(serial.FromConfig(cfg.Serial))
		if err != nil {
			return err
		}
		defer link.Close()

		svc := core.NewService(latch, m, link)
		observers = append(observers, cycle.LinkObserver{
			Sink: svc,
			OnError: func(err error) {
				countError("serial")
				log.WithField("event", wlog.EventLinkError).Warn(err)
			},
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := svc.Serve(ctx, link); err != nil && err != context.Canceled {
				countError("serial")
				log.WithField("event", wlog.EventLinkError).Error(err)
			}
		}()
	}

	if *cycles > 0 {
		observers = append(observers, &cycleLimit{remaining: *cycles, stop: cancel})
	}
	m.SetObserver(observers)

	events := console.NewEvents(func() error {
		logStatus(log, m, port)
		return nil
	})
	wg.Add(1)
	go func() {
		defer wg.Done()
		latch.Run(ctx, events.C)
	}()
	go func() {
		// stdin cannot be interrupted; this goroutine is not waited for
		if err := console.New(events, os.Stdout).Run(ctx, os.Stdin); err == console.ErrQuit {
			cancel()
		}
	}()

	log.WithFields(logrus.Fields{
		"func":  "run",
		"event": wlog.EventSVCStarted,
		"fast":  *fast,
	}).Info("controller started")

	return m.Run(ctx)
}

func logStatus(log logrus.FieldLogger, m *cycle.Machine, port *core.MemoryPort) {
	c := m.Snapshot()
	log.WithFields(logrus.Fields{
		"event":       wlog.EventStatus,
		"state":       c.State.String(),
		"resume":      c.Resume.String(),
		"water_level": c.Inputs.Level.String(),
		"start_pause": c.Inputs.StartPause,
		"elapsed":     c.ElapsedSeconds,
		"tank_full":   c.TankFull,
		"wash_done":   c.WashDone,
		"rinse_done":  c.RinseDone,
		"dry_done":    c.DryDone,
		"port_b":      fmt.Sprintf("0x%02X", port.Value(core.PortB)),
		"port_d":      fmt.Sprintf("0x%02X", port.Value(core.PortD)),
	}).Info("status")
}

// cycleLimit cancels the run after a number of completed cycles
type cycleLimit struct {
	mu        sync.Mutex
	remaining int
	stop      context.CancelFunc
}

func (l *cycleLimit) Transition(from, to cycle.State, _ cycle.Context) {
	if from != cycle.Dry || to != cycle.Idle {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.remaining--
	if l.remaining == 0 {
		l.stop()
	}
}

func (*cycleLimit) Second(cycle.State, uint32)    {}
func (*cycleLimit) PhaseDone(cycle.State, uint32) {}
