// Package metrics exports control-loop progress to Prometheus.
package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"washctl/cycle"
)

// Collector is a cycle.Observer that keeps Prometheus metrics. It registers
// on its own registry so several collectors can coexist in one process.
type Collector struct {
	registry *prometheus.Registry
	now      func() time.Time

	transitions *prometheus.CounterVec
	seconds     *prometheus.CounterVec
	phasesDone  *prometheus.CounterVec
	cycles      prometheus.Counter
	state       prometheus.Gauge
	cycleTiming prometheus.Summary
	errors      *prometheus.CounterVec

	mu         sync.Mutex
	cycleStart time.Time
}

// New creates a collector. appID becomes the metric namespace.
func New(appID string) *Collector {
	r := strings.NewReplacer(
		"-", "_",
		" ", "_",
		".", "_")
	ns := r.Replace(appID)

	c := &Collector{
		registry: prometheus.NewRegistry(),
		now:      time.Now,
		transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "transitions_total",
				Help:      fmt.Sprintf("%s state transitions", ns),
			},
			[]string{"from", "to"},
		),
		seconds: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "phase_seconds_total",
				Help:      "Seconds counted in each timed phase",
			},
			[]string{"phase"},
		),
		phasesDone: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "phases_completed_total",
				Help:      "Timed phases that reached their threshold",
			},
			[]string{"phase"},
		),
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "cycles_completed_total",
			Help:      "Cycles that finished Dry",
		}),
		state: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "state",
			Help:      "Current state number (0 idle, 1 config, 2 fill, 3 wash, 4 rinse, 5 dry)",
		}),
		cycleTiming: prometheus.NewSummary(prometheus.SummaryOpts{
			Namespace: ns,
			Name:      "cycle_duration_seconds",
			Help:      "Wall time from leaving Config to finishing Dry, pauses included",
		}),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: ns,
				Name:      "error_counter",
				Help:      fmt.Sprintf("%s error counter", ns),
			},
			[]string{"source"},
		),
	}

	c.registry.MustRegister(
		c.transitions,
		c.seconds,
		c.phasesDone,
		c.cycles,
		c.state,
		c.cycleTiming,
		c.errors,
	)
	return c
}

// Registry exposes the underlying registry
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the collector's metrics
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// ErrorCounter counts a failure of source
func (c *Collector) ErrorCounter(source string) {
	c.errors.
		WithLabelValues(source).
		Inc()
}

func (c *Collector) Transition(from, to cycle.State, _ cycle.Context) {
	c.transitions.WithLabelValues(from.String(), to.String()).Inc()
	c.state.Set(float64(to))

	c.mu.Lock()
	defer c.mu.Unlock()
	switch {
	case from == cycle.Config && to == cycle.Fill:
		c.cycleStart = c.now()
	case from == cycle.Dry && to == cycle.Idle:
		c.cycles.Inc()
		if !c.cycleStart.IsZero() {
			c.cycleTiming.Observe(c.now().Sub(c.cycleStart).Seconds())
			c.cycleStart = time.Time{}
		}
	}
}

func (c *Collector) Second(phase cycle.State, elapsed uint32) {
	c.seconds.WithLabelValues(phase.String()).Inc()
}

func (c *Collector) PhaseDone(phase cycle.State, elapsed uint32) {
	c.phasesDone.WithLabelValues(phase.String()).Inc()
}
