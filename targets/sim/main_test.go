//go:build !tinygo

package main

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"washctl/cycle"
	"washctl/metrics"
)

func TestCycleLimitStopsAfterCount(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := &cycleLimit{remaining: 2, stop: cancel}

	l.Transition(cycle.Wash, cycle.Idle, cycle.Context{})
	l.Transition(cycle.Dry, cycle.Idle, cycle.Context{})
	assert.NoError(t, ctx.Err())

	l.Transition(cycle.Dry, cycle.Idle, cycle.Context{})
	assert.Error(t, ctx.Err())
}

func TestMetricsMux(t *testing.T) {
	c := metrics.New("sim")
	c.Transition(cycle.Idle, cycle.Config, cycle.Context{})

	rec := httptest.NewRecorder()
	metricsMux(c).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "sim_transitions_total")
}
