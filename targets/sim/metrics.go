//go:build !tinygo

package main

import (
	"context"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	wlog "washctl/log"
	"washctl/metrics"
)

func metricsMux(c *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	return mux
}

// serveMetrics runs srv until ctx is done
func serveMetrics(ctx context.Context, srv *http.Server, log logrus.FieldLogger) {
	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()

	log.WithFields(logrus.Fields{
		"func":  "serveMetrics",
		"event": wlog.EventMetricsStarted,
		"addr":  srv.Addr,
	}).Info("serving /metrics")

	select {
	case err := <-errc:
		if err != http.ErrServerClosed {
			log.WithField("func", "serveMetrics").Error(err)
		}
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}
}
