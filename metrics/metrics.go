// Package metrics exposes Prometheus instrumentation for watch-mode
// sync passes.
package metrics

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/c360studio/specsync/engine"
)

const namespace = "specsync"

// Pass outcome label values.
const (
	OutcomeUnchanged    = "unchanged"
	OutcomeAutoApplied  = "auto_applied"
	OutcomeManualReview = "manual_review_pending"
	OutcomeFailed       = "failed"
)

// Collector holds the Prometheus metrics for sync passes. Each Collector
// carries its own registry so repeated construction never collides on
// duplicate registration.
type Collector struct {
	registry *prometheus.Registry

	// PassesTotal counts completed passes by outcome.
	PassesTotal *prometheus.CounterVec

	// ChangesTotal counts detected changes by change type.
	ChangesTotal *prometheus.CounterVec

	// PassDuration measures wall-clock pass duration in seconds.
	PassDuration prometheus.Histogram

	// LastPassTimestamp records when the most recent pass finished.
	LastPassTimestamp prometheus.Gauge

	// ManualReviewItems tracks the manual-review backlog from the most
	// recent pass.
	ManualReviewItems prometheus.Gauge
}

// NewCollector creates a Collector with all metrics registered on a
// fresh registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,

		PassesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "passes_total",
				Help:      "Completed sync passes by outcome",
			},
			[]string{"outcome"},
		),

		ChangesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "changes_detected_total",
				Help:      "Detected spec changes by change type",
			},
			[]string{"type"},
		),

		PassDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "pass_duration_seconds",
				Help:      "Sync pass duration in seconds",
				Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
		),

		LastPassTimestamp: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_pass_timestamp_seconds",
				Help:      "Unix time of the most recent completed pass",
			},
		),

		ManualReviewItems: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "manual_review_items",
				Help:      "Manual-review items produced by the most recent pass",
			},
		),
	}
}

// ObservePass records the outcome of one sync pass.
func (c *Collector) ObservePass(result *engine.PassResult, err error, elapsed time.Duration) {
	c.PassesTotal.WithLabelValues(Outcome(result, err)).Inc()
	c.PassDuration.Observe(elapsed.Seconds())
	c.LastPassTimestamp.SetToCurrentTime()

	if err != nil || result == nil {
		return
	}
	for _, change := range result.Changes {
		c.ChangesTotal.WithLabelValues(change.Type.String()).Inc()
	}
	if result.Summary != nil {
		c.ManualReviewItems.Set(float64(len(result.Summary.ManualReviewItems)))
	} else {
		c.ManualReviewItems.Set(0)
	}
}

// Outcome maps a pass result to its metrics label.
func Outcome(result *engine.PassResult, err error) string {
	switch {
	case err != nil:
		return OutcomeFailed
	case result == nil:
		return OutcomeFailed
	case result.State == engine.StateUnchanged:
		return OutcomeUnchanged
	case result.Analysis != nil && len(result.Analysis.ManualReviewRequired) > 0:
		return OutcomeManualReview
	default:
		return OutcomeAutoApplied
	}
}

// Handler returns the HTTP handler exposing this collector's registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	logger.Info("Metrics endpoint listening", slog.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
