// Package telemetry exposes engine and API metrics on a dedicated prometheus
// registry and hands out prefixed loggers.
package telemetry

import (
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Telemetry bundles the prometheus collectors for the scoring service.
type Telemetry struct {
	Registry *prometheus.Registry

	RunsTotal     *prometheus.CounterVec
	RunDuration   prometheus.Histogram
	ScoresEmitted prometheus.Counter
	CacheHits     *prometheus.CounterVec
}

// New registers all collectors on a fresh registry.
func New() *Telemetry {
	t := &Telemetry{
		Registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alignator_runs_total",
			Help: "Scoring runs by final status.",
		}, []string{"status"}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "alignator_run_duration_seconds",
			Help:    "Wall time of one scoring run.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		ScoresEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "alignator_scores_emitted_total",
			Help: "AlignmentScore records produced.",
		}),
		CacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "alignator_score_cache_requests_total",
			Help: "Latest-score cache lookups by outcome.",
		}, []string{"outcome"}),
	}
	t.Registry.MustRegister(t.RunsTotal, t.RunDuration, t.ScoresEmitted, t.CacheHits)
	return t
}

// ObserveRun records one finished run.
func (t *Telemetry) ObserveRun(status string, took time.Duration, scores int) {
	t.RunsTotal.WithLabelValues(status).Inc()
	t.RunDuration.Observe(took.Seconds())
	t.ScoresEmitted.Add(float64(scores))
}

// Logger returns a stderr logger with the given bracketed prefix.
func Logger(prefix string) *log.Logger {
	return log.New(os.Stderr, prefix, log.LstdFlags)
}
