// Package metrics exposes Prometheus counters for snapshot runs and content fetches.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/temirov/repoctx/internal/types"
)

// Run results recorded by ObserveRun.
const (
	ResultSuccess          = "success"
	ResultInvalidLocator   = "invalid_identifier"
	ResultNotFound         = "not_found"
	ResultTreeFetchFailure = "tree_fetch_failed"
	ResultError            = "error"
)

// Metrics holds the collectors, registered on a private registry so several
// instances can coexist in one process.
//
// Metrics:
//   - repoctx_fetch_outcomes_total{status} - content fetches by outcome
//   - repoctx_pipeline_runs_total{result} - snapshot runs by result
//   - repoctx_pipeline_duration_seconds - snapshot run latency
type Metrics struct {
	registry         *prometheus.Registry
	fetchOutcomes    *prometheus.CounterVec
	pipelineRuns     *prometheus.CounterVec
	pipelineDuration prometheus.Histogram
}

// New creates and registers the collectors.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	return &Metrics{
		registry: registry,
		fetchOutcomes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repoctx_fetch_outcomes_total",
				Help: "Total number of content fetches by outcome",
			},
			[]string{"status"}, // "fetched", "too_large" or "failed"
		),
		pipelineRuns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "repoctx_pipeline_runs_total",
				Help: "Total number of snapshot runs by result",
			},
			[]string{"result"},
		),
		pipelineDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "repoctx_pipeline_duration_seconds",
				Help:    "Duration of snapshot runs in seconds",
				Buckets: prometheus.ExponentialBuckets(0.05, 2, 10), // 50ms to ~25s
			},
		),
	}
}

// ObserveFetch records one content fetch outcome.
func (m *Metrics) ObserveFetch(status types.FetchStatus) {
	if m == nil {
		return
	}
	m.fetchOutcomes.WithLabelValues(string(status)).Inc()
}

// ObserveRun records a finished snapshot run.
func (m *Metrics) ObserveRun(result string, duration time.Duration) {
	if m == nil {
		return
	}
	m.pipelineRuns.WithLabelValues(result).Inc()
	m.pipelineDuration.Observe(duration.Seconds())
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
