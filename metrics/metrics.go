package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"hermannm.dev/webanalytics/db"
)

// Prometheus collectors for analytics queries. Implements db.QueryObserver.
type QueryMetrics struct {
	registry *prometheus.Registry
	duration *prometheus.HistogramVec
	queries  *prometheus.CounterVec
}

// Query outcomes used as the "outcome" label.
const (
	OutcomeSuccess      = "success"
	OutcomeInvalidInput = "invalid_input"
	OutcomeTimeout      = "timeout"
	OutcomeError        = "error"
)

func NewQueryMetrics() QueryMetrics {
	registry := prometheus.NewRegistry()

	metrics := QueryMetrics{
		registry: registry,
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "webanalytics",
				Name:      "query_duration_seconds",
				Help:      "Duration of analytics queries against the database backend.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"backend", "operation"},
		),
		queries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "webanalytics",
				Name:      "queries_total",
				Help:      "Analytics queries by backend, operation and outcome.",
			},
			[]string{"backend", "operation", "outcome"},
		),
	}

	registry.MustRegister(
		metrics.duration,
		metrics.queries,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return metrics
}

func (metrics QueryMetrics) ObserveQuery(
	backend string,
	operation db.Operation,
	duration time.Duration,
	err error,
) {
	metrics.duration.WithLabelValues(backend, operation.String()).Observe(duration.Seconds())
	metrics.queries.WithLabelValues(backend, operation.String(), outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSuccess
	case db.IsInputError(err):
		return OutcomeInvalidInput
	case errors.Is(err, context.DeadlineExceeded):
		return OutcomeTimeout
	default:
		return OutcomeError
	}
}

func (metrics QueryMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(metrics.registry, promhttp.HandlerOpts{})
}

func (metrics QueryMetrics) Registry() *prometheus.Registry {
	return metrics.registry
}
