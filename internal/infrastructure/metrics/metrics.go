// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recordhub_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recordhub_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
	// TranslationsTotal counts filter translations by form and outcome kind ("ok" on success).
	TranslationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recordhub_filter_translations_total",
			Help: "Total number of filter translations",
		},
		[]string{"form", "kind"},
	)
	// ExecutionDuration is the latency of query executions.
	ExecutionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recordhub_query_execution_duration_seconds",
			Help:    "Query executor latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)
	// JobRunsTotal counts background job runs.
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recordhub_job_runs_total",
			Help: "Total number of background job runs",
		},
		[]string{"job", "status"},
	)
)

// SearchObserver records translation and execution outcomes.
type SearchObserver struct{}

// ObserveTranslation counts one translation. An empty kind means success.
func (SearchObserver) ObserveTranslation(form string, kind string) {
	if kind == "" {
		kind = "ok"
	}
	TranslationsTotal.WithLabelValues(form, kind).Inc()
}

// ObserveExecution records one executor call.
func (SearchObserver) ObserveExecution(d time.Duration, err error) {
	ExecutionDuration.WithLabelValues(Status(err)).Observe(d.Seconds())
}

// Status maps an error to an "ok"/"error" label.
func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
