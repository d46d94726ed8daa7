// Package metrics exposes Prometheus counters and histograms for the HTTP surface and the
// question-answering pipeline. Collectors register on the default registry at init.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asistentebi_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asistentebi_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	askOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asistentebi_ask_outcomes_total",
			Help: "Questions answered, by terminal pipeline state.",
		},
		[]string{"outcome"},
	)

	sqlRetriesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "asistentebi_sql_retries_total",
			Help: "Model retry turns triggered by a failed SQL execution.",
		},
	)

	modelErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "asistentebi_model_errors_total",
			Help: "Failed model invocations, by error type.",
		},
		[]string{"type"},
	)

	modelLatencySeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "asistentebi_model_latency_seconds",
			Help:    "Model invocation latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30, 60},
		},
	)

	sqlLatencySeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "asistentebi_sql_latency_seconds",
			Help:    "Generated SQL execution latency, by result.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDurationSeconds,
		askOutcomesTotal,
		sqlRetriesTotal,
		modelErrorsTotal,
		modelLatencySeconds,
		sqlLatencySeconds,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
