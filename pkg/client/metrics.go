package client

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for page requests against a connection source.
var (
	relaySourceRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_source_requests_total",
		Help: "Total page requests by end and status",
	}, []string{"end", "status"})

	relaySourceRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_source_request_duration_seconds",
		Help:    "Page request duration in seconds by end, including retries",
		Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10},
	}, []string{"end"})

	relaySourceErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_source_errors_total",
		Help: "Total failed page request attempts by error class",
	}, []string{"class"})

	relaySourceRetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_source_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	relaySourceRetryBackoffSeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "relay_source_retry_backoff_seconds",
		Help:    "Backoff duration for retries by error class",
		Buckets: []float64{0.01, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"error_class"})

	relaySourceRetryExhaustedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_source_retry_exhausted_total",
		Help: "Total number of times retry attempts were exhausted by error class",
	}, []string{"error_class"})
)
