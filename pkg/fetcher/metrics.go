package fetcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchesTotal counts resolved fetches by end, kind and result.
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_fetches_total",
			Help: "Total number of resolved page fetches",
		},
		[]string{"end", "kind", "result"}, // kind: "initial", "next"; result: "complete", "error"
	)

	// FetchDuration tracks how long the fetch primitive took.
	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "relay_fetch_duration_seconds",
			Help:    "Page fetch duration in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"end", "kind"},
	)

	// FetchesInFlight tracks fetches that have not resolved yet.
	FetchesInFlight = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "relay_fetches_in_flight",
			Help: "Number of page fetches currently in flight",
		},
		[]string{"kind"},
	)
)

func kindLabel(initial bool) string {
	if initial {
		return "initial"
	}
	return "next"
}
