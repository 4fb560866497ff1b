package controller

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for controller orchestration.
var (
	relayContractViolationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_contract_violations_total",
		Help: "Total load calls rejected because the controller state did not allow them",
	}, []string{"op", "reason"})

	relayStaleResultsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_stale_results_total",
		Help: "Total fetcher results discarded because the fetcher had been replaced",
	}, []string{"end", "kind"})

	relayPagesIngestedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_pages_ingested_total",
		Help: "Total pages stored, by end and kind (initial resets or next-page ingests)",
	}, []string{"end", "kind"})
)
