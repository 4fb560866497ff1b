// Package metrics exposes the Prometheus metrics of the pager over HTTP.
// The collectors themselves live in their packages (controller, fetcher,
// client, ratelimit, cache) and register with the default registry via
// promauto.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the registerer all collectors of this module use.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the gatherer scraped by Handler.
var Gatherer = prometheus.DefaultGatherer

// Path is where NewServer serves metrics.
const Path = "/metrics"

// Handler returns the scrape handler for Gatherer.
func Handler() http.Handler {
	return promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{})
}

// NewServer returns an HTTP server exposing Handler at Path on addr.
func NewServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(Path, Handler())
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

// Metrics Documentation
//
// Controller Metrics (pkg/controller):
//   - relay_contract_violations_total{op, reason} (Counter): Rejected load calls
//   - relay_stale_results_total{end, kind} (Counter): Results of replaced fetchers discarded
//   - relay_pages_ingested_total{end, kind} (Counter): Pages merged into the page list
//
// Fetcher Metrics (pkg/fetcher):
//   - relay_fetches_total{end, kind, result} (Counter): Resolved fetches by result
//   - relay_fetch_duration_seconds{end, kind} (Histogram): Fetch primitive duration
//   - relay_fetches_in_flight{kind} (Gauge): Fetches currently running
//
// Source Metrics (pkg/client):
//   - relay_source_requests_total{end, status} (Counter): HTTP requests by end and status
//   - relay_source_request_duration_seconds{end} (Histogram): Request duration including retries
//   - relay_source_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network, decode)
//   - relay_source_retries_total{error_class} (Counter): Retry attempts by error class
//   - relay_source_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - relay_source_retry_exhausted_total{error_class} (Counter): Requests that exhausted retries
//
// Error Budget Metrics (pkg/ratelimit):
//   - relay_source_errors_remaining{source} (Gauge): Errors remaining in the budget window
//   - relay_source_budget_blocks_total{source} (Counter): Requests blocked by a critical budget
//   - relay_source_budget_throttles_total{source} (Counter): Requests delayed by a low budget
//
// Cache Metrics (pkg/cache):
//   - relay_cache_page_lookups_total{result} (Counter): Stored page lookups (hit, miss, expired)
//   - relay_cache_page_bytes_total{direction} (Counter): Encoded page bytes read and written
//   - relay_cache_bypass_total (Counter): Requests without cursor that skipped the cache
//   - relay_cache_invalidated_pages_total (Counter): Pages deleted by namespace invalidation
//   - relay_cache_errors_total{operation} (Counter): Failed cache operations
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(relay_cache_page_lookups_total{result="hit"}[5m])) /
//   sum(rate(relay_cache_page_lookups_total[5m]))
//
//   # Error Budget Status
//   relay_source_errors_remaining < 20
//
//   # Stale Result Rate
//   rate(relay_stale_results_total[5m])
//
//   # P95 Fetch Latency
//   histogram_quantile(0.95, rate(relay_fetch_duration_seconds_bucket[5m]))
