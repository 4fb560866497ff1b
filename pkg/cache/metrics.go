package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Lookup results.
const (
	lookupHit     = "hit"
	lookupMiss    = "miss"
	lookupExpired = "expired"
)

var (
	// PageLookups counts Redis lookups of stored pages by result. An entry
	// whose own expiry passed before Redis evicted it counts as expired.
	PageLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_cache_page_lookups_total",
			Help: "Stored page lookups by result (hit, miss, expired)",
		},
		[]string{"result"},
	)

	// PageBytes counts encoded page bytes moved to and from Redis.
	PageBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_cache_page_bytes_total",
			Help: "Encoded page bytes read from and written to Redis",
		},
		[]string{"direction"}, // "read", "write"
	)

	// CacheBypass counts cursor-less requests sent straight to the source so
	// a reload never serves a stale first page.
	CacheBypass = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_cache_bypass_total",
			Help: "Initial page requests that skipped the page cache",
		},
	)

	// InvalidatedPages counts pages removed by namespace invalidation.
	InvalidatedPages = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "relay_cache_invalidated_pages_total",
			Help: "Stored pages deleted by namespace invalidation",
		},
	)

	// CacheErrors counts failed cache operations. Every one of them falls
	// back to the source or leaves the page uncached.
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_cache_errors_total",
			Help: "Failed page cache operations",
		},
		[]string{"operation"}, // "get", "set", "delete", "invalidate", "decode", "encode"
	)
)
