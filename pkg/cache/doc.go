// Package cache caches fetched connection pages in Redis.
//
// Pages are stored as their JSON encoding under a deterministic key built
// from a namespace, the endpoint and the Relay arguments of the request.
// Entries expire with their TTL; Redis drops them at the same time.
//
// # Basic Usage
//
//	manager := cache.NewManager(redisClient)
//
//	source := cache.NewSource[Item](httpSource, manager, cache.SourceConfig{
//		Namespace: "items",
//		Endpoint:  "/v1/items",
//		TTL:       5 * time.Minute,
//	})
//
//	ctrl, err := controller.New[Item, Item](controller.DefaultConfig(), source, connection.Identity[Item]())
//
// Requests without a cursor load the newest page of a connection and bypass
// the cache unless SourceConfig.CacheInitial is set, so a refresh always
// reaches the origin. Cache failures are logged and the request falls back to
// the wrapped source.
//
// # Metrics
//
//   - relay_cache_page_lookups_total{result} - Lookups (hit, miss, expired)
//   - relay_cache_page_bytes_total{direction} - Encoded bytes read and written
//   - relay_cache_bypass_total - Initial page requests that skipped the cache
//   - relay_cache_invalidated_pages_total - Pages deleted by Invalidate
//   - relay_cache_errors_total{operation} - Failed cache operations
package cache
