package cache

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// KeyPrefix starts every cache key.
const KeyPrefix = "relay"

// CacheKey identifies one cached page.
type CacheKey struct {
	// Namespace separates connections sharing a Redis instance.
	Namespace string

	// Endpoint is the connection path (e.g. "/v1/items").
	Endpoint string

	// QueryParams are the Relay arguments of the request.
	QueryParams url.Values
}

// String generates a deterministic key.
// Format: relay:namespace:endpoint:param1=val1:param2=val2
//
// Example:
//
//	relay:items:v1/items:after=cursor-9:first=10
func (k CacheKey) String() string {
	parts := []string{KeyPrefix}

	if k.Namespace != "" {
		parts = append(parts, k.Namespace)
	}

	endpoint := strings.Trim(k.Endpoint, "/")
	if endpoint != "" {
		parts = append(parts, endpoint)
	}

	if len(k.QueryParams) > 0 {
		queryKeys := make([]string, 0, len(k.QueryParams))
		for key := range k.QueryParams {
			queryKeys = append(queryKeys, key)
		}
		sort.Strings(queryKeys)

		for _, key := range queryKeys {
			parts = append(parts, fmt.Sprintf("%s=%s", key, url.QueryEscape(k.QueryParams.Get(key))))
		}
	}

	return strings.Join(parts, ":")
}

// NamespacePattern matches every key of namespace, for SCAN.
func NamespacePattern(namespace string) string {
	return fmt.Sprintf("%s:%s:*", KeyPrefix, namespace)
}
