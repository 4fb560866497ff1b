package cache

import (
	"time"
)

// CacheEntry is one cached page.
type CacheEntry struct {
	// Data is the JSON encoded connection.
	Data []byte `json:"data"`

	// Expires is when the entry becomes stale.
	Expires time.Time `json:"expires"`

	// CachedAt is when the page was fetched from the origin.
	CachedAt time.Time `json:"cached_at"`
}

// NewEntry wraps data with a lifetime of ttl starting now.
func NewEntry(data []byte, ttl time.Duration) *CacheEntry {
	now := time.Now()
	return &CacheEntry{
		Data:     data,
		Expires:  now.Add(ttl),
		CachedAt: now,
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *CacheEntry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *CacheEntry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}

// Age returns how long ago the page was fetched.
func (e *CacheEntry) Age() time.Duration {
	return time.Since(e.CachedAt)
}
