package cache

import (
	"testing"
	"time"
)

func TestCacheEntry_Expiry(t *testing.T) {
	tests := []struct {
		name        string
		offset      time.Duration
		wantExpired bool
		wantMinTTL  time.Duration
		wantMaxTTL  time.Duration
	}{
		{"page fresh for an hour", time.Hour, false, 59 * time.Minute, time.Hour},
		{"page fresh for five minutes", 5 * time.Minute, false, 4*time.Minute + 59*time.Second, 5 * time.Minute},
		{"page stale by a second", -time.Second, true, 0, 0},
		{"page stale by an hour", -time.Hour, true, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry := &CacheEntry{Expires: time.Now().Add(tt.offset)}

			if got := entry.IsExpired(); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
			if ttl := entry.TTL(); ttl < tt.wantMinTTL || ttl > tt.wantMaxTTL {
				t.Errorf("TTL() = %v, want between %v and %v", ttl, tt.wantMinTTL, tt.wantMaxTTL)
			}
		})
	}
}

func TestNewEntry(t *testing.T) {
	data := []byte(`{"edges":[]}`)
	entry := NewEntry(data, time.Minute)

	if string(entry.Data) != string(data) {
		t.Errorf("Data = %s", entry.Data)
	}
	if ttl := entry.TTL(); ttl <= 59*time.Second || ttl > time.Minute {
		t.Errorf("TTL() = %v, want about 1m", ttl)
	}
	if entry.IsExpired() {
		t.Error("fresh entry reported expired")
	}
	if age := entry.Age(); age < 0 || age > time.Second {
		t.Errorf("Age() = %v", age)
	}
}
