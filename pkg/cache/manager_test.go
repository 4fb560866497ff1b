package cache

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/Sternrassler/relay-pager/internal/testutil"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
)

func pageKey(namespace, after string) CacheKey {
	return CacheKey{
		Namespace:   namespace,
		Endpoint:    "/v1/items",
		QueryParams: url.Values{"first": []string{"10"}, "after": []string{after}},
	}
}

func TestNewManager(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	manager := NewManager(client)
	if manager.redis != client {
		t.Error("Manager redis client not set correctly")
	}
}

func TestNewManager_Panic(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Error("NewManager should panic with nil redis client")
		}
	}()
	NewManager(nil)
}

func TestManager_SetAndGet(t *testing.T) {
	manager := NewManager(testutil.RedisClient(t))
	ctx := context.Background()
	key := pageKey("items", "cursor-1")

	entry := NewEntry([]byte(`{"edges":[{"node":1,"cursor":"cursor-1"}]}`), 5*time.Minute)
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := manager.Get(ctx, key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got.Data) != string(entry.Data) {
		t.Errorf("Data = %s, want %s", got.Data, entry.Data)
	}
	if !got.CachedAt.Equal(entry.CachedAt) {
		t.Errorf("CachedAt = %v, want %v", got.CachedAt, entry.CachedAt)
	}
}

func TestManager_Get_CacheMiss(t *testing.T) {
	manager := NewManager(testutil.RedisClient(t))

	_, err := manager.Get(context.Background(), pageKey("items", "missing"))
	if !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Get_InvalidEntry(t *testing.T) {
	client := testutil.RedisClient(t)
	manager := NewManager(client)
	ctx := context.Background()
	key := pageKey("items", "broken")

	if err := client.Set(ctx, key.String(), "not json", time.Minute).Err(); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrInvalidEntry) {
		t.Errorf("Get() error = %v, want ErrInvalidEntry", err)
	}
}

func TestManager_Set_ExpiredEntry(t *testing.T) {
	manager := NewManager(testutil.RedisClient(t))
	ctx := context.Background()
	key := pageKey("items", "old")

	entry := &CacheEntry{
		Data:    []byte(`{}`),
		Expires: time.Now().Add(-time.Hour),
	}
	if err := manager.Set(ctx, key, entry); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("expired entry must not be stored, Get() error = %v", err)
	}
}

func TestManager_Delete(t *testing.T) {
	manager := NewManager(testutil.RedisClient(t))
	ctx := context.Background()
	key := pageKey("items", "cursor-2")

	if err := manager.Set(ctx, key, NewEntry([]byte(`{}`), time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := manager.Delete(ctx, key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("Get() after Delete error = %v, want ErrCacheMiss", err)
	}
}

func TestManager_Set_NilEntry(t *testing.T) {
	manager := NewManager(testutil.RedisClient(t))
	if err := manager.Set(context.Background(), pageKey("items", "x"), nil); err == nil {
		t.Error("Set with nil entry should return error")
	}
}

func TestManager_Invalidate(t *testing.T) {
	manager := NewManager(testutil.RedisClient(t))
	ctx := context.Background()

	// More keys than one SCAN batch.
	const n = scanBatch + 25
	for i := 0; i < n; i++ {
		if err := manager.Set(ctx, pageKey("items", fmt.Sprintf("cursor-%d", i)), NewEntry([]byte(`{}`), time.Minute)); err != nil {
			t.Fatalf("Set %d failed: %v", i, err)
		}
	}
	other := pageKey("orders", "cursor-0")
	if err := manager.Set(ctx, other, NewEntry([]byte(`{}`), time.Minute)); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	deleted, err := manager.Invalidate(ctx, "items")
	if err != nil {
		t.Fatalf("Invalidate failed: %v", err)
	}
	if deleted != n {
		t.Errorf("deleted = %d, want %d", deleted, n)
	}
	if _, err := manager.Get(ctx, pageKey("items", "cursor-0")); !errors.Is(err, ErrCacheMiss) {
		t.Errorf("invalidated key still present: %v", err)
	}
	if _, err := manager.Get(ctx, other); err != nil {
		t.Errorf("other namespace affected: %v", err)
	}
}

func TestManager_Invalidate_RequiresNamespace(t *testing.T) {
	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
	defer client.Close()

	if _, err := NewManager(client).Invalidate(context.Background(), ""); err == nil {
		t.Error("Invalidate(\"\") should fail")
	}
}

func TestManager_LookupMetrics(t *testing.T) {
	manager := NewManager(testutil.RedisClient(t))
	ctx := context.Background()
	key := pageKey("metrics", fmt.Sprintf("cursor-%d", time.Now().UnixNano()))

	hits := promtest.ToFloat64(PageLookups.WithLabelValues(lookupHit))
	misses := promtest.ToFloat64(PageLookups.WithLabelValues(lookupMiss))
	written := promtest.ToFloat64(PageBytes.WithLabelValues("write"))
	read := promtest.ToFloat64(PageBytes.WithLabelValues("read"))

	if _, err := manager.Get(ctx, key); !errors.Is(err, ErrCacheMiss) {
		t.Fatalf("Get() error = %v, want ErrCacheMiss", err)
	}
	if err := manager.Set(ctx, key, NewEntry([]byte(`{"edges":[]}`), time.Minute)); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if _, err := manager.Get(ctx, key); err != nil {
		t.Fatalf("Get() error = %v", err)
	}

	if d := promtest.ToFloat64(PageLookups.WithLabelValues(lookupMiss)) - misses; d != 1 {
		t.Errorf("miss delta = %v, want 1", d)
	}
	if d := promtest.ToFloat64(PageLookups.WithLabelValues(lookupHit)) - hits; d != 1 {
		t.Errorf("hit delta = %v, want 1", d)
	}
	w := promtest.ToFloat64(PageBytes.WithLabelValues("write")) - written
	r := promtest.ToFloat64(PageBytes.WithLabelValues("read")) - read
	if w <= 0 || w != r {
		t.Errorf("bytes written/read = %v/%v, want equal and positive", w, r)
	}
}
