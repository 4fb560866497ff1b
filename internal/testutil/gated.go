package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Sternrassler/relay-pager/pkg/connection"
)

// Call is one fetch held by a GatedSource until the test resolves it.
type Call[N any] struct {
	Request connection.FetchRequest
	result  chan gatedResult[N]
}

type gatedResult[N any] struct {
	conn *connection.Connection[N]
	err  error
}

// Resolve completes the call with the given result.
func (c *Call[N]) Resolve(conn *connection.Connection[N], err error) {
	c.result <- gatedResult[N]{conn: conn, err: err}
}

// GatedSource blocks every fetch until the test resolves it, so tests control
// exactly when and how in-flight requests finish.
type GatedSource[N any] struct {
	calls chan *Call[N]

	mu    sync.Mutex
	count int
}

// NewGatedSource creates a gated source.
func NewGatedSource[N any]() *GatedSource[N] {
	return &GatedSource[N]{calls: make(chan *Call[N], 64)}
}

// Fetch implements connection.Fetcher.
func (s *GatedSource[N]) Fetch(ctx context.Context, req connection.FetchRequest) (*connection.Connection[N], error) {
	call := &Call[N]{Request: req, result: make(chan gatedResult[N], 1)}

	s.mu.Lock()
	s.count++
	s.mu.Unlock()

	s.calls <- call
	select {
	case r := <-call.result:
		return r.conn, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Next returns the next pending call, failing the test if none arrives
// within five seconds.
func (s *GatedSource[N]) Next(t testing.TB) *Call[N] {
	t.Helper()
	select {
	case call := <-s.calls:
		return call
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a fetch")
		return nil
	}
}

// Pending returns the number of calls not yet picked up by Next.
func (s *GatedSource[N]) Pending() int {
	return len(s.calls)
}

// Count returns the number of fetches received so far.
func (s *GatedSource[N]) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}
