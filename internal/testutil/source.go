// Package testutil provides in-memory and HTTP connection sources for tests.
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sternrassler/relay-pager/pkg/connection"
)

// CursorFor returns the cursor ListSource assigns to item i.
func CursorFor(i int) string {
	return fmt.Sprintf("cursor-%d", i)
}

// ListSource serves a fixed slice of nodes as a connection.
//
// Head fetches (first/after) walk towards older items: they return the
// `first` items immediately before the after cursor, or before Position when
// no cursor is given, and report HasNextPage while older items remain. Tail
// fetches (last/before) walk towards newer items: they return the `last`
// items immediately after the before cursor, or from Position, and report
// HasPreviousPage while newer items remain.
type ListSource[N any] struct {
	Nodes    []N
	Position int

	mu       sync.Mutex
	requests []connection.FetchRequest
}

// NewListSource creates a source over nodes starting at position.
func NewListSource[N any](nodes []N, position int) *ListSource[N] {
	return &ListSource[N]{Nodes: nodes, Position: position}
}

// IntNodes returns the nodes 0..n-1.
func IntNodes(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Fetch implements connection.Fetcher.
func (s *ListSource[N]) Fetch(ctx context.Context, req connection.FetchRequest) (*connection.Connection[N], error) {
	s.mu.Lock()
	s.requests = append(s.requests, req)
	s.mu.Unlock()

	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if req.End() == connection.Head {
		end := s.Position
		if req.After != nil {
			idx, err := s.indexOf(*req.After)
			if err != nil {
				return nil, err
			}
			end = idx
		}
		start := max(0, end-*req.First)
		return &connection.Connection[N]{
			Edges:    s.edges(start, end),
			PageInfo: connection.PageInfo{HasNextPage: start > 0},
		}, nil
	}

	start := s.Position
	if req.Before != nil {
		idx, err := s.indexOf(*req.Before)
		if err != nil {
			return nil, err
		}
		start = idx + 1
	}
	end := min(len(s.Nodes), start+*req.Last)
	return &connection.Connection[N]{
		Edges:    s.edges(start, end),
		PageInfo: connection.PageInfo{HasPreviousPage: end < len(s.Nodes)},
	}, nil
}

// Requests returns every request received so far.
func (s *ListSource[N]) Requests() []connection.FetchRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]connection.FetchRequest(nil), s.requests...)
}

func (s *ListSource[N]) indexOf(cursor string) (int, error) {
	var idx int
	if _, err := fmt.Sscanf(cursor, "cursor-%d", &idx); err != nil || idx < 0 || idx >= len(s.Nodes) {
		return 0, fmt.Errorf("unknown cursor %q", cursor)
	}
	return idx, nil
}

func (s *ListSource[N]) edges(start, end int) []connection.Edge[N] {
	end = min(end, len(s.Nodes))
	if start > end {
		start = end
	}
	edges := make([]connection.Edge[N], 0, end-start)
	for i := start; i < end; i++ {
		edges = append(edges, connection.Edge[N]{Node: s.Nodes[i], Cursor: CursorFor(i)})
	}
	return edges
}
