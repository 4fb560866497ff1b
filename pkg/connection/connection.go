// Package connection defines the Relay-style connection model shared by every
// layer of the pager: ends, edges, page info, pages and the fetch primitive
// a caller plugs in to load them.
package connection

import (
	"context"
	"fmt"
)

// End identifies one of the two boundaries of a connection.
type End int

const (
	// Head is the chronologically older boundary. Fetches use first/after.
	Head End = iota

	// Tail is the newer boundary. Fetches use last/before.
	Tail
)

// Ends lists both ends in a stable order.
var Ends = [2]End{Head, Tail}

// Opposite returns the other end.
func (e End) Opposite() End {
	if e == Head {
		return Tail
	}
	return Head
}

// String implements fmt.Stringer.
func (e End) String() string {
	switch e {
	case Head:
		return "head"
	case Tail:
		return "tail"
	default:
		return fmt.Sprintf("end(%d)", int(e))
	}
}

// ParseEnd converts "head" or "tail" into an End.
func ParseEnd(s string) (End, error) {
	switch s {
	case "head":
		return Head, nil
	case "tail":
		return Tail, nil
	default:
		return Head, fmt.Errorf("unknown connection end %q", s)
	}
}

// Edge is one item of a connection plus its opaque position token.
type Edge[M any] struct {
	Node   M      `json:"node"`
	Cursor string `json:"cursor"`
}

// PageInfo carries the server's view of whether more pages exist.
type PageInfo struct {
	HasNextPage     bool `json:"hasNextPage"`
	HasPreviousPage bool `json:"hasPreviousPage"`
}

// Page is a batch of edges ingested together. Index is signed and relative to
// the first page ever loaded, which always has index 0.
type Page[M any] struct {
	Index int
	Edges []Edge[M]
}

// Connection is the raw result of a single fetch.
type Connection[N any] struct {
	Edges    []Edge[N] `json:"edges"`
	PageInfo PageInfo  `json:"pageInfo"`
}

// Fetcher is the fetch primitive supplied by the caller. It must return
// exactly one of a connection or an error.
type Fetcher[N any] interface {
	Fetch(ctx context.Context, req FetchRequest) (*Connection[N], error)
}

// FetchFunc adapts a plain function to the Fetcher interface.
type FetchFunc[N any] func(ctx context.Context, req FetchRequest) (*Connection[N], error)

// Fetch implements Fetcher.
func (f FetchFunc[N]) Fetch(ctx context.Context, req FetchRequest) (*Connection[N], error) {
	return f(ctx, req)
}

// ParseFunc maps a fetched node into the model stored by the pager.
// It must be pure and total over the nodes the fetcher returns.
type ParseFunc[N, M any] func(node N) M

// Identity returns a ParseFunc that stores nodes unchanged.
func Identity[N any]() ParseFunc[N, N] {
	return func(node N) N { return node }
}

// ParseEdges applies parse to every node, keeping cursors.
func ParseEdges[N, M any](edges []Edge[N], parse ParseFunc[N, M]) []Edge[M] {
	out := make([]Edge[M], len(edges))
	for i, e := range edges {
		out[i] = Edge[M]{Node: parse(e.Node), Cursor: e.Cursor}
	}
	return out
}
