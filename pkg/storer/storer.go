// Package storer accumulates fetched edges into signed, ordered pages.
package storer

import (
	"github.com/Sternrassler/relay-pager/pkg/connection"
)

// Storer keeps the pages of one connection in ascending index order and
// offers both a paged and a flat view of them. It is not safe for concurrent
// use; its owner serialises access.
type Storer[M any] struct {
	pages   []connection.Page[M]
	version uint64
}

// New returns an empty storer.
func New[M any]() *Storer[M] {
	return &Storer[M]{}
}

// Ingest appends edges as a new page on end. The first page of an empty
// storer gets index 0; head pages extend past the highest index and tail
// pages below the lowest. Empty edges are dropped.
func (s *Storer[M]) Ingest(edges []connection.Edge[M], end connection.End) {
	if len(edges) == 0 {
		return
	}

	page := connection.Page[M]{Edges: cloneEdges(edges)}
	switch {
	case len(s.pages) == 0:
		page.Index = 0
		s.pages = []connection.Page[M]{page}
	case end == connection.Head:
		page.Index = s.pages[len(s.pages)-1].Index + 1
		s.pages = append(s.pages, page)
	default:
		page.Index = s.pages[0].Index - 1
		s.pages = append([]connection.Page[M]{page}, s.pages...)
	}
	s.version++
}

// Reset discards all pages and seeds the storer with edges as page 0,
// regardless of the end they were loaded from.
func (s *Storer[M]) Reset(edges []connection.Edge[M]) {
	s.pages = nil
	if len(edges) > 0 {
		s.pages = []connection.Page[M]{{Index: 0, Edges: cloneEdges(edges)}}
	}
	s.version++
}

// Cursor returns the cursor to continue from on end: the first edge of the
// highest page for head, the last edge of the lowest page for tail. It is nil
// while the storer is empty.
func (s *Storer[M]) Cursor(end connection.End) *string {
	if len(s.pages) == 0 {
		return nil
	}

	var cursor string
	if end == connection.Head {
		edges := s.pages[len(s.pages)-1].Edges
		cursor = edges[0].Cursor
	} else {
		edges := s.pages[0].Edges
		cursor = edges[len(edges)-1].Cursor
	}
	return &cursor
}

// Pages returns a copy of the pages in ascending index order.
func (s *Storer[M]) Pages() []connection.Page[M] {
	out := make([]connection.Page[M], len(s.pages))
	for i, p := range s.pages {
		out[i] = connection.Page[M]{Index: p.Index, Edges: cloneEdges(p.Edges)}
	}
	return out
}

// Edges returns every stored edge, pages concatenated in ascending index order.
// Edges keep the order the source returned them in within each page, but the
// flat view follows page indexes, not node order: when head pages run towards
// lower positions in the collection, as they do for a source listing newest
// first, consecutive pages step backwards. Callers needing node order sort
// the result themselves.
func (s *Storer[M]) Edges() []connection.Edge[M] {
	out := make([]connection.Edge[M], 0, s.Len())
	for _, p := range s.pages {
		out = append(out, p.Edges...)
	}
	return out
}

// Len returns the number of stored edges.
func (s *Storer[M]) Len() int {
	n := 0
	for _, p := range s.pages {
		n += len(p.Edges)
	}
	return n
}

// Version increases every time the stored pages change.
func (s *Storer[M]) Version() uint64 {
	return s.version
}

func cloneEdges[M any](edges []connection.Edge[M]) []connection.Edge[M] {
	return append([]connection.Edge[M](nil), edges...)
}
