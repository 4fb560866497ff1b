package fetcher

import "github.com/Sternrassler/relay-pager/pkg/connection"

// Status is the lifecycle position of a PageFetcher.
type Status string

const (
	// StatusIdle means no fetch has been started.
	StatusIdle Status = "idle"

	// StatusFetching means a fetch is in flight.
	StatusFetching Status = "fetching"

	// StatusComplete means the last fetch produced a page.
	StatusComplete Status = "complete"

	// StatusError means the last fetch failed.
	StatusError Status = "error"
)

// State is a snapshot of a PageFetcher. Edges and PageInfo are set only when
// Status is StatusComplete, Err only when it is StatusError.
type State[M any] struct {
	Status   Status
	Edges    []connection.Edge[M]
	PageInfo connection.PageInfo
	Err      error
}

// IsFetching reports whether a fetch is in flight.
func (s State[M]) IsFetching() bool {
	return s.Status == StatusFetching
}
