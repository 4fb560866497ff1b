package controller

import (
	"github.com/Sternrassler/relay-pager/pkg/connection"
	"github.com/Sternrassler/relay-pager/pkg/fetcher"
)

// EndStatus is the pagination status of one end.
type EndStatus string

const (
	// EndIdle means a next page may be loaded.
	EndIdle EndStatus = "idle"

	// EndFetching means a next page is loading.
	EndFetching EndStatus = "fetching"

	// EndError means the last next-page load failed; loading again retries.
	EndError EndStatus = "error"

	// EndReached means the source reported no more pages on this end.
	EndReached EndStatus = "end"
)

// EndState is the derived state of one end.
type EndState struct {
	Status EndStatus
	Err    error
}

// Equal compares errors by message.
func (s EndState) Equal(o EndState) bool {
	return s.Status == o.Status && connection.ErrorsEqual(s.Err, o.Err)
}

// LoadState is the status of an initial load.
type LoadState struct {
	Status fetcher.Status
	Err    error
}

// Equal compares errors by message.
func (s LoadState) Equal(o LoadState) bool {
	return s.Status == o.Status && connection.ErrorsEqual(s.Err, o.Err)
}

// State is an immutable snapshot of a controller. It is recomputed from the
// tracker, the storer and the fetcher slots after every change.
type State[M any] struct {
	// InitialLoad combines both initial loads.
	InitialLoad LoadState

	HeadInitialLoad LoadState
	TailInitialLoad LoadState

	Head EndState
	Tail EndState

	// Pages in ascending index order. Snapshots must not modify them.
	Pages []connection.Page[M]

	HasFetchedInitialPage bool

	// Version changes whenever Pages changes.
	Version uint64
}

// End returns the state of end.
func (s State[M]) End(end connection.End) EndState {
	if end == connection.Head {
		return s.Head
	}
	return s.Tail
}

// Edges returns every edge of every page in ascending page index order. See
// storer.Storer.Edges for how that relates to node order.
func (s State[M]) Edges() []connection.Edge[M] {
	var out []connection.Edge[M]
	for _, p := range s.Pages {
		out = append(out, p.Edges...)
	}
	return out
}

// Equal reports whether two snapshots are indistinguishable to observers.
// Pages are compared by version.
func (s State[M]) Equal(o State[M]) bool {
	return s.InitialLoad.Equal(o.InitialLoad) &&
		s.HeadInitialLoad.Equal(o.HeadInitialLoad) &&
		s.TailInitialLoad.Equal(o.TailInitialLoad) &&
		s.Head.Equal(o.Head) &&
		s.Tail.Equal(o.Tail) &&
		s.HasFetchedInitialPage == o.HasFetchedInitialPage &&
		s.Version == o.Version
}

// deriveEndState maps a next-page fetcher state and the last-page flag of its
// end to an EndState. A running or failed fetch wins over the flag.
func deriveEndState[M any](st fetcher.State[M], lastPage bool) EndState {
	switch {
	case st.Status == fetcher.StatusFetching:
		return EndState{Status: EndFetching}
	case st.Status == fetcher.StatusError:
		return EndState{Status: EndError, Err: st.Err}
	case lastPage:
		return EndState{Status: EndReached}
	default:
		return EndState{Status: EndIdle}
	}
}

func loadState[M any](st fetcher.State[M]) LoadState {
	return LoadState{Status: st.Status, Err: st.Err}
}

// combineInitial merges the two initial loads. A completed load resets the
// opposite slot, so at most one of them is past idle unless a later attempt
// is running or failed; that attempt wins.
func combineInitial(head, tail LoadState) LoadState {
	for _, status := range []fetcher.Status{fetcher.StatusFetching, fetcher.StatusError, fetcher.StatusComplete} {
		if head.Status == status {
			return head
		}
		if tail.Status == status {
			return tail
		}
	}
	return LoadState{Status: fetcher.StatusIdle}
}
