package pagination

import (
	"github.com/Sternrassler/relay-pager/pkg/connection"
	"github.com/rs/zerolog"
)

// Tracker holds the pagination state of one connection. It is not safe for
// concurrent use; its owner serialises access.
type Tracker struct {
	state  State
	logger zerolog.Logger
}

// NewTracker creates a tracker in the zero state.
func NewTracker(logger zerolog.Logger) *Tracker {
	return &Tracker{logger: logger}
}

// State returns the current state.
func (t *Tracker) State() State {
	return t.state
}

// Ingest folds the page info of a completed fetch from end into the state.
func (t *Tracker) Ingest(pageInfo connection.PageInfo, end connection.End) {
	t.state = t.state.Next(pageInfo, end)

	t.logger.Debug().
		Str("end", end.String()).
		Bool("has_next_page", pageInfo.HasNextPage).
		Bool("has_previous_page", pageInfo.HasPreviousPage).
		Bool("last_page_from_end", t.state.HasFetchedLastPage(end)).
		Msg("Pagination state updated")
}

// Reset replaces the state wholesale.
func (t *Tracker) Reset(state State) {
	t.state = state

	t.logger.Debug().
		Bool("last_page_from_head", state.HasFetchedLastPageFromHead).
		Bool("last_page_from_tail", state.HasFetchedLastPageFromTail).
		Msg("Pagination state reset")
}

// HasFetchedLastPage reports whether no more pages are available from end.
func (t *Tracker) HasFetchedLastPage(end connection.End) bool {
	return t.state.HasFetchedLastPage(end)
}

// HasFetchedInitialPage reports whether an initial load ever completed.
func (t *Tracker) HasFetchedInitialPage() bool {
	return t.state.HasFetchedInitialPage
}
