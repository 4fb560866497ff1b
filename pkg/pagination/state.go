package pagination

import "github.com/Sternrassler/relay-pager/pkg/connection"

// State records, per end, whether the last available page has been fetched.
type State struct {
	// HasFetchedLastPageFromHead is set once a head fetch reported no next page.
	HasFetchedLastPageFromHead bool `json:"has_fetched_last_page_from_head"`

	// HasFetchedLastPageFromTail is set once a tail fetch reported no previous page.
	HasFetchedLastPageFromTail bool `json:"has_fetched_last_page_from_tail"`

	// HasFetchedInitialPage is set once any initial load completed.
	HasFetchedInitialPage bool `json:"has_fetched_initial_page"`
}

// InitialState is the state after an initial page loaded from end.
// Only that end's flag is derived from pageInfo.
func InitialState(pageInfo connection.PageInfo, end connection.End) State {
	return State{HasFetchedInitialPage: true}.Next(pageInfo, end)
}

// Next returns the state after ingesting pageInfo from end. The opposite
// end's flag is never touched: a head fetch says nothing about the tail.
func (s State) Next(pageInfo connection.PageInfo, end connection.End) State {
	switch end {
	case connection.Head:
		s.HasFetchedLastPageFromHead = !pageInfo.HasNextPage
	case connection.Tail:
		s.HasFetchedLastPageFromTail = !pageInfo.HasPreviousPage
	}
	return s
}

// HasFetchedLastPage reports the flag for end.
func (s State) HasFetchedLastPage(end connection.End) bool {
	if end == connection.Head {
		return s.HasFetchedLastPageFromHead
	}
	return s.HasFetchedLastPageFromTail
}
