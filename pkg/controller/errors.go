package controller

import (
	"errors"
	"fmt"

	"github.com/Sternrassler/relay-pager/pkg/connection"
)

// Errors returned by load calls.
var (
	// ErrInvalidState is wrapped by every rejected load call. A rejected call
	// never starts a fetch and never changes state.
	ErrInvalidState = errors.New("invalid controller state")

	// ErrClosed is additionally wrapped when the controller was closed.
	ErrClosed = errors.New("controller closed")
)

// Reason classifies why a load call was rejected.
type Reason string

const (
	// ReasonInitialInProgress: an initial load is already running from either end.
	ReasonInitialInProgress Reason = "initial_in_progress"

	// ReasonInitialNotLoaded: no initial load has completed yet.
	ReasonInitialNotLoaded Reason = "initial_not_loaded"

	// ReasonNextInProgress: a next-page load is already running on that end.
	ReasonNextInProgress Reason = "next_in_progress"

	// ReasonLastPageFetched: the end has no more pages.
	ReasonLastPageFetched Reason = "last_page_fetched"

	// ReasonClosed: the controller was closed.
	ReasonClosed Reason = "closed"
)

// StateError describes a load call made in a state that does not allow it.
type StateError struct {
	Op     string
	End    connection.End
	Reason Reason
}

// Error implements the error interface.
func (e *StateError) Error() string {
	return fmt.Sprintf("%s(%s) rejected: %s", e.Op, e.End, e.Reason)
}

// Unwrap makes every StateError match ErrInvalidState, and ErrClosed when
// the controller was closed.
func (e *StateError) Unwrap() []error {
	if e.Reason == ReasonClosed {
		return []error{ErrInvalidState, ErrClosed}
	}
	return []error{ErrInvalidState}
}
