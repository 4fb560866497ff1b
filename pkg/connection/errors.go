package connection

import (
	"errors"
	"fmt"
)

// Common errors surfaced by fetches.
var (
	// ErrFetchFiredCompleted is reported when a fetcher returns neither a
	// connection nor an error.
	ErrFetchFiredCompleted = errors.New("fetch completed without producing a connection")

	// ErrInvalidFetchArguments is returned for requests that set both or
	// neither of the first/after and last/before pairs.
	ErrInvalidFetchArguments = errors.New("invalid fetch arguments")
)

// FetchError wraps a failure of a single fetch attempt.
type FetchError struct {
	End     End
	Initial bool
	Err     error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	kind := "next"
	if e.Initial {
		kind = "initial"
	}
	return fmt.Sprintf("%s page fetch from %s failed: %v", kind, e.End, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *FetchError) Unwrap() error {
	return e.Err
}

// ErrorsEqual compares two errors by message. Error values carry no
// structural equality, so snapshots holding them compare this way.
func ErrorsEqual(a, b error) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Error() == b.Error()
}
