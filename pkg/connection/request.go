package connection

import (
	"fmt"
	"net/url"
	"strconv"
)

// FetchRequest holds the Relay pagination arguments of one fetch.
// Exactly one of the (First, After) or (Last, Before) pairs is populated.
type FetchRequest struct {
	First  *int
	After  *string
	Last   *int
	Before *string
}

// NewRequest builds the request used to load size edges from end, continuing
// from cursor when it is non-nil.
func NewRequest(end End, size int, cursor *string) FetchRequest {
	n := size
	if end == Head {
		return FetchRequest{First: &n, After: cursor}
	}
	return FetchRequest{Last: &n, Before: cursor}
}

// End reports which end the request paginates from. Only meaningful for a
// request that passed Validate.
func (r FetchRequest) End() End {
	if r.Last != nil {
		return Tail
	}
	return Head
}

// Validate checks that exactly one argument pair is populated.
func (r FetchRequest) Validate() error {
	head := r.First != nil || r.After != nil
	tail := r.Last != nil || r.Before != nil

	switch {
	case head && tail:
		return fmt.Errorf("%w: both first/after and last/before set", ErrInvalidFetchArguments)
	case !head && !tail:
		return fmt.Errorf("%w: neither first/after nor last/before set", ErrInvalidFetchArguments)
	case head && r.First == nil:
		return fmt.Errorf("%w: after requires first", ErrInvalidFetchArguments)
	case tail && r.Last == nil:
		return fmt.Errorf("%w: before requires last", ErrInvalidFetchArguments)
	case head && *r.First <= 0:
		return fmt.Errorf("%w: first must be positive (got %d)", ErrInvalidFetchArguments, *r.First)
	case tail && *r.Last <= 0:
		return fmt.Errorf("%w: last must be positive (got %d)", ErrInvalidFetchArguments, *r.Last)
	}
	return nil
}

// Values encodes the populated arguments as URL query parameters.
func (r FetchRequest) Values() url.Values {
	v := url.Values{}
	if r.First != nil {
		v.Set("first", strconv.Itoa(*r.First))
	}
	if r.After != nil {
		v.Set("after", *r.After)
	}
	if r.Last != nil {
		v.Set("last", strconv.Itoa(*r.Last))
	}
	if r.Before != nil {
		v.Set("before", *r.Before)
	}
	return v
}

// String renders the request for logs.
func (r FetchRequest) String() string {
	if s := r.Values().Encode(); s != "" {
		return s
	}
	return "<empty>"
}
