package fetcher

import (
	"context"
	"fmt"

	"github.com/Sternrassler/relay-pager/pkg/connection"
)

// Slot addresses one of the four fetchers of a connection.
type Slot struct {
	End     connection.End
	Initial bool
}

// String implements fmt.Stringer.
func (s Slot) String() string {
	return fmt.Sprintf("%s/%s", kindLabel(s.Initial), s.End)
}

// Slots lists every slot in a stable order.
var Slots = [4]Slot{
	{End: connection.Head, Initial: true},
	{End: connection.Tail, Initial: true},
	{End: connection.Head, Initial: false},
	{End: connection.Tail, Initial: false},
}

// Handler receives every state delivered by the fetcher occupying a slot.
type Handler[N, M any] func(slot Slot, f *PageFetcher[N, M], state State[M])

type occupant[N, M any] struct {
	fetcher     *PageFetcher[N, M]
	unsubscribe func()

	// delivered is the state the owner last accepted for this occupant. It
	// lags the fetcher's live state until the owner processed a transition.
	delivered State[M]
}

// Coordinator owns the fetcher slots of one connection and replaces their
// occupants atomically. It is not safe for concurrent use; its owner
// serialises access.
type Coordinator[N, M any] struct {
	factory *Factory[N, M]
	handler Handler[N, M]
	slots   map[Slot]*occupant[N, M]
}

// NewCoordinator fills every slot with a fresh fetcher whose transitions are
// reported to handler.
func NewCoordinator[N, M any](factory *Factory[N, M], handler Handler[N, M]) *Coordinator[N, M] {
	c := &Coordinator[N, M]{
		factory: factory,
		handler: handler,
		slots:   make(map[Slot]*occupant[N, M], len(Slots)),
	}
	for _, slot := range Slots {
		c.ResetFetcher(slot)
	}
	return c
}

// Fetcher returns the current occupant of slot.
func (c *Coordinator[N, M]) Fetcher(slot Slot) *PageFetcher[N, M] {
	return c.slots[slot].fetcher
}

// IsCurrent reports whether f still occupies slot.
func (c *Coordinator[N, M]) IsCurrent(slot Slot, f *PageFetcher[N, M]) bool {
	occ, ok := c.slots[slot]
	return ok && occ.fetcher == f
}

// ResetFetcher installs a fresh fetcher in slot, unsubscribing the previous
// occupant first so its eventual resolution is no longer reported.
func (c *Coordinator[N, M]) ResetFetcher(slot Slot) *PageFetcher[N, M] {
	if old, ok := c.slots[slot]; ok {
		old.unsubscribe()
	}

	f := c.factory.Fetcher(slot.End, slot.Initial)
	unsubscribe := f.Subscribe(func(state State[M]) {
		c.handler(slot, f, state)
	})
	c.slots[slot] = &occupant[N, M]{
		fetcher:     f,
		unsubscribe: unsubscribe,
		delivered:   State[M]{Status: StatusIdle},
	}
	return f
}

// Accept records st as the processed state of f. It reports false, and
// records nothing, when f no longer occupies slot.
func (c *Coordinator[N, M]) Accept(slot Slot, f *PageFetcher[N, M], st State[M]) bool {
	if !c.IsCurrent(slot, f) {
		return false
	}
	c.slots[slot].delivered = st
	return true
}

// Delivered returns the last accepted state of the occupant of slot.
func (c *Coordinator[N, M]) Delivered(slot Slot) State[M] {
	return c.slots[slot].delivered
}

// CanLoadPage reports whether the occupant of slot may start a fetch.
func (c *Coordinator[N, M]) CanLoadPage(slot Slot) bool {
	return c.Fetcher(slot).CanFetch()
}

// LoadPage starts a fetch on the occupant of slot. The fetching state counts
// as accepted immediately.
func (c *Coordinator[N, M]) LoadPage(ctx context.Context, slot Slot) error {
	occ := c.slots[slot]
	if err := occ.fetcher.FetchPage(ctx); err != nil {
		return fmt.Errorf("load %s page: %w", slot, err)
	}
	occ.delivered = State[M]{Status: StatusFetching}
	return nil
}

// States returns the last accepted state of every slot. A fetcher that
// resolved but whose transition the owner has not processed yet still shows
// as fetching.
func (c *Coordinator[N, M]) States() map[Slot]State[M] {
	out := make(map[Slot]State[M], len(c.slots))
	for slot, occ := range c.slots {
		out[slot] = occ.delivered
	}
	return out
}

// Close unsubscribes every occupant.
func (c *Coordinator[N, M]) Close() {
	for _, occ := range c.slots {
		occ.unsubscribe()
	}
}
