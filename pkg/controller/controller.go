// Package controller orchestrates bidirectional cursor pagination of one
// connection: it owns the pagination tracker, the page storer and the fetcher
// slots, guards the public load operations and publishes a derived snapshot
// after every change.
package controller

import (
	"context"
	"errors"
	"sync"

	"github.com/Sternrassler/relay-pager/pkg/connection"
	"github.com/Sternrassler/relay-pager/pkg/fetcher"
	"github.com/Sternrassler/relay-pager/pkg/logging"
	"github.com/Sternrassler/relay-pager/pkg/pagination"
	"github.com/Sternrassler/relay-pager/pkg/storer"
	"github.com/rs/zerolog"
)

// Operation names used in StateError and metrics.
const (
	opLoadInitialPage = "LoadInitialPage"
	opLoadNextPage    = "LoadNextPage"
)

// Controller paginates one connection from both ends.
//
// All mutation happens under one mutex: load calls take it directly, fetch
// completions take it from the fetch goroutine. Completions of fetchers that
// have since been replaced are discarded.
type Controller[N, M any] struct {
	config Config
	logger zerolog.Logger

	mu          sync.Mutex
	closed      bool
	tracker     *pagination.Tracker
	storer      *storer.Storer[M]
	coordinator *fetcher.Coordinator[N, M]
	state       State[M]
	subscribers map[uint64]chan State[M]
	nextSubID   uint64

	// inflight counts fetch goroutines for Wait.
	inflight sync.WaitGroup
}

// New creates a controller loading pages through source and mapping every
// node with parse.
func New[N, M any](cfg Config, source connection.Fetcher[N], parse connection.ParseFunc[N, M]) (*Controller[N, M], error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if source == nil {
		return nil, errors.New("source is required")
	}
	if parse == nil {
		return nil, errors.New("parse function is required")
	}

	logger := logging.NewLogger("connection-controller")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	c := &Controller[N, M]{
		config:      cfg,
		logger:      logger,
		tracker:     pagination.NewTracker(logger),
		storer:      storer.New[M](),
		subscribers: make(map[uint64]chan State[M]),
	}

	factory := fetcher.NewFactory(fetcher.FactoryConfig{
		InitialPageSize:    cfg.InitialPageSize,
		PaginationPageSize: cfg.PaginationPageSize,
		Runner:             c.run,
		Logger:             logger,
	}, source, parse, c.storer)
	c.coordinator = fetcher.NewCoordinator(factory, c.onFetcherState)
	c.state = c.snapshot()

	return c, nil
}

// run executes fn on a goroutine tracked by Wait.
func (c *Controller[N, M]) run(fn func()) {
	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		fn()
	}()
}

// LoadInitialPage loads the first page from end. On completion every stored
// page is replaced by the new page (index 0), the pagination state is reset
// and both next-page fetchers are replaced, invalidating any in-flight
// next-page load.
//
// It returns a *StateError when an initial load from either end is running.
// ctx governs the fetch primitive call.
func (c *Controller[N, M]) LoadInitialPage(ctx context.Context, end connection.End) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if reason, ok := c.initialRejection(); !ok {
		return c.reject(opLoadInitialPage, end, reason)
	}

	slot := fetcher.Slot{End: end, Initial: true}
	if err := c.coordinator.LoadPage(ctx, slot); err != nil {
		return err
	}

	c.logger.Debug().
		Str("end", end.String()).
		Int("page_size", c.config.InitialPageSize).
		Msg("Initial page load started")

	c.publish()
	return nil
}

// LoadNextPage loads the next page from end, continuing from the cursor of
// the outermost stored edge on that end.
//
// It returns a *StateError when no initial page has been loaded, a next-page
// load from end is already running, or end has no more pages.
func (c *Controller[N, M]) LoadNextPage(ctx context.Context, end connection.End) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if reason, ok := c.nextRejection(end); !ok {
		return c.reject(opLoadNextPage, end, reason)
	}

	slot := fetcher.Slot{End: end, Initial: false}
	f := c.coordinator.Fetcher(slot)
	if err := c.coordinator.LoadPage(ctx, slot); err != nil {
		return err
	}

	c.logger.Debug().
		Str("end", end.String()).
		Int("page_size", c.config.PaginationPageSize).
		Str("request", f.Request().String()).
		Msg("Next page load started")

	c.publish()
	return nil
}

// CanLoadInitialPage reports whether LoadInitialPage would start a fetch.
func (c *Controller[N, M]) CanLoadInitialPage() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.initialRejection()
	return ok
}

// CanLoadNextPage reports whether LoadNextPage(end) would start a fetch.
func (c *Controller[N, M]) CanLoadNextPage(end connection.End) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.nextRejection(end)
	return ok
}

func (c *Controller[N, M]) initialRejection() (Reason, bool) {
	if c.closed {
		return ReasonClosed, false
	}
	for _, end := range connection.Ends {
		if c.coordinator.Delivered(fetcher.Slot{End: end, Initial: true}).IsFetching() {
			return ReasonInitialInProgress, false
		}
	}
	return "", true
}

func (c *Controller[N, M]) nextRejection(end connection.End) (Reason, bool) {
	slot := fetcher.Slot{End: end, Initial: false}
	switch {
	case c.closed:
		return ReasonClosed, false
	case !c.tracker.HasFetchedInitialPage():
		return ReasonInitialNotLoaded, false
	case c.coordinator.Delivered(slot).IsFetching():
		return ReasonNextInProgress, false
	case c.tracker.HasFetchedLastPage(end):
		return ReasonLastPageFetched, false
	}
	return "", true
}

func (c *Controller[N, M]) reject(op string, end connection.End, reason Reason) error {
	relayContractViolationsTotal.WithLabelValues(op, string(reason)).Inc()
	c.logger.Warn().
		Str("op", op).
		Str("end", end.String()).
		Str("reason", string(reason)).
		Msg("Load rejected")
	return &StateError{Op: op, End: end, Reason: reason}
}

// onFetcherState runs on the fetch goroutine for every transition of a slot
// occupant. Guards and snapshots only see a transition once it is accepted
// here, together with the storer and tracker changes it causes.
func (c *Controller[N, M]) onFetcherState(slot fetcher.Slot, f *fetcher.PageFetcher[N, M], st fetcher.State[M]) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	if !c.coordinator.Accept(slot, f, st) {
		relayStaleResultsTotal.WithLabelValues(slot.End.String(), kindLabel(slot.Initial)).Inc()
		c.logger.Debug().
			Str("fetcher_id", f.ID().String()).
			Str("slot", slot.String()).
			Str("status", string(st.Status)).
			Msg("Discarding result of replaced fetcher")
		return
	}

	if st.Status == fetcher.StatusComplete {
		if slot.Initial {
			c.completeInitial(slot.End, st)
		} else {
			c.completeNext(slot.End, st)
		}
	}
	c.publish()
}

func (c *Controller[N, M]) completeInitial(end connection.End, st fetcher.State[M]) {
	c.storer.Reset(st.Edges)
	c.tracker.Reset(pagination.InitialState(st.PageInfo, end))

	c.coordinator.ResetFetcher(fetcher.Slot{End: end.Opposite(), Initial: true})
	for _, e := range connection.Ends {
		c.coordinator.ResetFetcher(fetcher.Slot{End: e, Initial: false})
	}

	relayPagesIngestedTotal.WithLabelValues(end.String(), kindLabel(true)).Inc()
	c.logger.Info().
		Str("end", end.String()).
		Int("edges", len(st.Edges)).
		Bool("last_page", c.tracker.HasFetchedLastPage(end)).
		Msg("Initial page loaded")
}

func (c *Controller[N, M]) completeNext(end connection.End, st fetcher.State[M]) {
	c.storer.Ingest(st.Edges, end)
	c.tracker.Ingest(st.PageInfo, end)
	c.coordinator.ResetFetcher(fetcher.Slot{End: end, Initial: false})

	relayPagesIngestedTotal.WithLabelValues(end.String(), kindLabel(false)).Inc()
	c.logger.Info().
		Str("end", end.String()).
		Int("edges", len(st.Edges)).
		Int("total_edges", c.storer.Len()).
		Bool("last_page", c.tracker.HasFetchedLastPage(end)).
		Msg("Next page loaded")
}

// snapshot derives the current State from accepted fetcher states. It reuses
// the previous page slice when the storer has not changed.
func (c *Controller[N, M]) snapshot() State[M] {
	states := c.coordinator.States()
	pstate := c.tracker.State()

	s := State[M]{
		HeadInitialLoad:       loadState(states[fetcher.Slot{End: connection.Head, Initial: true}]),
		TailInitialLoad:       loadState(states[fetcher.Slot{End: connection.Tail, Initial: true}]),
		Head:                  deriveEndState(states[fetcher.Slot{End: connection.Head}], pstate.HasFetchedLastPageFromHead),
		Tail:                  deriveEndState(states[fetcher.Slot{End: connection.Tail}], pstate.HasFetchedLastPageFromTail),
		HasFetchedInitialPage: pstate.HasFetchedInitialPage,
		Version:               c.storer.Version(),
	}
	s.InitialLoad = combineInitial(s.HeadInitialLoad, s.TailInitialLoad)

	if c.state.Pages != nil && c.state.Version == s.Version {
		s.Pages = c.state.Pages
	} else {
		s.Pages = c.storer.Pages()
	}
	return s
}

// publish recomputes the snapshot and delivers it when it changed.
func (c *Controller[N, M]) publish() {
	next := c.snapshot()
	if next.Equal(c.state) {
		return
	}
	c.state = next
	for _, ch := range c.subscribers {
		offer(ch, next)
	}
}

// offer replaces any undelivered snapshot in ch with s. Only publish sends,
// always under the controller mutex, so the second send cannot block.
func offer[M any](ch chan State[M], s State[M]) {
	select {
	case ch <- s:
		return
	default:
	}
	select {
	case <-ch:
	default:
	}
	select {
	case ch <- s:
	default:
	}
}

// State returns the current snapshot.
func (c *Controller[N, M]) State() State[M] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Subscribe returns a channel that immediately holds the current snapshot
// and then receives every change. Delivery conflates: a slow reader skips
// intermediate snapshots but always ends with the newest one. cancel closes
// the channel; Close closes every channel.
func (c *Controller[N, M]) Subscribe() (<-chan State[M], func()) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ch := make(chan State[M], 1)
	ch <- c.state
	if c.closed {
		close(ch)
		return ch, func() {}
	}

	id := c.nextSubID
	c.nextSubID++
	c.subscribers[id] = ch

	return ch, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		if ch, ok := c.subscribers[id]; ok {
			delete(c.subscribers, id)
			close(ch)
		}
	}
}

// Wait blocks until every started fetch has resolved and been processed.
// It must not be called concurrently with load calls.
func (c *Controller[N, M]) Wait() {
	c.inflight.Wait()
}

// Close stops processing fetch results and closes all subscriptions.
// Fetches already running are not cancelled; cancel their context for that.
func (c *Controller[N, M]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.coordinator.Close()
	for id, ch := range c.subscribers {
		delete(c.subscribers, id)
		close(ch)
	}
	c.logger.Debug().Msg("Controller closed")
}

func kindLabel(initial bool) string {
	if initial {
		return "initial"
	}
	return "next"
}
