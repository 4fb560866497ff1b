// Package fetcher wraps single invocations of a connection fetch primitive in
// an observable lifecycle and coordinates the fetchers of one connection.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Sternrassler/relay-pager/pkg/connection"
	"github.com/google/uuid"
	"github.com/looplab/fsm"
	"github.com/rs/zerolog"
)

// Errors returned by FetchPage.
var (
	// ErrFetchInProgress is returned when a fetch is already in flight.
	ErrFetchInProgress = errors.New("fetch already in progress")

	// ErrNotFetchable is returned when the fetcher's state does not allow
	// another fetch, e.g. a completed one-shot fetcher.
	ErrNotFetchable = errors.New("fetcher cannot fetch in its current state")
)

// Lifecycle events.
const (
	eventFetch   = "fetch"
	eventSucceed = "succeed"
	eventFail    = "fail"
)

// Runner executes fn asynchronously.
type Runner func(fn func())

// GoRunner runs fn on a new goroutine.
func GoRunner(fn func()) { go fn() }

// Config parameterises one PageFetcher.
type Config struct {
	// End selects first/after (head) or last/before (tail) arguments.
	End connection.End

	// Initial marks the fetcher as an initial-load fetcher. Initial fetchers
	// are reusable: they may fetch again after completing.
	Initial bool

	// PageSize is the number of edges requested.
	PageSize int

	// Cursor is the after/before argument, frozen at construction.
	Cursor *string

	// Runner executes the fetch (default: GoRunner).
	Runner Runner

	Logger zerolog.Logger
}

// PageFetcher performs one cursor-frozen request through a 4-state
// lifecycle: idle -> fetching -> complete | error. A failed fetcher may fetch
// again; a completed one only if it was built as Initial.
type PageFetcher[N, M any] struct {
	id     uuid.UUID
	config Config
	source connection.Fetcher[N]
	parse  connection.ParseFunc[N, M]
	logger zerolog.Logger

	mu      sync.Mutex
	machine *fsm.FSM
	state   State[M]
	pending []State[M]

	// notifyMu serialises deliveries so listeners observe transitions in order.
	notifyMu    sync.Mutex
	listenersMu sync.Mutex
	listeners   map[uint64]func(State[M])
	nextID      uint64
}

// New creates an idle fetcher.
func New[N, M any](cfg Config, source connection.Fetcher[N], parse connection.ParseFunc[N, M]) *PageFetcher[N, M] {
	if cfg.Runner == nil {
		cfg.Runner = GoRunner
	}

	id := uuid.New()
	f := &PageFetcher[N, M]{
		id:        id,
		config:    cfg,
		source:    source,
		parse:     parse,
		state:     State[M]{Status: StatusIdle},
		listeners: make(map[uint64]func(State[M])),
		logger: cfg.Logger.With().
			Str("fetcher_id", id.String()).
			Str("end", cfg.End.String()).
			Str("kind", kindLabel(cfg.Initial)).
			Logger(),
	}

	fetchSrc := []string{string(StatusIdle), string(StatusError)}
	if cfg.Initial {
		fetchSrc = append(fetchSrc, string(StatusComplete))
	}

	f.machine = fsm.NewFSM(
		string(StatusIdle),
		fsm.Events{
			{Name: eventFetch, Src: fetchSrc, Dst: string(StatusFetching)},
			{Name: eventSucceed, Src: []string{string(StatusFetching)}, Dst: string(StatusComplete)},
			{Name: eventFail, Src: []string{string(StatusFetching)}, Dst: string(StatusError)},
		},
		fsm.Callbacks{
			"enter_state": func(_ context.Context, e *fsm.Event) {
				f.logger.Debug().
					Str("from", e.Src).
					Str("to", e.Dst).
					Msg("Fetcher state transition")
			},
		},
	)

	return f
}

// ID identifies this fetcher instance.
func (f *PageFetcher[N, M]) ID() uuid.UUID { return f.id }

// End returns the end this fetcher loads from.
func (f *PageFetcher[N, M]) End() connection.End { return f.config.End }

// Initial reports whether this is an initial-load fetcher.
func (f *PageFetcher[N, M]) Initial() bool { return f.config.Initial }

// Request returns the arguments this fetcher passes to the fetch primitive.
func (f *PageFetcher[N, M]) Request() connection.FetchRequest {
	return connection.NewRequest(f.config.End, f.config.PageSize, f.config.Cursor)
}

// State returns the current state.
func (f *PageFetcher[N, M]) State() State[M] {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// CanFetch reports whether FetchPage would start a fetch.
func (f *PageFetcher[N, M]) CanFetch() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.machine.Can(eventFetch)
}

// Subscribe registers fn for every subsequent state transition. Deliveries
// happen on the fetch goroutine, in transition order. The returned function
// removes the subscription. A delivery that already started may still reach
// fn after that, so owners replacing fetchers must also check currency.
func (f *PageFetcher[N, M]) Subscribe(fn func(State[M])) func() {
	f.listenersMu.Lock()
	id := f.nextID
	f.nextID++
	f.listeners[id] = fn
	f.listenersMu.Unlock()

	return func() {
		f.listenersMu.Lock()
		delete(f.listeners, id)
		f.listenersMu.Unlock()
	}
}

// FetchPage enters the fetching state and runs the fetch primitive through
// the configured Runner. It returns an error, without side effects, when the
// fetcher is already fetching or cannot fetch again.
func (f *PageFetcher[N, M]) FetchPage(ctx context.Context) error {
	f.mu.Lock()
	if err := f.machine.Event(context.Background(), eventFetch); err != nil {
		current := f.state.Status
		f.mu.Unlock()
		if current == StatusFetching {
			return ErrFetchInProgress
		}
		return fmt.Errorf("%w: %s", ErrNotFetchable, current)
	}
	f.state = State[M]{Status: StatusFetching}
	f.pending = append(f.pending, f.state)
	f.mu.Unlock()

	FetchesInFlight.WithLabelValues(kindLabel(f.config.Initial)).Inc()
	f.config.Runner(func() {
		f.flush()
		f.resolve(ctx)
	})
	return nil
}

// resolve calls the fetch primitive and records its outcome.
func (f *PageFetcher[N, M]) resolve(ctx context.Context) {
	req := f.Request()
	kind := kindLabel(f.config.Initial)
	end := f.config.End.String()

	defer FetchesInFlight.WithLabelValues(kind).Dec()

	if err := req.Validate(); err != nil {
		f.fail(err)
		return
	}

	f.logger.Debug().
		Str("request", req.String()).
		Msg("Fetching page")

	start := time.Now()
	conn, err := f.source.Fetch(ctx, req)
	FetchDuration.WithLabelValues(end, kind).Observe(time.Since(start).Seconds())

	switch {
	case err != nil:
		f.fail(err)
	case conn == nil:
		f.fail(connection.ErrFetchFiredCompleted)
	default:
		edges := connection.ParseEdges(conn.Edges, f.parse)
		f.logger.Debug().
			Int("edges", len(edges)).
			Bool("has_next_page", conn.PageInfo.HasNextPage).
			Bool("has_previous_page", conn.PageInfo.HasPreviousPage).
			Dur("duration", time.Since(start)).
			Msg("Page fetched")
		FetchesTotal.WithLabelValues(end, kind, string(StatusComplete)).Inc()
		f.transition(eventSucceed, State[M]{Status: StatusComplete, Edges: edges, PageInfo: conn.PageInfo})
	}
}

func (f *PageFetcher[N, M]) fail(cause error) {
	err := &connection.FetchError{End: f.config.End, Initial: f.config.Initial, Err: cause}

	f.logger.Warn().
		Err(cause).
		Msg("Page fetch failed")

	FetchesTotal.WithLabelValues(f.config.End.String(), kindLabel(f.config.Initial), string(StatusError)).Inc()
	f.transition(eventFail, State[M]{Status: StatusError, Err: err})
}

// transition fires event, stores next and delivers it.
func (f *PageFetcher[N, M]) transition(event string, next State[M]) {
	f.mu.Lock()
	if err := f.machine.Event(context.Background(), event); err != nil {
		f.mu.Unlock()
		f.logger.Error().Err(err).Str("event", event).Msg("Invalid fetcher transition")
		return
	}
	f.state = next
	f.pending = append(f.pending, next)
	f.mu.Unlock()

	f.flush()
}

// flush delivers queued states in transition order. Whoever holds notifyMu
// drains the whole queue, so a later transition never overtakes an earlier
// one. mu is never held while waiting for notifyMu.
func (f *PageFetcher[N, M]) flush() {
	f.notifyMu.Lock()
	defer f.notifyMu.Unlock()

	for {
		f.mu.Lock()
		if len(f.pending) == 0 {
			f.mu.Unlock()
			return
		}
		st := f.pending[0]
		f.pending = f.pending[1:]
		f.mu.Unlock()

		f.deliver(st)
	}
}

func (f *PageFetcher[N, M]) deliver(st State[M]) {
	f.listenersMu.Lock()
	ids := make([]uint64, 0, len(f.listeners))
	for id := range f.listeners {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	fns := make([]func(State[M]), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, f.listeners[id])
	}
	f.listenersMu.Unlock()

	for _, fn := range fns {
		fn(st)
	}
}
