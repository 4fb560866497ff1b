package pagination

import (
	"testing"

	"github.com/Sternrassler/relay-pager/pkg/connection"
	"github.com/rs/zerolog"
)

func TestTracker_IngestAndReset(t *testing.T) {
	tracker := NewTracker(zerolog.Nop())

	if tracker.HasFetchedInitialPage() {
		t.Fatal("new tracker should not report an initial page")
	}

	tracker.Reset(InitialState(connection.PageInfo{HasPreviousPage: true}, connection.Tail))
	if !tracker.HasFetchedInitialPage() {
		t.Error("expected initial page after reset")
	}
	if tracker.HasFetchedLastPage(connection.Tail) || tracker.HasFetchedLastPage(connection.Head) {
		t.Errorf("unexpected last page flags: %+v", tracker.State())
	}

	tracker.Ingest(connection.PageInfo{HasPreviousPage: false}, connection.Tail)
	if !tracker.HasFetchedLastPage(connection.Tail) {
		t.Error("tail should be exhausted after hasPreviousPage=false")
	}
	if tracker.HasFetchedLastPage(connection.Head) {
		t.Error("head flag must not change on tail ingest")
	}

	tracker.Ingest(connection.PageInfo{HasNextPage: false}, connection.Head)
	if !tracker.HasFetchedLastPage(connection.Head) {
		t.Error("head should be exhausted after hasNextPage=false")
	}

	tracker.Reset(InitialState(connection.PageInfo{HasNextPage: true}, connection.Head))
	want := State{HasFetchedInitialPage: true}
	if tracker.State() != want {
		t.Errorf("State() after reset = %+v, want %+v", tracker.State(), want)
	}
}
