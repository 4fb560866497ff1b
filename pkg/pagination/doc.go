// Package pagination tracks how far a connection has been paginated from
// each end.
//
// A connection is loaded from two independent ends. After each fetch the
// server's page info says whether more pages exist in the direction of the
// fetch; the Tracker records that per end:
//
//	tracker := pagination.NewTracker(logger)
//	tracker.Reset(pagination.InitialState(pageInfo, connection.Tail))
//	tracker.Ingest(nextPageInfo, connection.Tail)
//	if tracker.HasFetchedLastPage(connection.Tail) { ... }
//
// Head ingests consume HasNextPage, tail ingests consume HasPreviousPage. An
// ingest from one end never changes the other end's flag.
package pagination
