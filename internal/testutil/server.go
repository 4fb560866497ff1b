package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Sternrassler/relay-pager/pkg/connection"
)

// ConnectionServer serves a ListSource over HTTP the way a Relay-style REST
// endpoint would, with switches for injecting failures.
type ConnectionServer struct {
	*httptest.Server

	Source *ListSource[int]

	mu          sync.Mutex
	failures    []int
	errorsLimit int
	resetIn     int
	userAgents  []string

	requests atomic.Int64
}

// NewConnectionServer starts a server over the nodes 0..n-1 positioned at
// position. Close it when done.
func NewConnectionServer(n, position int) *ConnectionServer {
	s := &ConnectionServer{
		Source:      NewListSource(IntNodes(n), position),
		errorsLimit: -1,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// FailNext makes the next len(statuses) requests answer with those status codes.
func (s *ConnectionServer) FailNext(statuses ...int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, statuses...)
}

// SetErrorBudget adds X-Error-Limit-* headers to every response.
func (s *ConnectionServer) SetErrorBudget(remain, resetSeconds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.errorsLimit = remain
	s.resetIn = resetSeconds
}

// Requests returns the number of requests served.
func (s *ConnectionServer) Requests() int {
	return int(s.requests.Load())
}

// UserAgents returns the User-Agent of every request.
func (s *ConnectionServer) UserAgents() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.userAgents...)
}

func (s *ConnectionServer) handle(w http.ResponseWriter, r *http.Request) {
	s.requests.Add(1)

	s.mu.Lock()
	s.userAgents = append(s.userAgents, r.Header.Get("User-Agent"))
	if s.errorsLimit >= 0 {
		w.Header().Set("X-Error-Limit-Remain", strconv.Itoa(s.errorsLimit))
		w.Header().Set("X-Error-Limit-Reset", strconv.Itoa(s.resetIn))
	}
	status := 0
	if len(s.failures) > 0 {
		status = s.failures[0]
		s.failures = s.failures[1:]
	}
	s.mu.Unlock()

	if status != 0 {
		http.Error(w, http.StatusText(status), status)
		return
	}

	req, err := parseRequest(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conn, err := s.Source.Fetch(r.Context(), req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(conn)
}

func parseRequest(r *http.Request) (connection.FetchRequest, error) {
	q := r.URL.Query()
	var req connection.FetchRequest

	count := func(key string) (*int, error) {
		if !q.Has(key) {
			return nil, nil
		}
		n, err := strconv.Atoi(q.Get(key))
		if err != nil {
			return nil, err
		}
		return &n, nil
	}
	cursor := func(key string) *string {
		if !q.Has(key) {
			return nil
		}
		v := q.Get(key)
		return &v
	}

	var err error
	if req.First, err = count("first"); err != nil {
		return req, err
	}
	if req.Last, err = count("last"); err != nil {
		return req, err
	}
	req.After = cursor("after")
	req.Before = cursor("before")
	return req, req.Validate()
}
