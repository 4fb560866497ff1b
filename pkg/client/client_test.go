package client

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/Sternrassler/relay-pager/internal/testutil"
	"github.com/Sternrassler/relay-pager/pkg/connection"
	"github.com/rs/zerolog"
)

const testUserAgent = "relay-pager-test/1.0 (test@example.com)"

func newTestClient(t *testing.T, server *testutil.ConnectionServer) *Client[int] {
	t.Helper()
	nop := zerolog.Nop()
	cfg := DefaultConfig(server.URL, "/v1/items", testUserAgent)
	cfg.Retry = fastRetry()
	cfg.Logger = &nop

	c, err := New[int](cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}

func intPtr(n int) *int       { return &n }
func strPtr(s string) *string { return &s }

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name        string
		config      Config
		expectError bool
	}{
		{"valid config", DefaultConfig("https://api.example.com", "/v1/items", testUserAgent), false},
		{"empty user agent", DefaultConfig("https://api.example.com", "/v1/items", ""), true},
		{"relative base url", DefaultConfig("/v1", "/items", testUserAgent), true},
		{"unparsable base url", DefaultConfig("http://[::1", "/items", testUserAgent), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[int](tt.config)
			if (err != nil) != tt.expectError {
				t.Errorf("New() error = %v, expectError %v", err, tt.expectError)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New[int](Config{BaseURL: "https://api.example.com/", Path: "v1/items", UserAgent: testUserAgent})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if c.Endpoint() != "https://api.example.com/v1/items" {
		t.Errorf("Endpoint() = %q", c.Endpoint())
	}
	if c.config.Timeout != 30*time.Second || c.config.Retry.MaxAttempts != 3 {
		t.Errorf("defaults not applied: %+v", c.config)
	}
	if c.budget != nil {
		t.Error("error budget should be disabled without redis")
	}
}

func TestFetch_Pages(t *testing.T) {
	server := testutil.NewConnectionServer(20, 10)
	defer server.Close()
	c := newTestClient(t, server)

	tests := []struct {
		name      string
		req       connection.FetchRequest
		wantNodes []int
		wantInfo  connection.PageInfo
	}{
		{
			name:      "head from position",
			req:       connection.FetchRequest{First: intPtr(3)},
			wantNodes: []int{7, 8, 9},
			wantInfo:  connection.PageInfo{HasNextPage: true},
		},
		{
			name:      "head after cursor",
			req:       connection.FetchRequest{First: intPtr(5), After: strPtr(testutil.CursorFor(2))},
			wantNodes: []int{0, 1},
			wantInfo:  connection.PageInfo{},
		},
		{
			name:      "tail before cursor",
			req:       connection.FetchRequest{Last: intPtr(4), Before: strPtr(testutil.CursorFor(14))},
			wantNodes: []int{15, 16, 17, 18},
			wantInfo:  connection.PageInfo{HasPreviousPage: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn, err := c.Fetch(context.Background(), tt.req)
			if err != nil {
				t.Fatalf("Fetch() error = %v", err)
			}
			if len(conn.Edges) != len(tt.wantNodes) {
				t.Fatalf("edges = %+v, want nodes %v", conn.Edges, tt.wantNodes)
			}
			for i, want := range tt.wantNodes {
				if conn.Edges[i].Node != want || conn.Edges[i].Cursor != testutil.CursorFor(want) {
					t.Errorf("edge %d = %+v, want node %d", i, conn.Edges[i], want)
				}
			}
			if conn.PageInfo != tt.wantInfo {
				t.Errorf("PageInfo = %+v, want %+v", conn.PageInfo, tt.wantInfo)
			}
		})
	}

	for _, ua := range server.UserAgents() {
		if ua != testUserAgent {
			t.Errorf("User-Agent = %q, want %q", ua, testUserAgent)
		}
	}
}

func TestFetch_InvalidArguments(t *testing.T) {
	server := testutil.NewConnectionServer(5, 0)
	defer server.Close()
	c := newTestClient(t, server)

	_, err := c.Fetch(context.Background(), connection.FetchRequest{First: intPtr(1), Last: intPtr(1)})
	if !errors.Is(err, connection.ErrInvalidFetchArguments) {
		t.Errorf("Fetch() error = %v, want ErrInvalidFetchArguments", err)
	}
	if server.Requests() != 0 {
		t.Errorf("invalid request reached the server %d times", server.Requests())
	}
}

func TestFetch_ErrorHandling(t *testing.T) {
	tests := []struct {
		name         string
		failures     []int
		wantErr      bool
		wantClass    ErrorClass
		wantRequests int
	}{
		{"retry on server error", []int{http.StatusInternalServerError, http.StatusBadGateway}, false, "", 3},
		{"retry on rate limit", []int{http.StatusTooManyRequests}, false, "", 2},
		{"no retry on client error", []int{http.StatusNotFound}, true, ErrorClassClient, 1},
		{"retries exhausted", []int{500, 500, 500}, true, ErrorClassServer, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := testutil.NewConnectionServer(10, 5)
			defer server.Close()
			server.FailNext(tt.failures...)
			c := newTestClient(t, server)

			conn, err := c.Fetch(context.Background(), connection.FetchRequest{Last: intPtr(2)})
			if (err != nil) != tt.wantErr {
				t.Fatalf("Fetch() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && len(conn.Edges) != 2 {
				t.Errorf("edges = %+v, want 2", conn.Edges)
			}
			if tt.wantErr {
				var srcErr *SourceError
				if !errors.As(err, &srcErr) || srcErr.ErrorClass != tt.wantClass {
					t.Errorf("error = %v, want class %s", err, tt.wantClass)
				}
			}
			if server.Requests() != tt.wantRequests {
				t.Errorf("requests = %d, want %d", server.Requests(), tt.wantRequests)
			}
		})
	}
}

func TestFetch_DecodeError(t *testing.T) {
	server := testutil.NewConnectionServer(1, 1)
	defer server.Close()
	nop := zerolog.Nop()
	cfg := DefaultConfig(server.URL, "/", testUserAgent)
	cfg.Logger = &nop
	c, err := New[string](cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	_, err = c.Fetch(context.Background(), connection.FetchRequest{First: intPtr(1), After: strPtr(testutil.CursorFor(0))})
	if err != nil {
		t.Fatalf("empty page should decode, got %v", err)
	}

	// Integer nodes do not decode into strings.
	_, err = c.Fetch(context.Background(), connection.FetchRequest{First: intPtr(1)})
	if classOf(err) != ErrorClassDecode {
		t.Errorf("error = %v, want decode error", err)
	}
	if server.Requests() != 2 {
		t.Errorf("decode errors must not be retried, got %d requests", server.Requests())
	}
}

func TestFetch_ContextCancelled(t *testing.T) {
	server := testutil.NewConnectionServer(10, 5)
	defer server.Close()
	c := newTestClient(t, server)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := c.Fetch(ctx, connection.FetchRequest{First: intPtr(1)})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Fetch() error = %v, want context.Canceled", err)
	}
}

func TestFetch_ErrorBudget(t *testing.T) {
	redisClient := testutil.RedisClient(t)
	server := testutil.NewConnectionServer(10, 5)
	defer server.Close()
	server.SetErrorBudget(3, 60)

	nop := zerolog.Nop()
	cfg := DefaultConfig(server.URL, "/v1/items", testUserAgent)
	cfg.Redis = redisClient
	cfg.Logger = &nop
	c, err := New[int](cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if _, err := c.Fetch(context.Background(), connection.FetchRequest{First: intPtr(1)}); err != nil {
		t.Fatalf("first Fetch() error = %v", err)
	}

	_, err = c.Fetch(context.Background(), connection.FetchRequest{First: intPtr(1)})
	if !errors.Is(err, ErrBudgetExhausted) || classOf(err) != ErrorClassRateLimit {
		t.Errorf("second Fetch() error = %v, want ErrBudgetExhausted", err)
	}
	if server.Requests() != 1 {
		t.Errorf("blocked request reached the server, requests = %d", server.Requests())
	}
}
