// Package client implements connection.Fetcher over HTTP with retries, error
// classification and an optional shared error budget.
//
// A page request is a GET of BaseURL+Path carrying the populated Relay
// arguments (first, after, last, before) as query parameters. The response
// body must be a JSON connection:
//
//	{"edges":[{"node":...,"cursor":"..."}],"pageInfo":{"hasNextPage":true,"hasPreviousPage":false}}
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Sternrassler/relay-pager/pkg/connection"
	"github.com/Sternrassler/relay-pager/pkg/logging"
	"github.com/Sternrassler/relay-pager/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// maxErrorBody bounds how much of an error response is kept for messages.
const maxErrorBody = 512

// Config holds the client configuration.
type Config struct {
	// BaseURL is the scheme and host of the source, e.g. "https://api.example.com".
	BaseURL string

	// Path is the connection endpoint, e.g. "/v1/items".
	Path string

	// UserAgent header sent with every request (required).
	UserAgent string

	// Timeout bounds a single HTTP attempt.
	Timeout time.Duration

	// Retry controls retries of server, rate limit and network errors.
	Retry RetryConfig

	// Redis enables the shared error budget gate when set.
	Redis *redis.Client

	// Logger overrides the component logger.
	Logger *zerolog.Logger
}

// DefaultConfig returns a configuration for baseURL+path with default
// timeouts and retries and no error budget.
func DefaultConfig(baseURL, path, userAgent string) Config {
	return Config{
		BaseURL:   baseURL,
		Path:      path,
		UserAgent: userAgent,
		Timeout:   30 * time.Second,
		Retry:     DefaultRetryConfig(),
	}
}

// Client fetches pages of one connection endpoint.
type Client[N any] struct {
	httpClient *http.Client
	endpoint   *url.URL
	budget     *ratelimit.Tracker
	config     Config
	logger     zerolog.Logger
}

var _ connection.Fetcher[json.RawMessage] = (*Client[json.RawMessage])(nil)

// New creates a client decoding nodes into N.
func New[N any](cfg Config) (*Client[N], error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("user-agent is required")
	}

	endpoint, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if endpoint.Scheme == "" || endpoint.Host == "" {
		return nil, fmt.Errorf("base url must be absolute (got %q)", cfg.BaseURL)
	}
	endpoint = endpoint.JoinPath(cfg.Path)

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = DefaultRetryConfig()
	}

	logger := logging.NewLogger("relay-source")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	logger = logger.With().Str("endpoint", endpoint.Path).Logger()

	c := &Client[N]{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		endpoint:   endpoint,
		config:     cfg,
		logger:     logger,
	}
	if cfg.Redis != nil {
		c.budget = ratelimit.NewTracker(cfg.Redis, ratelimit.Config{Source: endpoint.Host}, logger)
	}
	return c, nil
}

// Fetch implements connection.Fetcher.
func (c *Client[N]) Fetch(ctx context.Context, req connection.FetchRequest) (*connection.Connection[N], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	end := req.End().String()
	start := time.Now()
	defer func() {
		relaySourceRequestDuration.WithLabelValues(end).Observe(time.Since(start).Seconds())
	}()

	if c.budget != nil {
		allowed, err := c.budget.ShouldAllowRequest(ctx)
		if err != nil {
			c.logger.Error().Err(err).Msg("Error budget check failed")
			return nil, fmt.Errorf("error budget check: %w", err)
		}
		if !allowed {
			relaySourceRequestsTotal.WithLabelValues(end, "budget_blocked").Inc()
			return nil, &SourceError{
				ErrorClass: ErrorClassRateLimit,
				Message:    "request blocked",
				Err:        ErrBudgetExhausted,
			}
		}
	}

	target := *c.endpoint
	target.RawQuery = req.Values().Encode()

	c.logger.Debug().
		Str("end", end).
		Str("request", req.String()).
		Msg("Requesting page")

	var conn *connection.Connection[N]
	err := retryWithBackoff(ctx, c.config.Retry, c.logger, func() error {
		var attemptErr error
		conn, attemptErr = c.attempt(ctx, target.String(), end)
		return attemptErr
	})
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("end", end).
			Str("request", req.String()).
			Msg("Page request failed")
		return nil, err
	}

	c.logger.Debug().
		Str("end", end).
		Int("edges", len(conn.Edges)).
		Dur("duration", time.Since(start)).
		Msg("Page received")
	return conn, nil
}

// attempt performs one HTTP request and decodes its body.
func (c *Client[N]) attempt(ctx context.Context, target, end string) (*connection.Connection[N], error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("User-Agent", c.config.UserAgent)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		relaySourceErrorsTotal.WithLabelValues(string(ErrorClassNetwork)).Inc()
		relaySourceRequestsTotal.WithLabelValues(end, "network_error").Inc()
		return nil, &SourceError{ErrorClass: ErrorClassNetwork, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()

	if c.budget != nil {
		if err := c.budget.UpdateFromHeaders(ctx, resp.Header); err != nil {
			c.logger.Warn().Err(err).Msg("Failed to update error budget from headers")
		}
	}

	relaySourceRequestsTotal.WithLabelValues(end, strconv.Itoa(resp.StatusCode)).Inc()

	if errorClass := classifyStatus(resp.StatusCode); errorClass != "" {
		relaySourceErrorsTotal.WithLabelValues(string(errorClass)).Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		c.logger.Warn().
			Int("status_code", resp.StatusCode).
			Str("error_class", string(errorClass)).
			Msg("Source request error")

		srcErr := &SourceError{StatusCode: resp.StatusCode, ErrorClass: errorClass, Message: resp.Status}
		if len(body) > 0 {
			srcErr.Err = errors.New(string(body))
		}
		return nil, srcErr
	}

	var conn connection.Connection[N]
	if err := json.NewDecoder(resp.Body).Decode(&conn); err != nil {
		relaySourceErrorsTotal.WithLabelValues(string(ErrorClassDecode)).Inc()
		return nil, &SourceError{
			StatusCode: resp.StatusCode,
			ErrorClass: ErrorClassDecode,
			Message:    "decode connection",
			Err:        err,
		}
	}
	return &conn, nil
}

// Endpoint returns the URL pages are requested from.
func (c *Client[N]) Endpoint() string {
	return c.endpoint.String()
}

// SetHTTPClient sets a custom HTTP client (for testing).
func (c *Client[N]) SetHTTPClient(client *http.Client) {
	c.httpClient = client
}
