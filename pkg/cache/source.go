package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/relay-pager/pkg/connection"
	"github.com/Sternrassler/relay-pager/pkg/logging"
	"github.com/rs/zerolog"
)

// DefaultTTL is used when SourceConfig.TTL is not set.
const DefaultTTL = 5 * time.Minute

// SourceConfig configures a caching Source.
type SourceConfig struct {
	// Namespace separates connections sharing a Redis instance (required).
	Namespace string

	// Endpoint is part of every key, usually the connection path.
	Endpoint string

	// TTL is the lifetime of cached pages (default: DefaultTTL).
	TTL time.Duration

	// CacheInitial also caches requests without a cursor.
	CacheInitial bool

	Logger *zerolog.Logger
}

// Source caches the pages of an inner fetcher.
type Source[N any] struct {
	inner   connection.Fetcher[N]
	manager *Manager
	config  SourceConfig
	logger  zerolog.Logger
}

var _ connection.Fetcher[json.RawMessage] = (*Source[json.RawMessage])(nil)

// NewSource wraps inner with a page cache stored through manager.
func NewSource[N any](inner connection.Fetcher[N], manager *Manager, cfg SourceConfig) (*Source[N], error) {
	if inner == nil {
		return nil, errors.New("inner source is required")
	}
	if manager == nil {
		return nil, errors.New("cache manager is required")
	}
	if cfg.Namespace == "" {
		return nil, errors.New("namespace is required")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}

	logger := logging.NewLogger("page-cache")
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}

	return &Source[N]{
		inner:   inner,
		manager: manager,
		config:  cfg,
		logger:  logger.With().Str("namespace", cfg.Namespace).Logger(),
	}, nil
}

// Key returns the cache key of req.
func (s *Source[N]) Key(req connection.FetchRequest) CacheKey {
	return CacheKey{
		Namespace:   s.config.Namespace,
		Endpoint:    s.config.Endpoint,
		QueryParams: req.Values(),
	}
}

// Fetch implements connection.Fetcher. Cache failures never fail the fetch.
func (s *Source[N]) Fetch(ctx context.Context, req connection.FetchRequest) (*connection.Connection[N], error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if req.After == nil && req.Before == nil && !s.config.CacheInitial {
		CacheBypass.Inc()
		return s.inner.Fetch(ctx, req)
	}

	key := s.Key(req)
	if conn, ok := s.lookup(ctx, key); ok {
		return conn, nil
	}

	conn, err := s.inner.Fetch(ctx, req)
	if err != nil || conn == nil {
		return conn, err
	}

	s.store(ctx, key, conn)
	return conn, nil
}

func (s *Source[N]) lookup(ctx context.Context, key CacheKey) (*connection.Connection[N], bool) {
	entry, err := s.manager.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, ErrCacheMiss) {
			s.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache lookup failed")
		}
		return nil, false
	}

	var conn connection.Connection[N]
	if err := json.Unmarshal(entry.Data, &conn); err != nil {
		CacheErrors.WithLabelValues("decode").Inc()
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Dropping undecodable cache entry")
		_ = s.manager.Delete(ctx, key)
		return nil, false
	}

	s.logger.Debug().
		Str("key", key.String()).
		Dur("age", entry.Age()).
		Msg("Cache hit")
	return &conn, true
}

func (s *Source[N]) store(ctx context.Context, key CacheKey, conn *connection.Connection[N]) {
	data, err := json.Marshal(conn)
	if err != nil {
		CacheErrors.WithLabelValues("encode").Inc()
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Cannot encode page for cache")
		return
	}
	if err := s.manager.Set(ctx, key, NewEntry(data, s.config.TTL)); err != nil {
		s.logger.Warn().Err(err).Str("key", key.String()).Msg("Cache store failed")
	}
}

// Invalidate drops every cached page of this source's namespace.
func (s *Source[N]) Invalidate(ctx context.Context) error {
	n, err := s.manager.Invalidate(ctx, s.config.Namespace)
	if err != nil {
		return fmt.Errorf("invalidate %s: %w", s.config.Namespace, err)
	}
	s.logger.Info().Int("keys", n).Msg("Page cache invalidated")
	return nil
}
