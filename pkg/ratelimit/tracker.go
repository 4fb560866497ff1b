package ratelimit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Prometheus metrics for error budget tracking.
var (
	relaySourceErrorsRemaining = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "relay_source_errors_remaining",
		Help: "Errors remaining in the current error budget window of a source",
	}, []string{"source"})

	relaySourceBudgetBlocksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_source_budget_blocks_total",
		Help: "Total page requests blocked because the error budget was critical",
	}, []string{"source"})

	relaySourceBudgetThrottlesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "relay_source_budget_throttles_total",
		Help: "Total page requests delayed because the error budget was low",
	}, []string{"source"})
)

// Config holds tracker configuration.
type Config struct {
	// Source names the budget; trackers with the same source share state.
	Source string

	// ThrottleDelay is how long a request waits while the budget is low (default: 1s).
	ThrottleDelay time.Duration
}

// Tracker keeps the error budget of one source in Redis and gates requests.
type Tracker struct {
	redis  *redis.Client
	config Config
	keys   Keys
	logger zerolog.Logger
}

// NewTracker creates a tracker for cfg.Source.
func NewTracker(redisClient *redis.Client, cfg Config, logger zerolog.Logger) *Tracker {
	if cfg.ThrottleDelay <= 0 {
		cfg.ThrottleDelay = time.Second
	}
	return &Tracker{
		redis:  redisClient,
		config: cfg,
		keys:   KeysFor(cfg.Source),
		logger: logger.With().Str("source", cfg.Source).Logger(),
	}
}

// GetState reads the budget from Redis, or DefaultState if none was stored.
func (t *Tracker) GetState(ctx context.Context) (*BudgetState, error) {
	errorsRemaining, err := t.redis.Get(ctx, t.keys.ErrorsRemaining).Int()
	if errors.Is(err, redis.Nil) {
		t.logger.Debug().Msg("No error budget stored, assuming healthy")
		return DefaultState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get errors remaining: %w", err)
	}

	resetTimestamp, err := t.redis.Get(ctx, t.keys.ResetTimestamp).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	lastUpdateStr, err := t.redis.Get(ctx, t.keys.LastUpdate).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get last update: %w", err)
	}

	var lastUpdate time.Time
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &BudgetState{
		ErrorsRemaining: errorsRemaining,
		ResetAt:         time.Unix(resetTimestamp, 0),
		LastUpdate:      lastUpdate,
	}
	state.UpdateHealth()
	return state, nil
}

// UpdateFromHeaders stores the budget advertised by a response. Responses
// without budget headers are ignored.
func (t *Tracker) UpdateFromHeaders(ctx context.Context, headers http.Header) error {
	state, ok, err := ParseHeaders(headers, time.Now())
	if err != nil || !ok {
		return err
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := t.redis.Pipeline()
	pipe.Set(ctx, t.keys.ErrorsRemaining, state.ErrorsRemaining, 0)
	pipe.Set(ctx, t.keys.ResetTimestamp, state.ResetAt.Unix(), 0)
	pipe.Set(ctx, t.keys.LastUpdate, lastUpdateJSON, 0)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store error budget in redis: %w", err)
	}

	relaySourceErrorsRemaining.WithLabelValues(t.config.Source).Set(float64(state.ErrorsRemaining))

	switch {
	case state.NeedsCriticalBlock():
		t.logger.Error().
			Int("errors_remaining", state.ErrorsRemaining).
			Time("reset_at", state.ResetAt).
			Msg("Error budget CRITICAL - page requests will be blocked")
	case state.NeedsThrottling():
		t.logger.Warn().
			Int("errors_remaining", state.ErrorsRemaining).
			Time("reset_at", state.ResetAt).
			Msg("Error budget low - page requests will be throttled")
	default:
		t.logger.Debug().
			Int("errors_remaining", state.ErrorsRemaining).
			Bool("is_healthy", state.IsHealthy).
			Msg("Error budget updated")
	}
	return nil
}

// ShouldAllowRequest reports whether a request may be sent. It returns false
// while the budget is critical and delays by ThrottleDelay while it is low.
// A cancelled ctx ends the delay with ctx.Err().
func (t *Tracker) ShouldAllowRequest(ctx context.Context) (bool, error) {
	state, err := t.GetState(ctx)
	if err != nil {
		return false, fmt.Errorf("get error budget: %w", err)
	}

	if state.NeedsCriticalBlock() {
		t.logger.Error().
			Int("errors_remaining", state.ErrorsRemaining).
			Dur("wait_duration", state.TimeUntilReset()).
			Msg("Error budget critical - blocking request")
		relaySourceBudgetBlocksTotal.WithLabelValues(t.config.Source).Inc()
		return false, nil
	}

	if state.NeedsThrottling() {
		t.logger.Warn().
			Int("errors_remaining", state.ErrorsRemaining).
			Dur("delay", t.config.ThrottleDelay).
			Msg("Error budget low - throttling request")
		relaySourceBudgetThrottlesTotal.WithLabelValues(t.config.Source).Inc()

		timer := time.NewTimer(t.config.ThrottleDelay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-timer.C:
		}
	}

	return true, nil
}
