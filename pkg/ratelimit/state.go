// Package ratelimit tracks the error budget a connection source advertises
// through the X-Error-Limit-Remain and X-Error-Limit-Reset response headers
// and gates page requests before the budget runs out.
package ratelimit

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// Response headers carrying the error budget.
const (
	HeaderErrorLimitRemain = "X-Error-Limit-Remain"
	HeaderErrorLimitReset  = "X-Error-Limit-Reset"
)

// KeyPrefix namespaces every Redis key written by this package.
const KeyPrefix = "relay:error_budget"

// Keys names the Redis keys holding the budget of one source.
type Keys struct {
	ErrorsRemaining string
	ResetTimestamp  string
	LastUpdate      string
}

// KeysFor returns the keys for source. Trackers of the same source share
// their budget through these keys.
func KeysFor(source string) Keys {
	base := fmt.Sprintf("%s:%s", KeyPrefix, source)
	return Keys{
		ErrorsRemaining: base + ":errors_remaining",
		ResetTimestamp:  base + ":reset_timestamp",
		LastUpdate:      base + ":last_update",
	}
}

// Thresholds for gating decisions.
const (
	// ErrorThresholdCritical blocks all requests when errors remaining falls below this value.
	ErrorThresholdCritical = 5

	// ErrorThresholdWarning throttles requests when errors remaining falls below this value.
	ErrorThresholdWarning = 20

	// ErrorThresholdHealthy indicates normal operation.
	ErrorThresholdHealthy = 50
)

// BudgetState is the error budget of one source.
type BudgetState struct {
	// ErrorsRemaining is the number of failed requests the source still tolerates.
	ErrorsRemaining int `json:"errors_remaining"`

	// ResetAt is when the source restores the budget.
	ResetAt time.Time `json:"reset_at"`

	// LastUpdate is when the budget was last read from response headers.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when ErrorsRemaining >= ErrorThresholdHealthy.
	IsHealthy bool `json:"is_healthy"`
}

// DefaultState is assumed until a source reported its budget.
func DefaultState() *BudgetState {
	now := time.Now()
	return &BudgetState{
		ErrorsRemaining: 100,
		ResetAt:         now.Add(60 * time.Second),
		LastUpdate:      now,
		IsHealthy:       true,
	}
}

// ParseHeaders extracts the budget from response headers. ok is false when
// the source does not advertise a budget.
func ParseHeaders(headers http.Header, now time.Time) (state *BudgetState, ok bool, err error) {
	remainStr := headers.Get(HeaderErrorLimitRemain)
	if remainStr == "" {
		return nil, false, nil
	}

	remain, err := strconv.Atoi(remainStr)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s header: %w", HeaderErrorLimitRemain, err)
	}

	resetStr := headers.Get(HeaderErrorLimitReset)
	if resetStr == "" {
		return nil, false, fmt.Errorf("%s header missing", HeaderErrorLimitReset)
	}
	resetSeconds, err := strconv.Atoi(resetStr)
	if err != nil {
		return nil, false, fmt.Errorf("parse %s header: %w", HeaderErrorLimitReset, err)
	}

	state = &BudgetState{
		ErrorsRemaining: remain,
		ResetAt:         now.Add(time.Duration(resetSeconds) * time.Second),
		LastUpdate:      now,
	}
	state.UpdateHealth()
	return state, true, nil
}

// IsStale returns true if the state is older than maxAge.
func (s *BudgetState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsCriticalBlock returns true if requests should be blocked.
func (s *BudgetState) NeedsCriticalBlock() bool {
	return s.ErrorsRemaining < ErrorThresholdCritical
}

// NeedsThrottling returns true if requests should be delayed.
func (s *BudgetState) NeedsThrottling() bool {
	return s.ErrorsRemaining < ErrorThresholdWarning && !s.NeedsCriticalBlock()
}

// TimeUntilReset returns the duration until the budget resets, or 0 if the
// reset time has passed.
func (s *BudgetState) TimeUntilReset() time.Duration {
	duration := time.Until(s.ResetAt)
	if duration < 0 {
		return 0
	}
	return duration
}

// UpdateHealth updates IsHealthy from ErrorsRemaining.
func (s *BudgetState) UpdateHealth() {
	s.IsHealthy = s.ErrorsRemaining >= ErrorThresholdHealthy
}
