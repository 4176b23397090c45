// Package ratelimit tracks the remote API's throttling signals and gates
// outgoing requests. It reads 429 Retry-After responses and the
// X-RateLimit-Remaining / X-RateLimit-Reset headers emitted by NetBox
// deployments behind a rate-limiting proxy.
package ratelimit

import (
	"time"
)

// Redis keys for rate limit state storage.
const (
	RedisKeyRemaining       = "netbox:rate_limit:remaining"
	RedisKeyResetTimestamp  = "netbox:rate_limit:reset_timestamp"
	RedisKeyThrottledUntil  = "netbox:rate_limit:throttled_until"
	RedisKeyLastUpdate      = "netbox:rate_limit:last_update"
	defaultStateKeyLifetime = 10 * time.Minute
)

// Thresholds for rate limit decisions.
const (
	// RemainingThresholdWarning applies throttling when the remaining request
	// budget falls below this value.
	RemainingThresholdWarning = 5

	// RemainingUnknown marks a state where the server sent no budget header.
	RemainingUnknown = -1
)

// RateLimitState is the current throttling state of the remote API.
type RateLimitState struct {
	// Remaining is the request budget left in the current window, or
	// RemainingUnknown.
	Remaining int `json:"remaining"`

	// ResetAt is when the request budget window resets.
	ResetAt time.Time `json:"reset_at"`

	// ThrottledUntil is set from a 429 Retry-After; no request may be sent
	// before it.
	ThrottledUntil time.Time `json:"throttled_until"`

	// LastUpdate is when this state was last updated.
	LastUpdate time.Time `json:"last_update"`

	// IsHealthy is true when requests flow without waiting.
	IsHealthy bool `json:"is_healthy"`
}

// DefaultState is the state assumed before any response was seen.
func DefaultState() *RateLimitState {
	return &RateLimitState{
		Remaining: RemainingUnknown,
		IsHealthy: true,
	}
}

// IsStale returns true if the state data is older than the given duration.
func (s *RateLimitState) IsStale(maxAge time.Duration) bool {
	return time.Since(s.LastUpdate) > maxAge
}

// NeedsBlock reports whether requests must wait until WaitDuration elapses.
func (s *RateLimitState) NeedsBlock(now time.Time) bool {
	if now.Before(s.ThrottledUntil) {
		return true
	}
	return s.Remaining == 0 && now.Before(s.ResetAt)
}

// NeedsThrottling reports whether requests should be slowed down.
func (s *RateLimitState) NeedsThrottling(now time.Time) bool {
	return s.Remaining != RemainingUnknown &&
		s.Remaining < RemainingThresholdWarning &&
		!s.NeedsBlock(now)
}

// WaitDuration returns how long a blocked request must wait.
// Returns 0 if no block is active.
func (s *RateLimitState) WaitDuration(now time.Time) time.Duration {
	if !s.NeedsBlock(now) {
		return 0
	}
	until := s.ThrottledUntil
	if s.Remaining == 0 && s.ResetAt.After(until) {
		until = s.ResetAt
	}
	return until.Sub(now)
}

// UpdateHealth updates the IsHealthy field at the given time.
func (s *RateLimitState) UpdateHealth(now time.Time) {
	s.IsHealthy = !s.NeedsBlock(now) && !s.NeedsThrottling(now)
}
