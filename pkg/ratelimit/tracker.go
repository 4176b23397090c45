package ratelimit

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// Prometheus metrics for rate limit tracking.
var (
	netboxRateLimitRemaining = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "netbox_rate_limit_remaining",
		Help: "Requests remaining in the current NetBox rate limit window (-1 if unknown)",
	})

	netboxRateLimitBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netbox_rate_limit_blocks_total",
		Help: "Total number of requests delayed until a throttle window ended",
	})

	netboxRateLimitThrottlesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "netbox_rate_limit_throttles_total",
		Help: "Total number of requests slowed down because the budget is low",
	})
)

const (
	// DefaultThrottleDelay is the pause applied when the budget is low.
	DefaultThrottleDelay = 250 * time.Millisecond

	// DefaultMaxWait caps a single blocking wait.
	DefaultMaxWait = 2 * time.Minute
)

// Tracker monitors NetBox throttling signals and gates requests.
type Tracker struct {
	store         Store
	logger        zerolog.Logger
	throttleDelay time.Duration
	maxWait       time.Duration
	now           func() time.Time
}

// NewTracker creates a new rate limit tracker. A nil store uses memory.
func NewTracker(store Store, logger zerolog.Logger) *Tracker {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Tracker{
		store:         store,
		logger:        logger,
		throttleDelay: DefaultThrottleDelay,
		maxWait:       DefaultMaxWait,
		now:           time.Now,
	}
}

// GetState retrieves the current rate limit state.
func (t *Tracker) GetState(ctx context.Context) (*RateLimitState, error) {
	return t.store.Load(ctx)
}

// UpdateFromResponse records the throttling signals of a response.
// Responses without rate-limit headers and without a 429 leave the state
// untouched.
func (t *Tracker) UpdateFromResponse(ctx context.Context, status int, headers http.Header) error {
	now := t.now()

	remainStr := headers.Get("X-RateLimit-Remaining")
	retryAfterStr := headers.Get("Retry-After")
	if remainStr == "" && status != http.StatusTooManyRequests {
		return nil
	}

	state, err := t.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load rate limit state: %w", err)
	}

	if remainStr != "" {
		remain, err := strconv.Atoi(strings.TrimSpace(remainStr))
		if err != nil {
			return fmt.Errorf("parse X-RateLimit-Remaining header: %w", err)
		}
		state.Remaining = remain

		if resetStr := headers.Get("X-RateLimit-Reset"); resetStr != "" {
			resetAt, err := parseReset(resetStr, now)
			if err != nil {
				return fmt.Errorf("parse X-RateLimit-Reset header: %w", err)
			}
			state.ResetAt = resetAt
		}
		netboxRateLimitRemaining.Set(float64(remain))
	}

	if status == http.StatusTooManyRequests {
		wait, ok := ParseRetryAfter(retryAfterStr, now)
		if !ok {
			wait = time.Second
		}
		state.ThrottledUntil = now.Add(wait)
	}

	state.LastUpdate = now
	state.UpdateHealth(now)

	if err := t.store.Save(ctx, state); err != nil {
		return err
	}

	switch {
	case state.NeedsBlock(now):
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Dur("wait_duration", state.WaitDuration(now)).
			Msg("NetBox rate limit reached - requests will wait")
	case state.NeedsThrottling(now):
		t.logger.Warn().
			Int("remaining", state.Remaining).
			Msg("NetBox rate limit low - requests will be throttled")
	default:
		t.logger.Debug().
			Int("remaining", state.Remaining).
			Time("reset_at", state.ResetAt).
			Msg("NetBox rate limit state updated")
	}

	return nil
}

// Wait blocks until a request may be sent. It returns ctx.Err() when the
// context ends first.
func (t *Tracker) Wait(ctx context.Context) error {
	state, err := t.store.Load(ctx)
	if err != nil {
		t.logger.Warn().Err(err).Msg("Rate limit state unavailable - not waiting")
		return nil
	}

	now := t.now()
	var delay time.Duration
	switch {
	case state.NeedsBlock(now):
		delay = state.WaitDuration(now)
		if delay > t.maxWait {
			delay = t.maxWait
		}
		t.logger.Info().
			Dur("wait_duration", delay).
			Msg("Waiting for NetBox rate limit window")
		netboxRateLimitBlocksTotal.Inc()
	case state.NeedsThrottling(now):
		delay = t.throttleDelay
		netboxRateLimitThrottlesTotal.Inc()
	default:
		return ctx.Err()
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// ParseRetryAfter parses a Retry-After header in delta-seconds or HTTP-date form.
func ParseRetryAfter(value string, now time.Time) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0, false
		}
		return time.Duration(secs) * time.Second, true
	}
	if at, err := http.ParseTime(value); err == nil {
		d := at.Sub(now)
		if d < 0 {
			d = 0
		}
		return d, true
	}
	return 0, false
}

// parseReset accepts either seconds-until-reset or a unix timestamp.
func parseReset(value string, now time.Time) (time.Time, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	// values this large are epoch seconds, not a delta
	if n > 1_000_000_000 {
		return time.Unix(n, 0), nil
	}
	return now.Add(time.Duration(n) * time.Second), nil
}
