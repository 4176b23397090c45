package ratelimit

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestTracker(now time.Time) *Tracker {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(NewMemoryStore(), logger)
	tracker.now = func() time.Time { return now }
	return tracker
}

func TestNewTracker_NilStore(t *testing.T) {
	tracker := NewTracker(nil, zerolog.Nop())

	state, err := tracker.GetState(context.Background())
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if state.Remaining != RemainingUnknown {
		t.Errorf("Remaining = %d, want %d", state.Remaining, RemainingUnknown)
	}
	if !state.IsHealthy {
		t.Error("Default state should be healthy")
	}
}

func TestUpdateFromResponse_Headers(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name            string
		remainHeader    string
		resetHeader     string
		expectedRemain  int
		expectedReset   time.Time
		expectedHealthy bool
	}{
		{
			name:            "healthy budget",
			remainHeader:    "90",
			resetHeader:     "60",
			expectedRemain:  90,
			expectedReset:   now.Add(60 * time.Second),
			expectedHealthy: true,
		},
		{
			name:            "low budget",
			remainHeader:    "3",
			resetHeader:     "30",
			expectedRemain:  3,
			expectedReset:   now.Add(30 * time.Second),
			expectedHealthy: false,
		},
		{
			name:            "exhausted budget with epoch reset",
			remainHeader:    "0",
			resetHeader:     "1772352120",
			expectedRemain:  0,
			expectedReset:   time.Unix(1772352120, 0),
			expectedHealthy: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(now)
			headers := http.Header{}
			headers.Set("X-RateLimit-Remaining", tt.remainHeader)
			headers.Set("X-RateLimit-Reset", tt.resetHeader)

			if err := tracker.UpdateFromResponse(context.Background(), http.StatusOK, headers); err != nil {
				t.Fatalf("UpdateFromResponse() error = %v", err)
			}

			state, err := tracker.GetState(context.Background())
			if err != nil {
				t.Fatalf("GetState() error = %v", err)
			}
			if state.Remaining != tt.expectedRemain {
				t.Errorf("Remaining = %d, want %d", state.Remaining, tt.expectedRemain)
			}
			if !state.ResetAt.Equal(tt.expectedReset) {
				t.Errorf("ResetAt = %v, want %v", state.ResetAt, tt.expectedReset)
			}
			if state.IsHealthy != tt.expectedHealthy {
				t.Errorf("IsHealthy = %v, want %v", state.IsHealthy, tt.expectedHealthy)
			}
		})
	}
}

func TestUpdateFromResponse_InvalidHeaders(t *testing.T) {
	tests := []struct {
		name         string
		remainHeader string
		resetHeader  string
		shouldError  bool
	}{
		{name: "no headers", shouldError: false},
		{name: "only reset header", resetHeader: "60", shouldError: false},
		{name: "invalid remain header", remainHeader: "invalid", resetHeader: "60", shouldError: true},
		{name: "invalid reset header", remainHeader: "100", resetHeader: "invalid", shouldError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(time.Now())
			headers := http.Header{}
			if tt.remainHeader != "" {
				headers.Set("X-RateLimit-Remaining", tt.remainHeader)
			}
			if tt.resetHeader != "" {
				headers.Set("X-RateLimit-Reset", tt.resetHeader)
			}

			err := tracker.UpdateFromResponse(context.Background(), http.StatusOK, headers)
			if tt.shouldError && err == nil {
				t.Error("Expected error but got nil")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestUpdateFromResponse_TooManyRequests(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		retryAfter string
		expected   time.Time
	}{
		{name: "delta seconds", retryAfter: "7", expected: now.Add(7 * time.Second)},
		{name: "http date", retryAfter: now.Add(30 * time.Second).Format(http.TimeFormat), expected: now.Add(30 * time.Second)},
		{name: "missing header falls back to one second", retryAfter: "", expected: now.Add(time.Second)},
		{name: "garbage header falls back to one second", retryAfter: "soon", expected: now.Add(time.Second)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tracker := newTestTracker(now)
			headers := http.Header{}
			if tt.retryAfter != "" {
				headers.Set("Retry-After", tt.retryAfter)
			}

			if err := tracker.UpdateFromResponse(context.Background(), http.StatusTooManyRequests, headers); err != nil {
				t.Fatalf("UpdateFromResponse() error = %v", err)
			}

			state, _ := tracker.GetState(context.Background())
			if !state.ThrottledUntil.Equal(tt.expected) {
				t.Errorf("ThrottledUntil = %v, want %v", state.ThrottledUntil, tt.expected)
			}
			if !state.NeedsBlock(now) {
				t.Error("State should block after a 429")
			}
		})
	}
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		value  string
		want   time.Duration
		wantOK bool
	}{
		{name: "empty", value: "", wantOK: false},
		{name: "zero", value: "0", want: 0, wantOK: true},
		{name: "seconds", value: "12", want: 12 * time.Second, wantOK: true},
		{name: "negative", value: "-3", wantOK: false},
		{name: "date in the past", value: now.Add(-time.Minute).Format(http.TimeFormat), want: 0, wantOK: true},
		{name: "garbage", value: "later", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseRetryAfter(tt.value, now)
			if ok != tt.wantOK {
				t.Fatalf("ParseRetryAfter() ok = %v, want %v", ok, tt.wantOK)
			}
			if got != tt.want {
				t.Errorf("ParseRetryAfter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWait_HealthyReturnsImmediately(t *testing.T) {
	tracker := newTestTracker(time.Now())

	start := time.Now()
	if err := tracker.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed > 50*time.Millisecond {
		t.Errorf("Wait() took %v on a healthy state", elapsed)
	}
}

func TestWait_BlocksUntilWindowEnds(t *testing.T) {
	now := time.Now()
	tracker := newTestTracker(now)
	state := DefaultState()
	state.ThrottledUntil = now.Add(80 * time.Millisecond)
	if err := tracker.store.Save(context.Background(), state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	start := time.Now()
	if err := tracker.Wait(context.Background()); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if elapsed := time.Since(start); elapsed < 70*time.Millisecond {
		t.Errorf("Wait() returned after %v, want at least 70ms", elapsed)
	}
}

func TestWait_Cancellation(t *testing.T) {
	now := time.Now()
	tracker := newTestTracker(now)
	state := DefaultState()
	state.ThrottledUntil = now.Add(time.Minute)
	_ = tracker.store.Save(context.Background(), state)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := tracker.Wait(ctx)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() error = %v, want context.DeadlineExceeded", err)
	}
}

func TestWait_CapsLongWindows(t *testing.T) {
	now := time.Now()
	tracker := newTestTracker(now)
	tracker.maxWait = 10 * time.Millisecond
	state := DefaultState()
	state.ThrottledUntil = now.Add(time.Hour)
	_ = tracker.store.Save(context.Background(), state)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := tracker.Wait(ctx); err != nil {
		t.Errorf("Wait() error = %v, want nil after capped wait", err)
	}
}

func TestMemoryStore_CopiesState(t *testing.T) {
	store := NewMemoryStore()
	state := &RateLimitState{Remaining: 10}
	if err := store.Save(context.Background(), state); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	state.Remaining = 1

	loaded, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Remaining != 10 {
		t.Errorf("Remaining = %d, want 10", loaded.Remaining)
	}

	if err := store.Save(context.Background(), nil); err == nil {
		t.Error("Save(nil) should fail")
	}
}
