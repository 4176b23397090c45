package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store persists the rate limit state. The in-memory store serves a single
// process; the Redis store lets concurrent nbx processes against the same
// NetBox share one throttle window.
type Store interface {
	Load(ctx context.Context) (*RateLimitState, error)
	Save(ctx context.Context, state *RateLimitState) error
}

// MemoryStore keeps the state in process memory.
type MemoryStore struct {
	mu    sync.Mutex
	state *RateLimitState
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the stored state, or the default state.
func (m *MemoryStore) Load(_ context.Context) (*RateLimitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state == nil {
		return DefaultState(), nil
	}
	cp := *m.state
	return &cp, nil
}

// Save stores a copy of the state.
func (m *MemoryStore) Save(_ context.Context, state *RateLimitState) error {
	if state == nil {
		return fmt.Errorf("rate limit state cannot be nil")
	}
	cp := *state
	m.mu.Lock()
	m.state = &cp
	m.mu.Unlock()
	return nil
}

// RedisStore keeps the state in Redis.
type RedisStore struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewRedisStore creates a Redis-backed store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	return &RedisStore{redis: redisClient, ttl: defaultStateKeyLifetime}
}

// Load retrieves the state from Redis.
// Returns the default state if no data exists in Redis.
func (s *RedisStore) Load(ctx context.Context) (*RateLimitState, error) {
	remaining, err := s.redis.Get(ctx, RedisKeyRemaining).Int()
	if err == redis.Nil {
		return DefaultState(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("get remaining: %w", err)
	}

	resetTimestamp, err := s.redis.Get(ctx, RedisKeyResetTimestamp).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get reset timestamp: %w", err)
	}

	throttledUntil, err := s.redis.Get(ctx, RedisKeyThrottledUntil).Int64()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get throttled until: %w", err)
	}

	var lastUpdate time.Time
	lastUpdateStr, err := s.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return nil, fmt.Errorf("get last update: %w", err)
	}
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return nil, fmt.Errorf("parse last update: %w", err)
		}
	}

	state := &RateLimitState{
		Remaining:  remaining,
		LastUpdate: lastUpdate,
	}
	if resetTimestamp > 0 {
		state.ResetAt = time.UnixMilli(resetTimestamp)
	}
	if throttledUntil > 0 {
		state.ThrottledUntil = time.UnixMilli(throttledUntil)
	}
	state.UpdateHealth(time.Now())

	return state, nil
}

// Save stores the state in Redis atomically.
func (s *RedisStore) Save(ctx context.Context, state *RateLimitState) error {
	if state == nil {
		return fmt.Errorf("rate limit state cannot be nil")
	}

	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := s.redis.TxPipeline()
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, s.ttl)
	pipe.Set(ctx, RedisKeyResetTimestamp, unixMilli(state.ResetAt), s.ttl)
	pipe.Set(ctx, RedisKeyThrottledUntil, unixMilli(state.ThrottledUntil), s.ttl)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, s.ttl)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}
