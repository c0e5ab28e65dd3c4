package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys for shared rate limit state.
const (
	RedisKeyRemaining    = "veracross:rate_limit:remaining"
	RedisKeyResetSeconds = "veracross:rate_limit:reset_seconds"
	RedisKeyLastUpdate   = "veracross:rate_limit:last_update"
)

// RedisStore shares rate limit state across processes via Redis. Useful
// when several workers pull from the same school with one credential: the
// quota is per credential, so every worker must see the same counters.
type RedisStore struct {
	redis *redis.Client
}

// NewRedisStore creates a Redis-backed state store.
func NewRedisStore(redisClient *redis.Client) *RedisStore {
	return &RedisStore{redis: redisClient}
}

// Get retrieves the shared state from Redis. Returns the default state if
// no data exists yet.
func (r *RedisStore) Get(ctx context.Context) (State, error) {
	remaining, err := r.redis.Get(ctx, RedisKeyRemaining).Int()
	if err == redis.Nil {
		return DefaultState(), nil
	}
	if err != nil {
		return State{}, fmt.Errorf("get remaining: %w", err)
	}

	resetSeconds, err := r.redis.Get(ctx, RedisKeyResetSeconds).Int()
	if err != nil && err != redis.Nil {
		return State{}, fmt.Errorf("get reset seconds: %w", err)
	}

	var lastUpdate time.Time
	lastUpdateStr, err := r.redis.Get(ctx, RedisKeyLastUpdate).Result()
	if err != nil && err != redis.Nil {
		return State{}, fmt.Errorf("get last update: %w", err)
	}
	if lastUpdateStr != "" {
		if err := json.Unmarshal([]byte(lastUpdateStr), &lastUpdate); err != nil {
			return State{}, fmt.Errorf("parse last update: %w", err)
		}
	}

	return State{
		Remaining:    remaining,
		ResetSeconds: resetSeconds,
		LastUpdate:   lastUpdate,
	}, nil
}

// Set stores the state in Redis atomically.
func (r *RedisStore) Set(ctx context.Context, state State) error {
	lastUpdateJSON, err := json.Marshal(state.LastUpdate)
	if err != nil {
		return fmt.Errorf("marshal last update: %w", err)
	}

	pipe := r.redis.Pipeline()
	pipe.Set(ctx, RedisKeyRemaining, state.Remaining, 0)
	pipe.Set(ctx, RedisKeyResetSeconds, state.ResetSeconds, 0)
	pipe.Set(ctx, RedisKeyLastUpdate, lastUpdateJSON, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store rate limit state in redis: %w", err)
	}
	return nil
}
