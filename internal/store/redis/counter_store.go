// Package redis implements the counter/cache store on go-redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config controls the Redis connection.
type Config struct {
	// URL takes priority when set (redis://host:port/db); otherwise Addr is
	// used directly.
	URL  string
	Addr string
}

// CounterStore keeps small TTL'd counters (retry bookkeeping) in Redis.
type CounterStore struct {
	client *redis.Client
}

// New connects to Redis and verifies the connection with a ping.
func New(ctx context.Context, cfg Config) (*CounterStore, error) {
	var opt *redis.Options
	if cfg.URL != "" {
		parsed, err := redis.ParseURL(cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		opt = parsed
	} else {
		if cfg.Addr == "" {
			return nil, fmt.Errorf("redis.addr is required")
		}
		opt = &redis.Options{Addr: cfg.Addr}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &CounterStore{client: client}, nil
}

// NewWithClient wraps an existing client (primarily for testing).
func NewWithClient(client *redis.Client) *CounterStore {
	return &CounterStore{client: client}
}

// Close releases the underlying connection pool.
func (s *CounterStore) Close() error {
	return s.client.Close()
}

// Get returns the counter value; an absent key reads as zero.
func (s *CounterStore) Get(ctx context.Context, key string) (int64, error) {
	v, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("get counter %q: %w", key, err)
	}
	return v, nil
}

// Increment bumps the counter and refreshes its TTL, returning the new
// value. The increment itself is atomic; callers that read-then-increment
// across invocations are not serialized here.
func (s *CounterStore) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	v, err := s.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment counter %q: %w", key, err)
	}
	if ttl > 0 {
		if err := s.client.Expire(ctx, key, ttl).Err(); err != nil {
			return v, fmt.Errorf("expire counter %q: %w", key, err)
		}
	}
	return v, nil
}

// Delete removes the counter.
func (s *CounterStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("delete counter %q: %w", key, err)
	}
	return nil
}
