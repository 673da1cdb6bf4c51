/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package cache provides a Redis-based caching layer for settings and
// upstream responses, with an in-process fallback when Redis is absent.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/friendsincode/classboard/internal/telemetry"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Default TTL values for different cache types
const (
	DefaultSettingsTTL    = 10 * time.Minute
	DefaultWeatherTTL     = 5 * time.Minute
	DefaultDeparturesTTL  = 30 * time.Second
	DefaultAffirmationTTL = 1 * time.Hour
)

// Key prefixes for Redis cache
const (
	KeySettings    = "classboard:cache:settings"
	KeyWeather     = "classboard:cache:weather:"    // + zip code
	KeyDepartures  = "classboard:cache:departures:" // + station id
	KeyAffirmation = "classboard:cache:affirmation"
)

// Config contains cache configuration.
type Config struct {
	Enabled       bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Fallback behavior
	DisableOnError bool // If true, stop using Redis after the first error
}

// DefaultConfig returns default cache configuration.
func DefaultConfig() Config {
	return Config{
		RedisAddr:      "localhost:6379",
		DisableOnError: true,
	}
}

// Cache stores JSON values in Redis. When Redis is disabled or has failed,
// values are kept in process memory instead, so TTL semantics hold either way.
type Cache struct {
	client *redis.Client
	logger zerolog.Logger
	config Config
	now    func() time.Time

	mu       sync.RWMutex
	disabled bool // Circuit breaker state
	memory   map[string]memoryEntry
}

type memoryEntry struct {
	data    []byte
	expires time.Time
}

// New creates a new cache instance. It never fails: an unreachable Redis
// leaves the cache in memory-only mode.
func New(cfg Config, logger zerolog.Logger) *Cache {
	c := &Cache{
		logger: logger.With().Str("component", "cache").Logger(),
		config: cfg,
		now:    time.Now,
		memory: make(map[string]memoryEntry),
	}

	if !cfg.Enabled {
		c.disabled = true
		c.logger.Debug().Msg("Redis cache disabled, using in-memory cache")
		return c
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.RedisAddr,
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		c.disabled = true
		c.logger.Warn().Err(err).Msg("Redis cache unavailable, using in-memory cache")
		return c
	}

	c.client = client
	c.logger.Info().Str("addr", cfg.RedisAddr).Msg("Redis cache initialized")
	return c
}

// NewMemory returns a cache that never talks to Redis.
func NewMemory(logger zerolog.Logger) *Cache {
	return New(Config{}, logger)
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}

// IsAvailable returns true if Redis is in use.
func (c *Cache) IsAvailable() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.disabled && c.client != nil
}

// handleError handles Redis errors with circuit breaker logic.
func (c *Cache) handleError(err error, operation string) {
	if err == nil || errors.Is(err, redis.Nil) {
		return
	}

	c.logger.Debug().Err(err).Str("operation", operation).Msg("cache operation failed")

	if c.config.DisableOnError {
		c.mu.Lock()
		c.disabled = true
		c.mu.Unlock()
		c.logger.Warn().Msg("disabling Redis cache due to error, using in-memory cache")
	}
}

// Get loads key into dest. It reports false on a miss.
func (c *Cache) Get(ctx context.Context, key string, dest any) bool {
	data, ok := c.getRaw(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("failed to unmarshal cached value")
		return false
	}
	return true
}

func (c *Cache) getRaw(ctx context.Context, key string) ([]byte, bool) {
	if c.IsAvailable() {
		data, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			return data, true
		}
		if errors.Is(err, redis.Nil) {
			return nil, false
		}
		c.handleError(err, "get")
	}

	c.mu.RLock()
	entry, ok := c.memory[key]
	c.mu.RUnlock()
	if !ok || !c.now().Before(entry.expires) {
		return nil, false
	}
	return entry.data, true
}

// Set stores value under key for ttl.
func (c *Cache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value: %w", err)
	}

	if c.IsAvailable() {
		err := c.client.Set(ctx, key, data, ttl).Err()
		if err == nil {
			return nil
		}
		c.handleError(err, "set")
	}

	c.mu.Lock()
	c.memory[key] = memoryEntry{data: data, expires: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

// Delete removes keys from both tiers.
func (c *Cache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	c.mu.Lock()
	for _, key := range keys {
		delete(c.memory, key)
	}
	c.mu.Unlock()

	if c.IsAvailable() {
		if err := c.client.Del(ctx, keys...).Err(); err != nil {
			c.handleError(err, "delete")
			return err
		}
	}
	return nil
}

// Sweep drops expired in-memory entries and returns how many were removed.
func (c *Cache) Sweep() int {
	now := c.now()
	c.mu.Lock()
	defer c.mu.Unlock()
	removed := 0
	for key, entry := range c.memory {
		if !now.Before(entry.expires) {
			delete(c.memory, key)
			removed++
		}
	}
	return removed
}

// Fetch returns the cached value for key, or calls load, caches its result
// for ttl and returns it. Load errors are returned and nothing is cached.
func Fetch[T any](ctx context.Context, c *Cache, kind, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var cached T
	if c.Get(ctx, key, &cached) {
		telemetry.CacheLookupsTotal.WithLabelValues(kind, "hit").Inc()
		return cached, nil
	}
	telemetry.CacheLookupsTotal.WithLabelValues(kind, "miss").Inc()

	value, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	if err := c.Set(ctx, key, value, ttl); err != nil {
		c.logger.Debug().Err(err).Str("key", key).Msg("cache set failed")
	}
	return value, nil
}
