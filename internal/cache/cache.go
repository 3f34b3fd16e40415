// Package cache memoizes verification outcomes in Redis. Verification is
// deterministic for identical inputs, so a cached outcome is as good as a
// fresh run and skips two model calls.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/veridoc-io/veridoc/internal/pipeline"
)

const keyPrefix = "veridoc:outcome:"

// DefaultTTL bounds how long a cached outcome is served.
const DefaultTTL = 24 * time.Hour

// Config holds the cache configuration. An empty URL disables caching.
type Config struct {
	URL string
	TTL time.Duration
}

// DefaultConfig returns the default cache configuration.
func DefaultConfig() Config {
	return Config{URL: "", TTL: DefaultTTL}
}

// Validate checks the cache configuration.
func (c Config) Validate() error {
	if c.TTL <= 0 {
		return fmt.Errorf("cache ttl must be positive, got %v", c.TTL)
	}
	return nil
}

// Cache stores outcomes keyed by document digest and claimed fields.
type Cache struct {
	rdb *redis.Client
	ttl time.Duration
}

// New connects to Redis from the configured URL.
func New(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &Cache{rdb: redis.NewClient(opt), ttl: cfg.TTL}, nil
}

// NewWithClient wraps an existing Redis client.
func NewWithClient(rdb *redis.Client, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{rdb: rdb, ttl: ttl}
}

// Key derives the cache key for a request. Fields are length-framed before
// hashing so adjacent values cannot collide by concatenation.
func Key(req pipeline.Request) string {
	h := sha256.New()
	for _, part := range [][]byte{
		req.RawDocument,
		[]byte(req.Kind),
		[]byte(req.Name),
		[]byte(req.RollNumber),
		[]byte(req.Skill),
		[]byte(req.Description),
	} {
		_ = binary.Write(h, binary.LittleEndian, uint64(len(part)))
		h.Write(part)
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached outcome for req, if any. Cache failures degrade to
// a miss; they never fail a verification.
func (c *Cache) Get(ctx context.Context, req pipeline.Request) (*pipeline.Outcome, bool) {
	data, err := c.rdb.Get(ctx, Key(req)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			slog.Debug("Outcome cache read failed", "error", err)
		}
		return nil, false
	}
	var outcome pipeline.Outcome
	if err := json.Unmarshal(data, &outcome); err != nil {
		slog.Debug("Outcome cache entry corrupt", "error", err)
		return nil, false
	}
	return &outcome, true
}

// Put stores an outcome for req with the configured TTL.
func (c *Cache) Put(ctx context.Context, req pipeline.Request, outcome *pipeline.Outcome) {
	data, err := json.Marshal(outcome)
	if err != nil {
		slog.Debug("Outcome cache encode failed", "error", err)
		return
	}
	if err := c.rdb.Set(ctx, Key(req), data, c.ttl).Err(); err != nil {
		slog.Debug("Outcome cache write failed", "error", err)
	}
}

// Close releases the Redis connection.
func (c *Cache) Close() error { return c.rdb.Close() }
