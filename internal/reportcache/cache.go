// Package reportcache keeps the latest scan report per client in Redis so the
// presentation layer can read it without recomputing.
package reportcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const keyPrefix = "report:"

// Key returns the cache key for a client's report.
func Key(clientID string) string {
	return keyPrefix + clientID
}

// Cache publishes and reads reports as JSON blobs with a TTL.
type Cache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// Dial parses redisURL, applies password when set, and pings the server.
func Dial(ctx context.Context, redisURL, password string, ttl time.Duration, logger zerolog.Logger) (*Cache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	if password != "" {
		opt.Password = password
	}

	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return New(client, ttl, logger), nil
}

// New wraps an existing client.
func New(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *Cache {
	return &Cache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "report_cache").Logger(),
	}
}

// Publish stores report under the client's key.
func (c *Cache) Publish(ctx context.Context, clientID string, report any) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	key := Key(clientID)
	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis SET %s: %w", key, err)
	}

	c.logger.Debug().
		Str("client_id", clientID).
		Str("cache_key", key).
		Int("size_bytes", len(payload)).
		Dur("ttl", c.ttl).
		Msg("report cached")
	return nil
}

// Get returns the raw cached report, or nil when none is stored.
func (c *Cache) Get(ctx context.Context, clientID string) (json.RawMessage, error) {
	payload, err := c.client.Get(ctx, Key(clientID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("redis GET %s: %w", Key(clientID), err)
	}
	return json.RawMessage(payload), nil
}

// Close closes the Redis connection.
func (c *Cache) Close() error {
	return c.client.Close()
}
