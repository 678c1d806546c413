package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client wraps Redis operations for the dispatch coordination layer.
type Client struct {
	rdb *redis.Client
}

// Config holds Redis connection configuration.
type Config struct {
	URL      string `yaml:"url"`
	Password string `yaml:"password"`
}

// NewClient creates a new Redis client.
func NewClient(cfg Config) (*Client, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	if cfg.Password != "" {
		opts.Password = cfg.Password
	}

	rdb := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Client{rdb: rdb}, nil
}

// Close closes the Redis connection.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Key helpers
func batchLockKey(batchID string) string {
	return fmt.Sprintf("dispatch_lock:%s", batchID)
}

// AcquireBatchLock claims a batch so two concurrent dispatcher
// instances never issue it twice. The holding run's id is stored as
// the lock value for traceability.
func (c *Client) AcquireBatchLock(ctx context.Context, runID, batchID string, ttl time.Duration) (bool, error) {
	ok, err := c.rdb.SetNX(ctx, batchLockKey(batchID), runID, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("setnx failed: %w", err)
	}
	return ok, nil
}

// ReleaseBatchLock releases a batch lock.
func (c *Client) ReleaseBatchLock(ctx context.Context, runID, batchID string) error {
	return c.rdb.Del(ctx, batchLockKey(batchID)).Err()
}

// RefreshBatchLock extends the TTL of a batch lock.
func (c *Client) RefreshBatchLock(ctx context.Context, runID, batchID string, ttl time.Duration) error {
	return c.rdb.Expire(ctx, batchLockKey(batchID), ttl).Err()
}

// Health checks the Redis connection.
func (c *Client) Health(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
