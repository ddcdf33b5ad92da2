// Package rd wraps go-redis with the small surface the platform store exposes
package rd

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config configures the redis client
type Config struct {
	Addr     string
	Password string
	DB       int
}

// Client owns the underlying go-redis client
type Client struct {
	R *redis.Client
}

// Open dials redis. Connectivity is verified by the caller via Ping
func Open(_ context.Context, cfg Config) (*Client, error) {
	c := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Client{R: c}, nil
}

// IncrWindow bumps key by n and stamps ttl on first write, returning the new total.
// INCR and EXPIRE NX are pipelined so the counter and its expiry land together
func (c *Client) IncrWindow(ctx context.Context, key string, n int64, ttl time.Duration) (int64, error) {
	pipe := c.R.Pipeline()
	incr := pipe.IncrBy(ctx, key, n)
	pipe.ExpireNX(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// Ping reports connectivity
func (c *Client) Ping(ctx context.Context) error {
	return c.R.Ping(ctx).Err()
}

// Close releases the client
func (c *Client) Close() error {
	return c.R.Close()
}
