// Package repo implements the shared rate limit counter on redis
package repo

import (
	"context"
	"fmt"
	"time"

	"triage/internal/platform/store"
)

// Counter keeps fixed window counts in redis. Keys expire at twice the
// window so a stale bucket never lingers
type Counter struct {
	rd     store.Redis
	window time.Duration
}

// NewCounter builds a Counter over the platform redis seam
func NewCounter(rd store.Redis, window time.Duration) *Counter {
	return &Counter{rd: rd, window: window}
}

// Increment implements domain.CounterStore
func (c *Counter) Increment(ctx context.Context, clientKey string, windowStart int64, n int64) (int64, error) {
	key := fmt.Sprintf("ratelimit:%s:%d", clientKey, windowStart)
	return c.rd.IncrWindow(ctx, key, n, 2*c.window)
}

// Reachable implements domain.CounterStore
func (c *Counter) Reachable(ctx context.Context) bool {
	return c.rd.Ping(ctx) == nil
}
