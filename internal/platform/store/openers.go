package store

import (
	"context"
	"fmt"
	"time"

	"triage/internal/platform/store/rd"
)

// openRedis opens redis and verifies connectivity before publishing the seam
func openRedis(ctx context.Context, cfg Config, s *Store) (Redis, error) {
	c, err := rd.Open(ctx, rd.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		return nil, err
	}

	// Connection guardrails: ping with retry/backoff before handing out the client
	maxAttempts := cfg.Redis.ConnectRetries
	if maxAttempts <= 0 {
		maxAttempts = 20
	}
	pingTimeout := cfg.Redis.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}
	const (
		backoffStart   = 150 * time.Millisecond
		backoffCeiling = 2 * time.Second
	)

	var lastErr error
	backoff := backoffStart
	for i := 0; i < maxAttempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = c.Ping(toCtx)
		cancel()

		if lastErr == nil {
			s.Redis = c
			return c, nil
		}
		if ctx.Err() != nil {
			_ = c.Close()
			return nil, ctx.Err()
		}
		time.Sleep(backoff)
		if backoff < backoffCeiling {
			backoff *= 2
			if backoff > backoffCeiling {
				backoff = backoffCeiling
			}
		}
	}

	_ = c.Close()
	return nil, fmt.Errorf("redis ping failed after %d attempts: %w", maxAttempts, lastErr)
}
