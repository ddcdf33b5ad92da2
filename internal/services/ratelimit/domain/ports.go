// Package domain defines the rate limiter ports and types
package domain

import (
	"context"
	"time"
)

// Decision is the outcome of one admission check
type Decision struct {
	Allowed    bool
	Remaining  int64
	RetryAfter time.Duration // zero when allowed
}

// LimiterPort admits or denies one request for a client key
type LimiterPort interface {
	Allow(ctx context.Context, clientKey string) (Decision, error)
}

// HealthPort reports counter store health for readiness checks
type HealthPort interface {
	Reachable(ctx context.Context) bool
}

// CounterStore is the shared counter backend. windowStart is the unix second
// the fixed window opened at; n is the amount to add (recovery flushes bundle
// several observations into one increment)
type CounterStore interface {
	Increment(ctx context.Context, clientKey string, windowStart int64, n int64) (int64, error)
	Reachable(ctx context.Context) bool
}
