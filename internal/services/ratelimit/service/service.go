// Package service implements a fixed window rate limiter with a local
// in-memory fallback for when the shared counter store is unreachable
package service

import (
	"context"
	"sync"
	"time"

	"triage/internal/modkit"
	"triage/internal/platform/logger"
	ptime "triage/internal/platform/time"
	"triage/internal/services/ratelimit/domain"
)

// Config tunes the limiter
type Config struct {
	Limit        int64         // requests per window
	Window       time.Duration // fixed window length
	StoreTimeout time.Duration // budget for one store round trip
}

// Service is the limiter. With no store it runs purely on the local map
type Service struct {
	log   logger.Logger
	cfg   Config
	store domain.CounterStore // nil when redis is disabled

	mu       sync.Mutex
	local    map[string]map[int64]int64 // counts taken while degraded
	pending  map[string]map[int64]int64 // unflushed outage counts per window
	degraded bool

	now func() time.Time // seam for tests
}

// New constructs the limiter. store may be nil
func New(deps modkit.Deps, cfg Config, store domain.CounterStore) *Service {
	if cfg.Limit <= 0 {
		cfg.Limit = 10
	}
	if cfg.Window <= 0 {
		cfg.Window = time.Minute
	}
	if cfg.StoreTimeout <= 0 {
		cfg.StoreTimeout = 250 * time.Millisecond
	}
	return &Service{
		log:     *logger.Named("ratelimit"),
		cfg:     cfg,
		store:   store,
		local:   make(map[string]map[int64]int64),
		pending: make(map[string]map[int64]int64),
		now:     time.Now,
	}
}

// Allow implements domain.LimiterPort. The store is tried first under a
// short timeout; any failure degrades to the local counter for this and
// subsequent requests until a store round trip succeeds again. Counts taken
// locally during an outage are flushed into the store on recovery so the
// window totals stay honest
func (s *Service) Allow(ctx context.Context, clientKey string) (domain.Decision, error) {
	now := s.now()
	ws := ptime.Bucket(now, s.cfg.Window)

	if s.store != nil {
		// claim the pending outage count for this window under the lock so
		// exactly one in-flight request owns the flush
		n := int64(1)
		s.mu.Lock()
		claimed := s.pending[clientKey][ws]
		if claimed > 0 {
			delete(s.pending[clientKey], ws)
			if len(s.pending[clientKey]) == 0 {
				delete(s.pending, clientKey)
			}
			n += claimed
		}
		s.mu.Unlock()

		sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
		count, err := s.store.Increment(sctx, clientKey, ws, n)
		cancel()

		if err == nil {
			s.mu.Lock()
			if s.degraded {
				s.degraded = false
				s.log.Info().Msg("counter store recovered, outage counts flushed")
			}
			delete(s.local, clientKey)
			s.mu.Unlock()
			return s.decide(count, now, ws), nil
		}

		s.mu.Lock()
		if claimed > 0 {
			if s.pending[clientKey] == nil {
				s.pending[clientKey] = make(map[int64]int64)
			}
			s.pending[clientKey][ws] += claimed
		}
		if !s.degraded {
			s.degraded = true
			s.log.Warn().Err(err).Msg("counter store unreachable, using local fallback")
		}
		s.mu.Unlock()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.gcLocked(ws)

	if s.local[clientKey] == nil {
		s.local[clientKey] = make(map[int64]int64)
	}
	s.local[clientKey][ws]++
	count := s.local[clientKey][ws]

	if s.store != nil {
		if s.pending[clientKey] == nil {
			s.pending[clientKey] = make(map[int64]int64)
		}
		s.pending[clientKey][ws]++
	}
	return s.decide(count, now, ws), nil
}

// Degraded reports whether the limiter is running on the local fallback
func (s *Service) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Reachable implements domain.HealthPort by pinging the counter store under
// the same budget as an Allow round trip. With no store the limiter is
// always locally serviceable
func (s *Service) Reachable(ctx context.Context) bool {
	if s.store == nil {
		return true
	}
	sctx, cancel := context.WithTimeout(ctx, s.cfg.StoreTimeout)
	defer cancel()
	return s.store.Reachable(sctx)
}

func (s *Service) decide(count int64, now time.Time, ws int64) domain.Decision {
	d := domain.Decision{Allowed: count <= s.cfg.Limit}
	if rem := s.cfg.Limit - count; rem > 0 {
		d.Remaining = rem
	}
	if !d.Allowed {
		end := time.Unix(ws, 0).Add(s.cfg.Window)
		d.RetryAfter = end.Sub(now)
	}
	return d
}

// gcLocked drops buckets older than the current window
func (s *Service) gcLocked(ws int64) {
	for _, m := range []map[string]map[int64]int64{s.local, s.pending} {
		for client, buckets := range m {
			for b := range buckets {
				if b < ws {
					delete(buckets, b)
				}
			}
			if len(buckets) == 0 {
				delete(m, client)
			}
		}
	}
}
