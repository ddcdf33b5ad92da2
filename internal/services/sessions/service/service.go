// Package service implements the in-process session registry
package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"triage/internal/modkit"
	perr "triage/internal/platform/errors"
	"triage/internal/platform/logger"
	"triage/internal/services/sessions/domain"
)

// Config tunes the registry
type Config struct {
	MaxSessions int           // admission ceiling
	Buffer      int           // per-session event buffer
	IdleTimeout time.Duration // evict sessions silent for this long
	PingEvery   time.Duration // heartbeat event cadence
}

// Service is the session registry. Sessions are owned here exclusively;
// everyone else holds ids
type Service struct {
	log logger.Logger
	cfg Config

	mu       sync.RWMutex
	sessions map[string]*session

	// seams for tests
	newID func() string
	now   func() time.Time
}

type session struct {
	id        string
	mu        sync.Mutex
	ch        chan domain.Event
	closed    bool
	createdAt time.Time
	lastSeen  time.Time
	drops     int64
}

// New constructs the registry
func New(deps modkit.Deps, cfg Config) *Service {
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = 100
	}
	if cfg.Buffer <= 0 {
		cfg.Buffer = 256
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 90 * time.Second
	}
	if cfg.PingEvery <= 0 {
		cfg.PingEvery = 30 * time.Second
	}
	return &Service{
		log:      *logger.Named("sessions"),
		cfg:      cfg,
		sessions: make(map[string]*session),
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Admit implements domain.RegistryPort
func (s *Service) Admit(_ context.Context) (string, <-chan domain.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sessions) >= s.cfg.MaxSessions {
		return "", nil, perr.Capacityf("session limit reached (%d)", s.cfg.MaxSessions)
	}

	now := s.now()
	sess := &session{
		id:        s.newID(),
		ch:        make(chan domain.Event, s.cfg.Buffer),
		createdAt: now,
		lastSeen:  now,
	}
	s.sessions[sess.id] = sess

	s.log.Debug().Str("session_id", sess.id).Int("active", len(s.sessions)).Msg("session admitted")
	return sess.id, sess.ch, nil
}

// Deliver implements domain.RegistryPort. Never blocks: when the buffer is
// full the oldest queued event is dropped to make room, counted and logged
func (s *Service) Deliver(_ context.Context, id string, ev domain.Event) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return perr.NotFoundf("session %s not found", id)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.closed {
		return perr.NotFoundf("session %s closed", id)
	}

	for {
		select {
		case sess.ch <- ev:
			return nil
		default:
		}
		// buffer full, shed the oldest event
		select {
		case <-sess.ch:
			sess.drops++
			if sess.drops%32 == 1 {
				s.log.Warn().Str("session_id", id).Int64("drops", sess.drops).Msg("session buffer full, dropping oldest")
			}
		default:
		}
	}
}

// Heartbeat implements domain.RegistryPort
func (s *Service) Heartbeat(id string) error {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return perr.NotFoundf("session %s not found", id)
	}
	sess.mu.Lock()
	sess.lastSeen = s.now()
	sess.mu.Unlock()
	return nil
}

// Remove implements domain.RegistryPort
func (s *Service) Remove(id string) {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	active := len(s.sessions)
	s.mu.Unlock()
	if !ok {
		return
	}

	sess.mu.Lock()
	if !sess.closed {
		sess.closed = true
		close(sess.ch)
	}
	drops := sess.drops
	sess.mu.Unlock()

	s.log.Debug().Str("session_id", id).Int64("drops", drops).Int("active", active).Msg("session removed")
}

// Count returns the number of live sessions
func (s *Service) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Drops returns the shed event count for a session, 0 when unknown
func (s *Service) Drops(id string) int64 {
	s.mu.RLock()
	sess, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.drops
}

// Run implements domain.SweeperPort: pings live sessions and evicts the idle
func (s *Service) Run(ctx context.Context) error {
	ping := time.NewTicker(s.cfg.PingEvery)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ping.C:
			s.sweep(ctx)
		}
	}
}

func (s *Service) sweep(ctx context.Context) {
	now := s.now()

	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	var stale []string
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := now.Sub(sess.lastSeen)
		sess.mu.Unlock()
		if idle > s.cfg.IdleTimeout {
			stale = append(stale, id)
			continue
		}
		ids = append(ids, id)
	}
	s.mu.RUnlock()

	for _, id := range stale {
		s.log.Info().Str("session_id", id).Msg("evicting idle session")
		s.Remove(id)
	}
	for _, id := range ids {
		_ = s.Deliver(ctx, id, domain.Ping{})
	}
}
