package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"triage/internal/modkit"
	perr "triage/internal/platform/errors"
	"triage/internal/services/sessions/domain"
)

func newTestService(cfg Config) *Service {
	s := New(modkit.Deps{}, cfg)
	n := 0
	s.newID = func() string { n++; return fmt.Sprintf("sess-%d", n) }
	return s
}

func TestAdmit_CapacityCeiling(t *testing.T) {
	s := newTestService(Config{MaxSessions: 2})

	for i := 0; i < 2; i++ {
		if _, _, err := s.Admit(context.Background()); err != nil {
			t.Fatalf("admit %d: %v", i, err)
		}
	}
	_, _, err := s.Admit(context.Background())
	if !perr.IsCode(err, perr.ErrorCodeCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
}

func TestDeliver_RoundTrip(t *testing.T) {
	s := newTestService(Config{})
	id, events, err := s.Admit(context.Background())
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	want := domain.AnalysisResult{BatchID: "b1", DocumentIndex: 3, Label: "productive"}
	if err := s.Deliver(context.Background(), id, want); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	select {
	case got := <-events:
		res, ok := got.(domain.AnalysisResult)
		if !ok || res.DocumentIndex != 3 {
			t.Fatalf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatalf("no event delivered")
	}
}

func TestDeliver_UnknownSession(t *testing.T) {
	s := newTestService(Config{})
	err := s.Deliver(context.Background(), "nope", domain.Ping{})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeliver_DropsOldestWhenFull(t *testing.T) {
	s := newTestService(Config{Buffer: 2})
	id, events, err := s.Admit(context.Background())
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	for i := 0; i < 5; i++ {
		ev := domain.AnalysisResult{DocumentIndex: i}
		if err := s.Deliver(context.Background(), id, ev); err != nil {
			t.Fatalf("deliver %d: %v", i, err)
		}
	}
	if got := s.Drops(id); got != 3 {
		t.Fatalf("want 3 drops, got %d", got)
	}

	// the newest two must survive
	first := (<-events).(domain.AnalysisResult)
	second := (<-events).(domain.AnalysisResult)
	if first.DocumentIndex != 3 || second.DocumentIndex != 4 {
		t.Fatalf("kept %d and %d, want 3 and 4", first.DocumentIndex, second.DocumentIndex)
	}
}

func TestRemove_IdempotentAndClosesStream(t *testing.T) {
	s := newTestService(Config{})
	id, events, err := s.Admit(context.Background())
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	s.Remove(id)
	s.Remove(id) // second remove is a no-op

	if _, ok := <-events; ok {
		t.Fatalf("stream should be closed")
	}
	err = s.Deliver(context.Background(), id, domain.Ping{})
	if !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("deliver after remove: %v", err)
	}
}

func TestDeliver_RacingRemove(t *testing.T) {
	s := newTestService(Config{})
	id, _, err := s.Admit(context.Background())
	if err != nil {
		t.Fatalf("admit: %v", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			_ = s.Deliver(context.Background(), id, domain.Ping{})
		}
	}()
	s.Remove(id)
	<-done // must not panic on a closed channel
}

func TestSweep_EvictsIdleAndPingsLive(t *testing.T) {
	s := newTestService(Config{IdleTimeout: time.Minute})
	base := time.Now()
	s.now = func() time.Time { return base }

	idleID, _, _ := s.Admit(context.Background())
	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	liveID, liveEvents, _ := s.Admit(context.Background())

	s.sweep(context.Background())

	if s.Count() != 1 {
		t.Fatalf("want 1 session after sweep, got %d", s.Count())
	}
	if err := s.Heartbeat(idleID); !perr.IsCode(err, perr.ErrorCodeNotFound) {
		t.Fatalf("idle session should be gone, got %v", err)
	}
	_ = liveID
	select {
	case ev := <-liveEvents:
		if ev.Type() != domain.EventPing {
			t.Fatalf("want ping, got %v", ev.Type())
		}
	case <-time.After(time.Second):
		t.Fatalf("live session got no ping")
	}
}

func TestHeartbeat_DefersEviction(t *testing.T) {
	s := newTestService(Config{IdleTimeout: time.Minute})
	base := time.Now()
	s.now = func() time.Time { return base }

	id, _, _ := s.Admit(context.Background())

	s.now = func() time.Time { return base.Add(50 * time.Second) }
	if err := s.Heartbeat(id); err != nil {
		t.Fatalf("heartbeat: %v", err)
	}

	s.now = func() time.Time { return base.Add(100 * time.Second) }
	s.sweep(context.Background())

	if s.Count() != 1 {
		t.Fatalf("heartbeated session must survive the sweep")
	}
}
