package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"triage/internal/modkit"
	"triage/internal/services/ratelimit/domain"
)

// fakeStore is an in-memory CounterStore that can be switched offline
type fakeStore struct {
	mu      sync.Mutex
	counts  map[string]int64
	offline bool
	incrs   int
	ns      []int64

	// when set, Increment signals entered and blocks until proceed closes
	entered chan struct{}
	proceed chan struct{}
}

func newFakeStore() *fakeStore { return &fakeStore{counts: make(map[string]int64)} }

func (f *fakeStore) Increment(_ context.Context, clientKey string, windowStart int64, n int64) (int64, error) {
	f.mu.Lock()
	entered, proceed := f.entered, f.proceed
	f.mu.Unlock()
	if entered != nil {
		entered <- struct{}{}
		<-proceed
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.offline {
		return 0, fmt.Errorf("connection refused")
	}
	f.incrs++
	f.ns = append(f.ns, n)
	key := fmt.Sprintf("%s:%d", clientKey, windowStart)
	f.counts[key] += n
	return f.counts[key], nil
}

func (f *fakeStore) Reachable(_ context.Context) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.offline
}

func (f *fakeStore) setOffline(v bool) {
	f.mu.Lock()
	f.offline = v
	f.mu.Unlock()
}

func newLimiter(store *fakeStore, limit int64) *Service {
	var cs domain.CounterStore
	if store != nil {
		cs = store
	}
	s := New(modkit.Deps{}, Config{Limit: limit, Window: time.Minute}, cs)
	base := time.Unix(1700000000, 0)
	s.now = func() time.Time { return base }
	return s
}

func TestAllow_DeniesPastLimit(t *testing.T) {
	s := newLimiter(newFakeStore(), 3)

	for i := 0; i < 3; i++ {
		d, err := s.Allow(context.Background(), "1.2.3.4")
		if err != nil || !d.Allowed {
			t.Fatalf("request %d: %+v, %v", i, d, err)
		}
	}
	d, err := s.Allow(context.Background(), "1.2.3.4")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if d.Allowed {
		t.Fatalf("request past the limit must be denied")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Minute {
		t.Fatalf("retry after out of range: %v", d.RetryAfter)
	}
}

func TestAllow_WindowReset(t *testing.T) {
	s := newLimiter(newFakeStore(), 1)
	base := time.Unix(1700000000, 0)
	s.now = func() time.Time { return base }

	if d, _ := s.Allow(context.Background(), "c"); !d.Allowed {
		t.Fatalf("first request denied")
	}
	if d, _ := s.Allow(context.Background(), "c"); d.Allowed {
		t.Fatalf("second request allowed")
	}

	s.now = func() time.Time { return base.Add(time.Minute) }
	if d, _ := s.Allow(context.Background(), "c"); !d.Allowed {
		t.Fatalf("fresh window must admit again")
	}
}

func TestAllow_ClientsAreIndependent(t *testing.T) {
	s := newLimiter(newFakeStore(), 1)

	if d, _ := s.Allow(context.Background(), "a"); !d.Allowed {
		t.Fatalf("client a denied")
	}
	if d, _ := s.Allow(context.Background(), "b"); !d.Allowed {
		t.Fatalf("client b must not share a's bucket")
	}
}

func TestAllow_FallbackEnforcesLimit(t *testing.T) {
	store := newFakeStore()
	store.setOffline(true)
	s := newLimiter(store, 2)

	for i := 0; i < 2; i++ {
		if d, _ := s.Allow(context.Background(), "c"); !d.Allowed {
			t.Fatalf("fallback request %d denied", i)
		}
	}
	if d, _ := s.Allow(context.Background(), "c"); d.Allowed {
		t.Fatalf("fallback must still enforce the limit")
	}
	if !s.Degraded() {
		t.Fatalf("limiter should report degraded")
	}
}

func TestAllow_RecoveryFlushesOutageCounts(t *testing.T) {
	store := newFakeStore()
	s := newLimiter(store, 10)

	// two requests land in the store
	for i := 0; i < 2; i++ {
		if _, err := s.Allow(context.Background(), "c"); err != nil {
			t.Fatalf("warmup: %v", err)
		}
	}

	// outage: three requests counted locally
	store.setOffline(true)
	for i := 0; i < 3; i++ {
		if d, _ := s.Allow(context.Background(), "c"); !d.Allowed {
			t.Fatalf("outage request %d denied", i)
		}
	}

	// recovery: the next request carries the outage counts with it
	store.setOffline(false)
	d, err := s.Allow(context.Background(), "c")
	if err != nil || !d.Allowed {
		t.Fatalf("recovery request: %+v, %v", d, err)
	}
	if s.Degraded() {
		t.Fatalf("limiter should have recovered")
	}

	// store total = 2 before + 3 outage + 1 recovery = 6, so remaining = 4
	if d.Remaining != 4 {
		t.Fatalf("outage counts not flushed, remaining = %d", d.Remaining)
	}
}

func TestAllow_ConcurrentRecoveryFlushesOnce(t *testing.T) {
	store := newFakeStore()
	s := newLimiter(store, 10)

	// outage: three requests counted locally
	store.setOffline(true)
	for i := 0; i < 3; i++ {
		if d, _ := s.Allow(context.Background(), "c"); !d.Allowed {
			t.Fatalf("outage request %d denied", i)
		}
	}

	// hold two recovery requests inside the store round trip at once,
	// exactly one of them may carry the outage counts
	store.setOffline(false)
	store.mu.Lock()
	store.entered = make(chan struct{})
	store.proceed = make(chan struct{})
	store.mu.Unlock()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Allow(context.Background(), "c"); err != nil {
				t.Errorf("recovery Allow: %v", err)
			}
		}()
	}
	<-store.entered
	<-store.entered
	close(store.proceed)
	wg.Wait()

	store.mu.Lock()
	total := int64(0)
	for _, c := range store.counts {
		total += c
	}
	ns := store.ns
	store.mu.Unlock()

	// 3 outage + 2 recovery = 5, a double flush would land 8
	if total != 5 {
		t.Fatalf("store window count = %d (increments %v), want 5", total, ns)
	}
}

func TestAllow_FailedFlushKeepsOutageCounts(t *testing.T) {
	store := newFakeStore()
	store.setOffline(true)
	s := newLimiter(store, 10)

	// three outage requests, each claims the prior pending counts, fails
	// the round trip, and must hand them back
	for i := 0; i < 3; i++ {
		if d, _ := s.Allow(context.Background(), "c"); !d.Allowed {
			t.Fatalf("outage request %d denied", i)
		}
	}

	// the claimed counts must have been restored, so the first successful
	// round trip still carries all three
	store.setOffline(false)
	d, err := s.Allow(context.Background(), "c")
	if err != nil || !d.Allowed {
		t.Fatalf("recovery request: %+v, %v", d, err)
	}
	if d.Remaining != 6 {
		t.Fatalf("outage counts lost on failed flush, remaining = %d", d.Remaining)
	}
}

func TestReachable_TracksStoreHealth(t *testing.T) {
	store := newFakeStore()
	s := newLimiter(store, 1)

	if !s.Reachable(context.Background()) {
		t.Fatalf("healthy store reported unreachable")
	}
	store.setOffline(true)
	if s.Reachable(context.Background()) {
		t.Fatalf("offline store reported reachable")
	}

	// no store means the limiter is always locally serviceable
	if s := newLimiter(nil, 1); !s.Reachable(context.Background()) {
		t.Fatalf("storeless limiter must report reachable")
	}
}

func TestAllow_NoStoreRunsLocally(t *testing.T) {
	s := New(modkit.Deps{}, Config{Limit: 1, Window: time.Minute}, nil)
	base := time.Unix(1700000000, 0)
	s.now = func() time.Time { return base }

	if d, _ := s.Allow(context.Background(), "c"); !d.Allowed {
		t.Fatalf("first local request denied")
	}
	if d, _ := s.Allow(context.Background(), "c"); d.Allowed {
		t.Fatalf("second local request allowed")
	}
}
