package repo

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"triage/internal/platform/store/rd"
)

func newCounter(t *testing.T) (*Counter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := rd.Open(context.Background(), rd.Config{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("rd.Open: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return NewCounter(c, time.Minute), mr
}

func TestIncrement_CountsPerWindow(t *testing.T) {
	c, _ := newCounter(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := c.Increment(ctx, "1.2.3.4", 1700000000, 1)
		if err != nil {
			t.Fatalf("increment: %v", err)
		}
		if got != want {
			t.Fatalf("count = %d, want %d", got, want)
		}
	}

	// a different window starts from scratch
	got, err := c.Increment(ctx, "1.2.3.4", 1700000060, 1)
	if err != nil || got != 1 {
		t.Fatalf("new window count = %d, %v", got, err)
	}
}

func TestIncrement_BulkFlush(t *testing.T) {
	c, _ := newCounter(t)
	ctx := context.Background()

	if _, err := c.Increment(ctx, "c", 1700000000, 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	got, err := c.Increment(ctx, "c", 1700000000, 4)
	if err != nil || got != 5 {
		t.Fatalf("bulk increment = %d, %v", got, err)
	}
}

func TestIncrement_KeyExpires(t *testing.T) {
	c, mr := newCounter(t)
	ctx := context.Background()

	if _, err := c.Increment(ctx, "c", 1700000000, 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	key := "ratelimit:c:1700000000"
	if ttl := mr.TTL(key); ttl != 2*time.Minute {
		t.Fatalf("ttl = %v, want 2m", ttl)
	}

	// a later increment must not reset the clock
	mr.FastForward(time.Minute)
	if _, err := c.Increment(ctx, "c", 1700000000, 1); err != nil {
		t.Fatalf("increment: %v", err)
	}
	if ttl := mr.TTL(key); ttl != time.Minute {
		t.Fatalf("ttl = %v, want 1m after fast forward", ttl)
	}
}

func TestReachable(t *testing.T) {
	c, mr := newCounter(t)
	if !c.Reachable(context.Background()) {
		t.Fatalf("live server should be reachable")
	}
	mr.Close()
	if c.Reachable(context.Background()) {
		t.Fatalf("closed server should be unreachable")
	}
}
