package infra

import (
	"testing"
	"time"

	"device-webserver/webserver/domain"
)

func longKey(client string) domain.ThrottleKey {
	return domain.ThrottleKey{Route: "long", Client: client}
}

func TestBucketStore_SameKeyReturnsSameLimiter(t *testing.T) {
	s := NewBucketStore(10, 1)

	l1 := s.Get(longKey("10.0.0.1"))
	l2 := s.Get(longKey("10.0.0.1"))
	if l1 != l2 {
		t.Fatalf("expected same limiter for same key")
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 bucket, got %d", s.Len())
	}
}

func TestBucketStore_SameClientGetsOneBucketPerRoute(t *testing.T) {
	s := NewBucketStore(0.02, 1)

	if ok, _ := s.Get(longKey("c")).Take(time.Now()); !ok {
		t.Fatalf("expected first take on long to pass")
	}
	if ok, _ := s.Get(domain.ThrottleKey{Route: "report", Client: "c"}).Take(time.Now()); !ok {
		t.Fatalf("draining long must not affect another route")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 buckets, got %d", s.Len())
	}
}

func TestBucketStore_TakeReportsWaitAndKeepsToken(t *testing.T) {
	s := NewBucketStore(0.02, 1)
	lim := s.Get(longKey("c"))
	now := time.Now()

	if ok, _ := lim.Take(now); !ok {
		t.Fatalf("expected first take to pass")
	}
	ok, wait := lim.Take(now)
	if ok {
		t.Fatalf("expected second immediate take to fail (burst=1)")
	}
	if wait < 49*time.Second || wait > 50*time.Second {
		t.Fatalf("expected ~50s until next token at 0.02 rps, got %s", wait)
	}

	// a reserva recusada foi cancelada: o token volta no prazo original
	if ok, _ := lim.Take(now.Add(50 * time.Second)); !ok {
		t.Fatalf("expected token to be available after 50s")
	}
}

func TestBucketStore_RouteLimitOverridesDefault(t *testing.T) {
	s := NewBucketStore(100, 10, WithRouteLimit("long", 0.02, 1))

	if rps, burst := s.RouteRate("long"); rps != 0.02 || burst != 1 {
		t.Fatalf("unexpected long rate %v/%d", rps, burst)
	}
	if rps, burst := s.RouteRate("other"); rps != 100 || burst != 10 {
		t.Fatalf("unexpected default rate %v/%d", rps, burst)
	}

	now := time.Now()
	lim := s.Get(longKey("c"))
	lim.Take(now)
	if ok, _ := lim.Take(now); ok {
		t.Fatalf("expected long to use its own burst of 1")
	}

	other := s.Get(domain.ThrottleKey{Route: "other", Client: "c"})
	for i := 0; i < 10; i++ {
		if ok, _ := other.Take(now); !ok {
			t.Fatalf("expected default burst of 10, failed at %d", i)
		}
	}
}

func TestBucketStore_CleanupRemovesIdleBuckets(t *testing.T) {
	s := NewBucketStore(10, 1, WithIdleTTL(2*time.Millisecond), WithCleanupEvery(0))

	before := s.Get(longKey("c"))
	time.Sleep(4 * time.Millisecond)

	s.Cleanup()

	if s.Len() != 0 {
		t.Fatalf("expected idle bucket to be removed")
	}
	after := s.Get(longKey("c"))
	if before == after {
		t.Fatalf("expected limiter to be recreated after cleanup")
	}
}
