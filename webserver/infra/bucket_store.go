package infra

import (
	"context"
	"sync"
	"time"

	"device-webserver/webserver/domain"

	"golang.org/x/time/rate"
)

// RouteLimit é a taxa sustentada e a rajada de uma rota.
type RouteLimit struct {
	RPS   float64
	Burst int
}

// BucketStore guarda um token bucket (x/time/rate) por rota e cliente.
// Rotas sem limite próprio usam o limite padrão.
type BucketStore struct {
	mu      sync.Mutex
	buckets map[domain.ThrottleKey]*bucket

	fallback RouteLimit
	routes   map[string]RouteLimit

	idleTTL      time.Duration
	cleanupEvery time.Duration
}

type BucketOption func(*BucketStore)

func WithIdleTTL(d time.Duration) BucketOption {
	return func(s *BucketStore) { s.idleTTL = d }
}

func WithCleanupEvery(d time.Duration) BucketOption {
	return func(s *BucketStore) { s.cleanupEvery = d }
}

// WithRouteLimit sobrescreve o limite padrão para uma rota.
func WithRouteLimit(route string, rps float64, burst int) BucketOption {
	return func(s *BucketStore) { s.routes[route] = RouteLimit{RPS: rps, Burst: burst} }
}

func NewBucketStore(rps float64, burst int, opts ...BucketOption) *BucketStore {
	s := &BucketStore{
		buckets:      make(map[domain.ThrottleKey]*bucket),
		fallback:     RouteLimit{RPS: rps, Burst: burst},
		routes:       make(map[string]RouteLimit),
		idleTTL:      15 * time.Minute,
		cleanupEvery: 2 * time.Minute,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RouteRate devolve o limite efetivo da rota (usado nos headers de resposta).
func (s *BucketStore) RouteRate(route string) (float64, int) {
	l := s.limitFor(route)
	return l.RPS, l.Burst
}

func (s *BucketStore) limitFor(route string) RouteLimit {
	if l, ok := s.routes[route]; ok {
		return l
	}
	return s.fallback
}

// Get implementa domain.LimiterStore.
func (s *BucketStore) Get(key domain.ThrottleKey) domain.Limiter {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[key]; ok {
		b.lastSeen = now
		return b
	}

	l := s.limitFor(key.Route)
	b := &bucket{lim: rate.NewLimiter(rate.Limit(l.RPS), l.Burst), lastSeen: now}
	s.buckets[key] = b
	return b
}

func (s *BucketStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

func (s *BucketStore) Cleanup() {
	cutoff := time.Now().Add(-s.idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	for k, b := range s.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(s.buckets, k)
		}
	}
}

// StartJanitor remove buckets ociosos periodicamente até o ctx encerrar.
func (s *BucketStore) StartJanitor(ctx context.Context) {
	if s.cleanupEvery <= 0 {
		return
	}

	t := time.NewTicker(s.cleanupEvery)
	go func() {
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				s.Cleanup()
			}
		}
	}()
}

// bucket: lastSeen é protegido pelo mu do store; lim é thread-safe.
type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Take reserva um token. Se a reserva exigiria espera ela é cancelada,
// para que a request recusada não consuma o token da próxima.
func (b *bucket) Take(now time.Time) (bool, time.Duration) {
	r := b.lim.ReserveN(now, 1)
	if !r.OK() {
		return false, 0
	}
	wait := r.DelayFrom(now)
	if wait <= 0 {
		return true, 0
	}
	r.CancelAt(now)
	return false, wait
}
