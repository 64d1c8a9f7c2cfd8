package infra

import (
	"context"
	"sync"

	"device-webserver/webserver/domain"
)

// Counters agrupa os resultados de despacho.
type Counters struct {
	Inline   int64
	Accepted int64
	Busy     int64
	Failed   int64
}

func (c *Counters) add(o domain.Outcome) {
	switch o {
	case domain.OutcomeInline:
		c.Inline++
	case domain.OutcomeAccepted:
		c.Accepted++
	case domain.OutcomeBusy:
		c.Busy++
	case domain.OutcomeFailed:
		c.Failed++
	}
}

// MemoryStatsStore guarda contadores em memória, sem expiração.
// Útil para testes e para o resumo logado no shutdown.
type MemoryStatsStore struct {
	mu      sync.Mutex
	total   Counters
	byRoute map[string]Counters
}

func NewMemoryStatsStore() *MemoryStatsStore {
	return &MemoryStatsStore{byRoute: make(map[string]Counters)}
}

func (s *MemoryStatsStore) Record(_ context.Context, ev domain.StatsEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.total.add(ev.Outcome)
	c := s.byRoute[ev.Route]
	c.add(ev.Outcome)
	s.byRoute[ev.Route] = c
	return nil
}

func (s *MemoryStatsStore) Total() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.total
}

func (s *MemoryStatsStore) ByRoute() map[string]Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Counters, len(s.byRoute))
	for k, v := range s.byRoute {
		out[k] = v
	}
	return out
}
