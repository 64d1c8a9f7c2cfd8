package domain

import (
	"context"
	"time"
)

// StatsEvent representa o resultado de um despacho.
//
// Route é o nome lógico da rota ("long"), não o path bruto, para manter a
// cardinalidade baixa em Redis/Prometheus.
type StatsEvent struct {
	RequestID string
	Route     string
	Outcome   Outcome

	At time.Time
}

// StatsStore é a estratégia de persistência das estatísticas de despacho.
//
// O dispatcher trata erro como best-effort (não derruba a request).
type StatsStore interface {
	Record(ctx context.Context, ev StatsEvent) error
}
