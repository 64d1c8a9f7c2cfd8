package infra

import (
	"fmt"

	"device-webserver/webserver/domain"
)

type chanGate struct {
	permits chan struct{}
}

// NewChanGate cria um gate com capacidade `n` e nenhuma permissão disponível.
// Cada worker libera uma permissão ao ficar ocioso.
func NewChanGate(n int) (domain.AdmissionGate, error) {
	if n <= 0 {
		return nil, fmt.Errorf("admission gate capacity must be > 0, got %d", n)
	}
	return &chanGate{permits: make(chan struct{}, n)}, nil
}

func (g *chanGate) TryAcquire() bool {
	select {
	case <-g.permits:
		return true
	default:
		return false
	}
}

func (g *chanGate) Release() error {
	select {
	case g.permits <- struct{}{}:
		return nil
	default:
		return domain.ErrGateOverflow
	}
}

func (g *chanGate) Available() int { return len(g.permits) }
func (g *chanGate) Capacity() int  { return cap(g.permits) }
