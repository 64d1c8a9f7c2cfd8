package infra

import (
	"context"
	"time"

	"device-webserver/webserver/domain"
)

// slotQueue é só um mecanismo de handoff: no máximo um job em trânsito.
// Quem limita a concorrência total é o gate, não a profundidade da fila.
type slotQueue struct {
	slot chan domain.Job
}

func NewSlotQueue() domain.HandoffQueue {
	return &slotQueue{slot: make(chan domain.Job, 1)}
}

// Push espera até `timeout` pelo slot. timeout <= 0 não espera.
func (q *slotQueue) Push(job domain.Job, timeout time.Duration) bool {
	select {
	case q.slot <- job:
		return true
	default:
	}
	if timeout <= 0 {
		return false
	}

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case q.slot <- job:
		return true
	case <-t.C:
		return false
	}
}

// Pop bloqueia sem polling até chegar um job ou o ctx encerrar.
func (q *slotQueue) Pop(ctx context.Context) (domain.Job, bool) {
	select {
	case job := <-q.slot:
		return job, true
	case <-ctx.Done():
		return domain.Job{}, false
	}
}

func (q *slotQueue) TryPop() (domain.Job, bool) {
	select {
	case job := <-q.slot:
		return job, true
	default:
		return domain.Job{}, false
	}
}

func (q *slotQueue) Len() int { return len(q.slot) }
