package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrGateOverflow indica um Release além da capacidade do gate.
var ErrGateOverflow = errors.New("admission gate overflow")

// AdmissionGate conta quantos workers estão ociosos.
//
// TryAcquire nunca bloqueia. Release é feito pelo worker que fica ocioso
// (e pelo dispatcher apenas quando desiste depois de ter adquirido).
type AdmissionGate interface {
	TryAcquire() bool
	Release() error
	Available() int
	Capacity() int
}

// HandoffQueue entrega um job por vez do dispatcher para um worker.
type HandoffQueue interface {
	Push(job Job, timeout time.Duration) bool
	Pop(ctx context.Context) (Job, bool)
	TryPop() (Job, bool)
	Len() int
}

// WorkerID identifica um worker do pool.
type WorkerID uuid.UUID

func NewWorkerID() WorkerID { return WorkerID(uuid.New()) }

func (id WorkerID) String() string { return uuid.UUID(id).String() }

type workerKey struct{}

// WithWorker marca o contexto como executando no worker id.
func WithWorker(ctx context.Context, id WorkerID) context.Context {
	return context.WithValue(ctx, workerKey{}, id)
}

// WorkerFrom devolve o worker que executa ctx, se houver.
func WorkerFrom(ctx context.Context) (WorkerID, bool) {
	if ctx == nil {
		return WorkerID{}, false
	}
	id, ok := ctx.Value(workerKey{}).(WorkerID)
	return id, ok
}
