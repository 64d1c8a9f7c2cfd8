package domain

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrAdmissionDenied: nenhum worker ocioso no momento do despacho.
	ErrAdmissionDenied = errors.New("no idle worker")
	// ErrEnqueueTimeout: admissão aceita, mas o slot de handoff não liberou a tempo.
	ErrEnqueueTimeout = errors.New("handoff slot busy")
	// ErrDetachFailed: o runtime HTTP não conseguiu destacar o ciclo de vida da request.
	ErrDetachFailed = errors.New("request detach failed")
	// ErrPoolUnavailable: pool não iniciado ou já fechado.
	ErrPoolUnavailable = errors.New("worker pool unavailable")
	// ErrAlreadyCompleted: Complete chamado mais de uma vez.
	ErrAlreadyCompleted = errors.New("request already completed")
)

// Request é o handle de uma request que pode sobreviver ao contexto que a recebeu.
//
// Detach separa o ciclo de vida da conexão original e devolve o handle destacado.
// Complete devolve o handle ao runtime e deve ser chamado exatamente uma vez
// depois de um Detach bem sucedido.
type Request interface {
	ID() string
	Method() string
	Path() string

	SendChunk(chunk string) error
	EndStream() error

	Detach() (Request, error)
	Complete() error
}

// Handler executa uma request. Pode rodar inline ou num worker.
type Handler func(ctx context.Context, req Request) error

// Job é o descritor que atravessa a fila de handoff.
type Job struct {
	Request    Request
	Handler    Handler
	Route      string
	EnqueuedAt time.Time
}

// Outcome é o resultado de um despacho.
type Outcome int

const (
	// OutcomeInline: já estava num worker, handler executado diretamente.
	OutcomeInline Outcome = iota
	// OutcomeAccepted: job entregue a um worker, que fará o Complete.
	OutcomeAccepted
	// OutcomeBusy: rejeitado (sem worker, slot ocupado ou pool indisponível).
	OutcomeBusy
	// OutcomeFailed: a request não pôde ser destacada; handler nunca executado.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeInline:
		return "inline"
	case OutcomeAccepted:
		return "accepted"
	case OutcomeBusy:
		return "busy"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}
