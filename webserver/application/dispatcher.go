package application

import (
	"context"
	"fmt"
	"time"

	"device-webserver/webserver/domain"

	"github.com/rs/zerolog"
)

const DefaultEnqueueTimeout = 100 * time.Millisecond

// DispatchObserver recebe o resultado de cada despacho (métricas).
type DispatchObserver interface {
	Dispatched(route string, outcome domain.Outcome)
}

// Dispatcher concentra a regra de admissão e handoff, sem saber nada sobre HTTP.
//
// Pool nil equivale a um pool que não subiu: rotas assíncronas ficam sempre busy.
type Dispatcher struct {
	Pool           *WorkerPool
	EnqueueTimeout time.Duration
	// Stats recebe os eventos sem bloquear; nil desliga as estatísticas.
	Stats    *StatsQueue
	Observer DispatchObserver
}

// Dispatch executa h para req.
//   - Já num worker: chama h direto (nunca reenfileira a si mesmo).
//   - Fora de um worker: destaca a request, tenta admissão sem bloquear e
//     entrega o job com espera limitada. Em Accepted quem faz o Complete é o worker.
//
// Qualquer rejeição depois do Detach já completou a request destacada.
func (d Dispatcher) Dispatch(ctx context.Context, route string, req domain.Request, h domain.Handler) (domain.Outcome, error) {
	if d.Pool.IsWorker(ctx) {
		d.record(ctx, route, req, domain.OutcomeInline)
		return domain.OutcomeInline, h(ctx, req)
	}

	outcome, err := d.submit(ctx, route, req, h)
	d.record(ctx, route, req, outcome)
	return outcome, err
}

func (d Dispatcher) submit(ctx context.Context, route string, req domain.Request, h domain.Handler) (domain.Outcome, error) {
	log := zerolog.Ctx(ctx)

	leave, ok := d.Pool.admit()
	if !ok {
		log.Warn().Str("route", route).Msg("Worker pool unavailable")
		return domain.OutcomeBusy, domain.ErrPoolUnavailable
	}
	defer leave()

	detached, err := req.Detach()
	if err != nil {
		log.Error().Err(err).Str("route", route).Msg("Failed to detach request")
		return domain.OutcomeFailed, fmt.Errorf("%w: %w", domain.ErrDetachFailed, err)
	}

	if !d.Pool.gate.TryAcquire() {
		log.Warn().Str("route", route).Msg("No workers are available")
		d.complete(ctx, detached)
		return domain.OutcomeBusy, domain.ErrAdmissionDenied
	}
	d.Pool.obs.WorkerIdle(d.Pool.gate.Available())

	job := domain.Job{
		Request:    detached,
		Handler:    h,
		Route:      route,
		EnqueuedAt: time.Now(),
	}
	if !d.Pool.queue.Push(job, d.enqueueTimeout()) {
		// a permissão adquirida volta para o gate; nenhum worker vai devolvê-la.
		if err := d.Pool.announce(); err != nil {
			log.Error().Err(err).Msg("Failed to return permit after enqueue timeout")
		}
		log.Warn().Str("route", route).Msg("Worker queue is full")
		d.complete(ctx, detached)
		return domain.OutcomeBusy, domain.ErrEnqueueTimeout
	}

	return domain.OutcomeAccepted, nil
}

func (d Dispatcher) enqueueTimeout() time.Duration {
	if d.EnqueueTimeout <= 0 {
		return DefaultEnqueueTimeout
	}
	return d.EnqueueTimeout
}

func (d Dispatcher) complete(ctx context.Context, req domain.Request) {
	if err := req.Complete(); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("Failed to complete rejected request")
	}
}

func (d Dispatcher) record(ctx context.Context, route string, req domain.Request, outcome domain.Outcome) {
	if d.Observer != nil {
		d.Observer.Dispatched(route, outcome)
	}
	if d.Stats == nil {
		return
	}
	ok := d.Stats.Enqueue(domain.StatsEvent{
		RequestID: req.ID(),
		Route:     route,
		Outcome:   outcome,
		At:        time.Now(),
	})
	if !ok {
		zerolog.Ctx(ctx).Debug().Str("route", route).Msg("Stats queue full, event dropped")
	}
}
