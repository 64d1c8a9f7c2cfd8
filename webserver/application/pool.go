package application

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"device-webserver/webserver/domain"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

var errPoolStarted = errors.New("worker pool already started")

// JobObserver recebe eventos do ciclo de vida dos jobs (métricas).
type JobObserver interface {
	JobStarted(route string, waited time.Duration)
	JobFinished(route string, took time.Duration, err error)
	CompletionFailed(route string)
	WorkerIdle(idle int)
}

type nopObserver struct{}

func (nopObserver) JobStarted(string, time.Duration)         {}
func (nopObserver) JobFinished(string, time.Duration, error) {}
func (nopObserver) CompletionFailed(string)                  {}
func (nopObserver) WorkerIdle(int)                           {}

type PoolOptions struct {
	Size     int
	Gate     domain.AdmissionGate
	Queue    domain.HandoffQueue
	Logger   zerolog.Logger
	Observer JobObserver
}

// WorkerPool mantém N workers de vida longa.
//
// Estados de cada worker: anunciando (Release no gate) -> esperando (Pop) ->
// executando (handler + Complete) -> anunciando.
//
// A tabela de identidades é montada no construtor, antes de qualquer worker
// existir, e só é lida depois disso.
type WorkerPool struct {
	gate   domain.AdmissionGate
	queue  domain.HandoffQueue
	logger zerolog.Logger
	obs    JobObserver

	ids   []domain.WorkerID
	known map[domain.WorkerID]struct{}

	// mu protege closed/started e garante que inflight.Add nunca corre
	// em paralelo com o Wait do Close.
	mu       sync.RWMutex
	closed   bool
	started  bool
	inflight sync.WaitGroup

	cancel context.CancelFunc
	done   chan struct{}
}

func NewWorkerPool(opts PoolOptions) (*WorkerPool, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("worker pool size must be > 0, got %d", opts.Size)
	}
	if opts.Gate == nil || opts.Queue == nil {
		return nil, errors.New("worker pool requires a gate and a queue")
	}
	if opts.Gate.Capacity() != opts.Size {
		return nil, fmt.Errorf("gate capacity %d does not match pool size %d", opts.Gate.Capacity(), opts.Size)
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}

	p := &WorkerPool{
		gate:   opts.Gate,
		queue:  opts.Queue,
		logger: opts.Logger.With().Str("component", "worker_pool").Logger(),
		obs:    opts.Observer,
		ids:    make([]domain.WorkerID, opts.Size),
		known:  make(map[domain.WorkerID]struct{}, opts.Size),
		done:   make(chan struct{}),
	}
	for i := range p.ids {
		id := domain.NewWorkerID()
		p.ids[i] = id
		p.known[id] = struct{}{}
	}
	return p, nil
}

// Start sobe todos os workers ou nenhum.
//
// O primeiro anúncio de cada worker funciona como handshake: se algum falhar,
// os demais são encerrados, as permissões já liberadas são recolhidas e Start
// devolve o erro. O ctx define o tempo de vida dos workers.
func (p *WorkerPool) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		return domain.ErrPoolUnavailable
	}
	if p.started {
		p.mu.Unlock()
		cancel()
		return errPoolStarted
	}
	p.started = true
	p.cancel = cancel
	p.mu.Unlock()

	g, gctx := errgroup.WithContext(runCtx)
	ready := make(chan error, len(p.ids))
	for _, id := range p.ids {
		g.Go(func() error { return p.run(gctx, id, ready) })
	}

	for range p.ids {
		if err := <-ready; err != nil {
			cancel()
			_ = g.Wait()
			for p.gate.TryAcquire() {
			}
			p.mu.Lock()
			p.closed = true
			p.mu.Unlock()
			close(p.done)
			return fmt.Errorf("start worker pool: %w", err)
		}
	}

	go func() {
		_ = g.Wait()
		close(p.done)
	}()

	p.logger.Info().Int("workers", len(p.ids)).Msg("Worker pool started")
	return nil
}

// Close para de admitir, espera os despachos em andamento, encerra os
// workers e executa um job que tenha ficado no slot.
func (p *WorkerPool) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	p.mu.Unlock()

	p.inflight.Wait()
	if !started {
		return nil
	}
	p.cancel()

	select {
	case <-p.done:
		p.logger.Info().Msg("Worker pool stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IsWorker informa se ctx está executando num worker deste pool.
func (p *WorkerPool) IsWorker(ctx context.Context) bool {
	if p == nil {
		return false
	}
	id, ok := domain.WorkerFrom(ctx)
	if !ok {
		return false
	}
	_, ok = p.known[id]
	return ok
}

func (p *WorkerPool) Size() int       { return len(p.ids) }
func (p *WorkerPool) Idle() int       { return p.gate.Available() }
func (p *WorkerPool) QueueDepth() int { return p.queue.Len() }

// admit registra um despacho em andamento. Falha com o pool fechado ou não iniciado.
func (p *WorkerPool) admit() (func(), bool) {
	if p == nil {
		return nil, false
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed || !p.started {
		return nil, false
	}
	p.inflight.Add(1)
	return p.inflight.Done, true
}

func (p *WorkerPool) announce() error {
	if err := p.gate.Release(); err != nil {
		return err
	}
	p.obs.WorkerIdle(p.gate.Available())
	return nil
}

func (p *WorkerPool) run(ctx context.Context, id domain.WorkerID, ready chan<- error) error {
	log := p.logger.With().Str("worker_id", id.String()).Logger()

	if err := p.announce(); err != nil {
		ready <- err
		return err
	}
	ready <- nil
	log.Debug().Msg("Starting async request worker")

	for {
		job, ok := p.queue.Pop(ctx)
		if !ok {
			for {
				job, ok := p.queue.TryPop()
				if !ok {
					break
				}
				p.execute(id, job, log)
			}
			log.Debug().Msg("Worker shutting down")
			return nil
		}

		p.execute(id, job, log)

		if err := p.announce(); err != nil {
			log.Error().Err(err).Msg("Failed to announce worker ready")
		}
	}
}

func (p *WorkerPool) execute(id domain.WorkerID, job domain.Job, log zerolog.Logger) {
	jl := log.With().
		Str("request_id", job.Request.ID()).
		Str("route", job.Route).
		Logger()
	ctx := jl.WithContext(domain.WithWorker(context.Background(), id))

	start := time.Now()
	p.obs.JobStarted(job.Route, start.Sub(job.EnqueuedAt))
	jl.Info().Str("path", job.Request.Path()).Msg("Invoking async handler")

	err := invoke(ctx, job)
	p.obs.JobFinished(job.Route, time.Since(start), err)
	if err != nil {
		jl.Warn().Err(err).Msg("Async handler returned error")
	}

	if err := job.Request.Complete(); err != nil {
		jl.Error().Err(err).Msg("Failed to complete async request")
		p.obs.CompletionFailed(job.Route)
	}
}

func invoke(ctx context.Context, job domain.Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			zerolog.Ctx(ctx).Error().
				Interface("panic_value", r).
				Str("stack_trace", string(debug.Stack())).
				Msg("Worker panic recovered - request completed, worker continues")
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return job.Handler(ctx, job.Request)
}
