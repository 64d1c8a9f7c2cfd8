package application

import (
	"context"
	"sync/atomic"
	"time"

	"device-webserver/webserver/domain"

	"github.com/rs/zerolog"
)

const (
	DefaultStatsQueueSize    = 1024
	DefaultStatsWriteTimeout = 500 * time.Millisecond
)

type StatsQueueOptions struct {
	// Size é quantos eventos podem esperar pelo store. Cheio, o evento é descartado.
	Size int
	// WriteTimeout limita cada Record no store.
	WriteTimeout time.Duration
	Logger       zerolog.Logger
}

// StatsQueue tira a gravação de estatísticas do caminho da request: o
// dispatcher só enfileira sem bloquear, e uma goroutine grava no store.
type StatsQueue struct {
	store   domain.StatsStore
	events  chan domain.StatsEvent
	timeout time.Duration
	logger  zerolog.Logger

	dropped atomic.Int64
	started atomic.Bool
	done    chan struct{}
}

func NewStatsQueue(store domain.StatsStore, opts StatsQueueOptions) *StatsQueue {
	if opts.Size <= 0 {
		opts.Size = DefaultStatsQueueSize
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = DefaultStatsWriteTimeout
	}
	return &StatsQueue{
		store:   store,
		events:  make(chan domain.StatsEvent, opts.Size),
		timeout: opts.WriteTimeout,
		logger:  opts.Logger.With().Str("component", "stats_queue").Logger(),
		done:    make(chan struct{}),
	}
}

// Enqueue nunca bloqueia. Devolve false quando o evento foi descartado.
func (q *StatsQueue) Enqueue(ev domain.StatsEvent) bool {
	if q == nil {
		return false
	}
	select {
	case q.events <- ev:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

func (q *StatsQueue) Dropped() int64 {
	if q == nil {
		return 0
	}
	return q.dropped.Load()
}

// Start grava os eventos em background até ctx acabar. Chamadas extras são ignoradas.
func (q *StatsQueue) Start(ctx context.Context) {
	if q == nil || !q.started.CompareAndSwap(false, true) {
		return
	}
	go q.run(ctx)
}

// Done fecha depois que a goroutine de gravação terminou de esvaziar a fila.
func (q *StatsQueue) Done() <-chan struct{} { return q.done }

func (q *StatsQueue) run(ctx context.Context) {
	defer close(q.done)
	for {
		select {
		case ev := <-q.events:
			q.write(ev)
		case <-ctx.Done():
			// o que já estava na fila ainda é gravado
			for {
				select {
				case ev := <-q.events:
					q.write(ev)
				default:
					if n := q.dropped.Load(); n > 0 {
						q.logger.Warn().Int64("dropped", n).Msg("Stats events dropped")
					}
					return
				}
			}
		}
	}
}

func (q *StatsQueue) write(ev domain.StatsEvent) {
	if q.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), q.timeout)
	defer cancel()
	if err := q.store.Record(ctx, ev); err != nil {
		q.logger.Debug().Err(err).Str("route", ev.Route).Msg("Failed to record dispatch stats")
	}
}
