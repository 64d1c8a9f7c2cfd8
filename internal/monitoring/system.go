package monitoring

import (
	"context"
	"os"
	"runtime"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/process"
)

// PoolState é o que o monitoramento precisa enxergar do pool de workers.
type PoolState interface {
	Size() int
	Idle() int
	QueueDepth() int
}

type ProcessStats struct {
	RSSBytes   uint64    `json:"rss_bytes"`
	CPUPercent float64   `json:"cpu_percent"`
	Goroutines int       `json:"goroutines"`
	SampledAt  time.Time `json:"sampled_at"`
}

// Sampler lê RSS/CPU do próprio processo e guarda a última amostra.
type Sampler struct {
	proc    *process.Process
	metrics *Metrics
	pool    PoolState
	logger  zerolog.Logger

	mu   sync.RWMutex
	last ProcessStats
}

// NewSampler aceita metrics e pool nil.
func NewSampler(metrics *Metrics, pool PoolState, logger zerolog.Logger) (*Sampler, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return nil, err
	}
	return &Sampler{proc: proc, metrics: metrics, pool: pool, logger: logger}, nil
}

// Sample coleta uma amostra. Erros do gopsutil deixam o campo zerado.
func (s *Sampler) Sample(ctx context.Context) ProcessStats {
	st := ProcessStats{
		Goroutines: runtime.NumGoroutine(),
		SampledAt:  time.Now(),
	}
	if mem, err := s.proc.MemoryInfoWithContext(ctx); err == nil {
		st.RSSBytes = mem.RSS
	} else {
		s.logger.Debug().Err(err).Msg("Failed to read process memory")
	}
	if cpu, err := s.proc.PercentWithContext(ctx, 0); err == nil {
		st.CPUPercent = cpu
	} else {
		s.logger.Debug().Err(err).Msg("Failed to read process cpu")
	}

	s.mu.Lock()
	s.last = st
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.observeProcess(st)
		s.metrics.ObservePool(s.pool)
	}
	return st
}

func (s *Sampler) Last() ProcessStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Run amostra a cada interval até ctx acabar.
func (s *Sampler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	s.Sample(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sample(ctx)
		}
	}
}
