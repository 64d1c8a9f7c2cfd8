package application

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"device-webserver/webserver/domain"
	"device-webserver/webserver/infra"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type fakeRequest struct {
	id        string
	detachErr error

	mu       sync.Mutex
	chunks   []string
	ended    bool
	detached bool

	completeErr error
	completes   atomic.Int32
	done        chan struct{}
	once        sync.Once
}

func newFakeRequest(id string) *fakeRequest {
	return &fakeRequest{id: id, done: make(chan struct{})}
}

func (r *fakeRequest) ID() string     { return r.id }
func (r *fakeRequest) Method() string { return "GET" }
func (r *fakeRequest) Path() string   { return "/" + r.id }

func (r *fakeRequest) SendChunk(chunk string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.chunks = append(r.chunks, chunk)
	return nil
}

func (r *fakeRequest) EndStream() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = true
	return nil
}

func (r *fakeRequest) Detach() (domain.Request, error) {
	if r.detachErr != nil {
		return nil, r.detachErr
	}
	r.mu.Lock()
	r.detached = true
	r.mu.Unlock()
	return r, nil
}

func (r *fakeRequest) Complete() error {
	r.completes.Add(1)
	r.once.Do(func() { close(r.done) })
	return r.completeErr
}

func (r *fakeRequest) isDetached() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.detached
}

func (r *fakeRequest) waitDone(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("request %s never completed", r.id)
	}
}

// failingGate passa a recusar Release depois de `okReleases` chamadas.
type failingGate struct {
	domain.AdmissionGate
	okReleases int32
	calls      atomic.Int32
}

func (g *failingGate) Release() error {
	if g.calls.Add(1) > g.okReleases {
		return errors.New("release refused")
	}
	return g.AdmissionGate.Release()
}

// countingQueue conta Push; refuse força timeout.
type countingQueue struct {
	domain.HandoffQueue
	pushes atomic.Int32
	refuse bool
}

func (q *countingQueue) Push(job domain.Job, timeout time.Duration) bool {
	q.pushes.Add(1)
	if q.refuse {
		return false
	}
	return q.HandoffQueue.Push(job, timeout)
}

func newTestPool(t *testing.T, size int) *WorkerPool {
	t.Helper()
	gate, err := infra.NewChanGate(size)
	require.NoError(t, err)
	return newTestPoolWith(t, size, gate, infra.NewSlotQueue())
}

func newTestPoolWith(t *testing.T, size int, gate domain.AdmissionGate, queue domain.HandoffQueue) *WorkerPool {
	t.Helper()
	p, err := NewWorkerPool(PoolOptions{Size: size, Gate: gate, Queue: queue, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return p
}

func startPool(t *testing.T, p *WorkerPool) {
	t.Helper()
	require.NoError(t, p.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = p.Close(ctx)
	})
	waitIdle(t, p, p.Size())
}

func waitIdle(t *testing.T, p *WorkerPool, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return p.Idle() == n }, 2*time.Second, time.Millisecond,
		"expected %d idle workers", n)
}

// blockingHandler segura o worker até release ser fechado.
func blockingHandler(started chan<- string, release <-chan struct{}) domain.Handler {
	return func(ctx context.Context, req domain.Request) error {
		started <- req.ID()
		<-release
		return req.EndStream()
	}
}

type recordingObserver struct {
	started          atomic.Int32
	finished         atomic.Int32
	failed           atomic.Int32
	completionFailed atomic.Int32
	lastIdle         atomic.Int32

	mu       sync.Mutex
	outcomes map[domain.Outcome]int
}

func (o *recordingObserver) JobStarted(string, time.Duration) { o.started.Add(1) }

func (o *recordingObserver) JobFinished(_ string, _ time.Duration, err error) {
	if err != nil {
		o.failed.Add(1)
	}
	o.finished.Add(1)
}

func (o *recordingObserver) CompletionFailed(string) { o.completionFailed.Add(1) }
func (o *recordingObserver) WorkerIdle(idle int)      { o.lastIdle.Store(int32(idle)) }

func (o *recordingObserver) Dispatched(_ string, outcome domain.Outcome) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.outcomes == nil {
		o.outcomes = make(map[domain.Outcome]int)
	}
	o.outcomes[outcome]++
}

func (o *recordingObserver) count(outcome domain.Outcome) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.outcomes[outcome]
}
