package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"device-webserver/webserver/domain"
	"device-webserver/webserver/infra"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWorkerPool_Validates(t *testing.T) {
	gate, _ := infra.NewChanGate(2)

	_, err := NewWorkerPool(PoolOptions{Size: 0, Gate: gate, Queue: infra.NewSlotQueue()})
	assert.Error(t, err)

	_, err = NewWorkerPool(PoolOptions{Size: 2, Queue: infra.NewSlotQueue()})
	assert.Error(t, err)

	_, err = NewWorkerPool(PoolOptions{Size: 3, Gate: gate, Queue: infra.NewSlotQueue()})
	assert.Error(t, err, "gate capacity must match pool size")
}

func TestWorkerPool_IdentityTableBuiltBeforeStart(t *testing.T) {
	p := newTestPool(t, 3)
	require.Len(t, p.known, 3)

	for _, id := range p.ids {
		assert.True(t, p.IsWorker(domain.WithWorker(context.Background(), id)))
	}
	assert.False(t, p.IsWorker(context.Background()))
	assert.False(t, p.IsWorker(domain.WithWorker(context.Background(), domain.NewWorkerID())))

	var nilPool *WorkerPool
	assert.False(t, nilPool.IsWorker(context.Background()))
}

func TestWorkerPool_StartAnnouncesEveryWorker(t *testing.T) {
	p := newTestPool(t, 4)
	assert.Equal(t, 0, p.Idle())

	startPool(t, p)
	assert.Equal(t, 4, p.Idle())
	assert.ErrorIs(t, p.Start(context.Background()), errPoolStarted)
}

func TestWorkerPool_StartIsAllOrNothing(t *testing.T) {
	inner, _ := infra.NewChanGate(3)
	gate := &failingGate{AdmissionGate: inner, okReleases: 2}
	p := newTestPoolWith(t, 3, gate, infra.NewSlotQueue())

	err := p.Start(context.Background())
	require.Error(t, err)

	select {
	case <-p.done:
	case <-time.After(time.Second):
		t.Fatal("workers still running after failed start")
	}
	assert.Equal(t, 0, p.Idle(), "permits from started workers must be reclaimed")

	out, err := Dispatcher{Pool: p}.Dispatch(context.Background(), "long", newFakeRequest("x"), nil)
	assert.Equal(t, domain.OutcomeBusy, out)
	assert.ErrorIs(t, err, domain.ErrPoolUnavailable)
}

func TestWorkerPool_RecoversPanicAndCompletes(t *testing.T) {
	p := newTestPool(t, 1)
	startPool(t, p)

	req := newFakeRequest("panic")
	out, err := Dispatcher{Pool: p}.Dispatch(context.Background(), "long", req,
		func(context.Context, domain.Request) error { panic("boom") })
	require.NoError(t, err)
	require.Equal(t, domain.OutcomeAccepted, out)

	req.waitDone(t)
	assert.EqualValues(t, 1, req.completes.Load())
	waitIdle(t, p, 1)
}

func TestWorkerPool_CompletionFailureIsNotFatal(t *testing.T) {
	p := newTestPool(t, 1)
	startPool(t, p)
	d := Dispatcher{Pool: p}
	noop := func(context.Context, domain.Request) error { return nil }

	bad := newFakeRequest("bad")
	bad.completeErr = domain.ErrAlreadyCompleted
	_, err := d.Dispatch(context.Background(), "long", bad, noop)
	require.NoError(t, err)
	bad.waitDone(t)
	waitIdle(t, p, 1)

	good := newFakeRequest("good")
	out, err := d.Dispatch(context.Background(), "long", good, noop)
	require.NoError(t, err)
	assert.Equal(t, domain.OutcomeAccepted, out)
	good.waitDone(t)
}

func TestWorkerPool_HandlerRunsWithWorkerContext(t *testing.T) {
	p := newTestPool(t, 1)
	startPool(t, p)

	seen := make(chan bool, 1)
	req := newFakeRequest("ctx")
	_, err := Dispatcher{Pool: p}.Dispatch(context.Background(), "long", req,
		func(ctx context.Context, _ domain.Request) error {
			seen <- p.IsWorker(ctx)
			return nil
		})
	require.NoError(t, err)
	req.waitDone(t)
	assert.True(t, <-seen)
}

func TestWorkerPool_CloseDrainsJobLeftInSlot(t *testing.T) {
	p := newTestPool(t, 1)
	require.NoError(t, p.Start(context.Background()))
	waitIdle(t, p, 1)

	started := make(chan string, 1)
	release := make(chan struct{})
	first := newFakeRequest("first")
	_, err := Dispatcher{Pool: p}.Dispatch(context.Background(), "long", first, blockingHandler(started, release))
	require.NoError(t, err)
	<-started

	// job deixado no slot enquanto o único worker está ocupado
	leftover := newFakeRequest("leftover")
	ran := make(chan struct{})
	require.True(t, p.queue.Push(domain.Job{
		Request: leftover,
		Route:   "long",
		Handler: func(context.Context, domain.Request) error { close(ran); return nil },
	}, 0))

	closed := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		closed <- p.Close(ctx)
	}()

	close(release)
	require.NoError(t, <-closed)

	first.waitDone(t)
	leftover.waitDone(t)
	select {
	case <-ran:
	default:
		t.Fatal("leftover job completed without running")
	}

	out, err := Dispatcher{Pool: p}.Dispatch(context.Background(), "long", newFakeRequest("late"), nil)
	assert.Equal(t, domain.OutcomeBusy, out)
	assert.True(t, errors.Is(err, domain.ErrPoolUnavailable))
}

func TestWorkerPool_CloseBeforeStart(t *testing.T) {
	p := newTestPool(t, 1)
	require.NoError(t, p.Close(context.Background()))
	assert.ErrorIs(t, p.Start(context.Background()), domain.ErrPoolUnavailable)
}

func TestWorkerPool_ObserverSeesLifecycle(t *testing.T) {
	gate, _ := infra.NewChanGate(1)
	obs := &recordingObserver{}
	p, err := NewWorkerPool(PoolOptions{Size: 1, Gate: gate, Queue: infra.NewSlotQueue(), Logger: zerolog.Nop(), Observer: obs})
	require.NoError(t, err)
	startPool(t, p)

	req := newFakeRequest("obs")
	_, err = Dispatcher{Pool: p}.Dispatch(context.Background(), "long", req,
		func(context.Context, domain.Request) error { return errors.New("handler failed") })
	require.NoError(t, err)
	req.waitDone(t)

	require.Eventually(t, func() bool { return obs.finished.Load() == 1 }, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, obs.started.Load())
	assert.EqualValues(t, 1, obs.failed.Load())
}
