package runner

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/platform/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRunner(t *testing.T, performer Performer, config Config) *Runner {
	t.Helper()
	log, _ := logger.GetTestLogger(t)
	r, err := NewRunner(performer, config, log)
	require.NoError(t, err)
	return r
}

func TestNewRunner_Validation(t *testing.T) {
	_, err := NewRunner(nil, DefaultConfig(), nil)
	assert.Error(t, err)

	noop := PerformerFunc(func(ctx context.Context, id uuid.UUID) (*domain.Task, error) { return nil, nil })
	_, err = NewRunner(noop, Config{WorkerCount: 1, QueueSize: 0}, nil)
	assert.Error(t, err)
}

func TestRunner_PerformsSubmittedJobs(t *testing.T) {
	var mu sync.Mutex
	seen := map[uuid.UUID]int{}
	var wg sync.WaitGroup

	performer := PerformerFunc(func(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
		defer wg.Done()
		mu.Lock()
		seen[id]++
		mu.Unlock()
		return &domain.Task{ID: id}, nil
	})
	r := newTestRunner(t, performer, Config{WorkerCount: 3, QueueSize: 10})
	require.NoError(t, r.Start())

	ids := []uuid.UUID{uuid.New(), uuid.New(), uuid.New(), uuid.New()}
	wg.Add(len(ids))
	for _, id := range ids {
		require.NoError(t, r.Submit(context.Background(), id))
	}
	wg.Wait()

	require.NoError(t, r.Stop(context.Background()))
	for _, id := range ids {
		assert.Equal(t, 1, seen[id])
	}
}

func TestRunner_QueueFull(t *testing.T) {
	block := make(chan struct{})
	started := make(chan struct{}, 1)
	performer := PerformerFunc(func(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
		started <- struct{}{}
		<-block
		return nil, nil
	})
	r := newTestRunner(t, performer, Config{WorkerCount: 1, QueueSize: 1})
	require.NoError(t, r.Start())

	require.NoError(t, r.Submit(context.Background(), uuid.New()))
	<-started // worker holds the first job; queue is empty again

	require.NoError(t, r.Submit(context.Background(), uuid.New()))
	err := r.Submit(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrQueueFull)

	close(block)
	require.NoError(t, r.Stop(context.Background()))
}

func TestRunner_SubmitWhenNotRunning(t *testing.T) {
	noop := PerformerFunc(func(ctx context.Context, id uuid.UUID) (*domain.Task, error) { return nil, nil })
	r := newTestRunner(t, noop, DefaultConfig())

	assert.ErrorIs(t, r.Submit(context.Background(), uuid.New()), ErrNotRunning)

	require.NoError(t, r.Start())
	assert.Error(t, r.Start(), "second start is rejected")
	require.NoError(t, r.Stop(context.Background()))

	assert.ErrorIs(t, r.Submit(context.Background(), uuid.New()), ErrNotRunning)
}

func TestRunner_StopDrainsQueue(t *testing.T) {
	var performed atomic.Int32
	performer := PerformerFunc(func(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
		time.Sleep(5 * time.Millisecond)
		performed.Add(1)
		return nil, nil
	})
	r := newTestRunner(t, performer, Config{WorkerCount: 1, QueueSize: 5})
	require.NoError(t, r.Start())

	for range 5 {
		require.NoError(t, r.Submit(context.Background(), uuid.New()))
	}

	require.NoError(t, r.Stop(context.Background()))
	assert.Equal(t, int32(5), performed.Load())
}

func TestRunner_StopDeadlineCancelsInFlight(t *testing.T) {
	started := make(chan struct{})
	performer := PerformerFunc(func(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	})
	r := newTestRunner(t, performer, Config{WorkerCount: 1, QueueSize: 1})
	require.NoError(t, r.Start())
	require.NoError(t, r.Submit(context.Background(), uuid.New()))
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, r.Stop(ctx), context.DeadlineExceeded)
}

func TestRunner_ErrorHandlerAndPanicRecovery(t *testing.T) {
	failure := errors.New("store unavailable")
	var calls atomic.Int32
	performer := PerformerFunc(func(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
		if calls.Add(1) == 1 {
			return nil, failure
		}
		panic("executor exploded")
	})

	handled := make(chan error, 2)
	r := newTestRunner(t, performer, Config{WorkerCount: 1, QueueSize: 2})
	r.SetErrorHandler(func(job Job, err error) {
		handled <- err
	})
	require.NoError(t, r.Start())

	require.NoError(t, r.Submit(context.Background(), uuid.New()))
	require.NoError(t, r.Submit(context.Background(), uuid.New()))

	for i := 0; i < 2; i++ {
		select {
		case err := <-handled:
			if i == 0 {
				assert.ErrorIs(t, err, failure)
			} else {
				assert.Contains(t, err.Error(), "executor exploded")
			}
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for error handler")
		}
	}

	require.NoError(t, r.Stop(context.Background()))
}
