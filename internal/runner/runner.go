package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Config holds configuration for the Runner
type Config struct {
	// WorkerCount determines how many concurrent workers perform jobs
	WorkerCount int

	// QueueSize determines the buffer size of the job queue
	QueueSize int
}

// DefaultConfig returns a Config with reasonable defaults
func DefaultConfig() Config {
	return Config{
		WorkerCount: 2,
		QueueSize:   100,
	}
}

// ErrNotRunning is returned when jobs are submitted before Start or after Stop.
var ErrNotRunning = errors.New("runner is not running")

// Runner owns a job queue and the worker pool draining it.
type Runner struct {
	queue *Queue
	pool  *WorkerPool

	mu      sync.Mutex
	started bool
	stopped bool

	now    func() time.Time
	logger *slog.Logger
}

// NewRunner creates a Runner whose workers call performer.
func NewRunner(performer Performer, config Config, logger *slog.Logger) (*Runner, error) {
	if performer == nil {
		return nil, fmt.Errorf("performer cannot be nil")
	}
	if config.QueueSize <= 0 {
		return nil, fmt.Errorf("queue size must be positive, got %d", config.QueueSize)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "perform_runner")

	queue := NewQueue(config.QueueSize, logger)
	return &Runner{
		queue:  queue,
		pool:   NewWorkerPool(queue.Jobs(), performer, config.WorkerCount, logger),
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}, nil
}

// SetErrorHandler sets a handler for jobs that could not be performed.
func (r *Runner) SetErrorHandler(handler func(job Job, err error)) {
	r.pool.SetErrorHandler(handler)
}

// Start begins processing jobs.
func (r *Runner) Start() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return fmt.Errorf("runner already started")
	}
	r.started = true
	r.pool.Start()
	return nil
}

// Submit queues one perform attempt for the task.
// Returns ErrQueueFull when the buffer is at capacity.
func (r *Runner) Submit(ctx context.Context, taskID uuid.UUID) error {
	r.mu.Lock()
	running := r.started && !r.stopped
	r.mu.Unlock()
	if !running {
		return ErrNotRunning
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := r.queue.Enqueue(Job{TaskID: taskID, EnqueuedAt: r.now()}); err != nil {
		if errors.Is(err, ErrQueueClosed) {
			return ErrNotRunning
		}
		r.logger.Warn("rejecting perform job", "task_id", taskID, "error", err)
		return err
	}
	return nil
}

// Stop closes the queue and waits for workers to drain it. If ctx ends
// first, in-flight jobs are cancelled and Stop returns ctx's error once
// every worker has exited.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if r.stopped || !r.started {
		r.stopped = true
		r.mu.Unlock()
		return nil
	}
	r.stopped = true
	r.mu.Unlock()

	r.queue.Close()

	drained := make(chan struct{})
	go func() {
		r.pool.Wait()
		close(drained)
	}()

	select {
	case <-drained:
		r.logger.Info("runner stopped", "remaining_jobs", r.queue.Len())
		return nil
	case <-ctx.Done():
		r.logger.Warn("runner stop deadline reached, cancelling in-flight jobs",
			"remaining_jobs", r.queue.Len())
		r.pool.Cancel()
		<-drained
		return ctx.Err()
	}
}
