package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/executor"
	"github.com/phrazzld/taskdeck-api/internal/platform/logger"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

// ErrTaskBusy is returned in reject mode when another attempt on the same
// task is already in flight.
var ErrTaskBusy = errors.New("task is already being performed")

// LockMode decides what happens to a second concurrent attempt on a task.
type LockMode string

// Lock modes
const (
	// LockModeWait queues the caller behind the attempt in flight.
	LockModeWait LockMode = "wait"

	// LockModeReject fails the caller with ErrTaskBusy.
	LockModeReject LockMode = "reject"
)

// DefaultExecutorTimeout bounds a single executor call.
const DefaultExecutorTimeout = 30 * time.Second

// Engine performs tasks. It is safe for concurrent use.
type Engine struct {
	store    store.TaskStore
	executor executor.Executor
	locks    *KeyedLock
	timeout  time.Duration
	mode     LockMode
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithExecutorTimeout sets the deadline given to each executor call.
func WithExecutorTimeout(d time.Duration) Option {
	return func(e *Engine) {
		e.timeout = d
	}
}

// WithLockMode sets how concurrent attempts on one task are handled.
func WithLockMode(mode LockMode) Option {
	return func(e *Engine) {
		e.mode = mode
	}
}

// WithClock replaces the time source used for lastTriedAt and doneAt.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// NewEngine creates an Engine with the given dependencies.
func NewEngine(
	taskStore store.TaskStore,
	exec executor.Executor,
	logger *slog.Logger,
	opts ...Option,
) (*Engine, error) {
	if taskStore == nil {
		return nil, fmt.Errorf("taskStore cannot be nil")
	}
	if exec == nil {
		return nil, fmt.Errorf("executor cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	e := &Engine{
		store:    taskStore,
		executor: exec,
		locks:    NewKeyedLock(),
		timeout:  DefaultExecutorTimeout,
		mode:     LockModeWait,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   logger.With(slog.String("component", "lifecycle_engine")),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.timeout <= 0 {
		return nil, fmt.Errorf("executor timeout must be positive, got %s", e.timeout)
	}
	if e.mode != LockModeWait && e.mode != LockModeReject {
		return nil, fmt.Errorf("unknown lock mode %q", e.mode)
	}

	return e, nil
}

type outcome struct {
	result float64
	err    error
}

// execute bounds the executor call by the engine timeout even when the
// executor ignores its context. An abandoned call keeps running in the
// background and its outcome is dropped.
func (e *Engine) execute(ctx context.Context, task domain.Task) (float64, error) {
	execCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan outcome, 1)
	go func() {
		result, err := e.executor.Execute(execCtx, task)
		done <- outcome{result: result, err: err}
	}()

	select {
	case out := <-done:
		return out.result, out.err
	case <-execCtx.Done():
		return 0, execCtx.Err()
	}
}

func (e *Engine) acquire(ctx context.Context, id uuid.UUID) (func(), error) {
	if e.mode == LockModeReject {
		release, ok := e.locks.TryAcquire(id)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrTaskBusy, id)
		}
		return release, nil
	}

	release, err := e.locks.Acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("waiting for task %s: %w", id, err)
	}
	return release, nil
}

// Perform runs one execution attempt of the task with the given ID and
// returns the task as persisted afterwards.
//
// Executor failures are recorded on the task and are not returned as errors.
// Store failures, a missing task and (in reject mode) ErrTaskBusy are.
func (e *Engine) Perform(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, e.logger).With(slog.String("task_id", id.String()))

	release, err := e.acquire(ctx, id)
	if err != nil {
		log.Debug("task attempt not started", slog.String("error", err.Error()))
		return nil, err
	}
	defer release()

	current, err := e.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load task: %w", err)
	}

	attempt := current.Clone()
	attempt.Status = domain.StatusRunning

	log.Info("performing task", slog.Int("tries_count", attempt.TriesCount))

	result, execErr := e.execute(ctx, *attempt.Clone())

	now := e.now()
	if execErr == nil {
		attempt.Status = domain.StatusDone
		attempt.DoneAt = &now
		log.Info("task attempt succeeded", slog.Float64("result", result))
	} else {
		value := executor.ErrorValue(execErr)
		attempt.Status = domain.StatusFailed
		attempt.Errors = append(attempt.Errors, value)
		log.Warn("task attempt failed", slog.String("error_value", value))
	}
	attempt.LastTriedAt = &now
	attempt.TriesCount++

	// The attempt happened even if the caller went away; record it.
	writeCtx := context.WithoutCancel(ctx)
	if err := e.store.UpdateFields(writeCtx, id, store.FieldsOf(attempt)); err != nil {
		log.Error("failed to persist task attempt", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to persist task attempt: %w", err)
	}

	return attempt, nil
}
