// Package simulator provides a stand-in executor that settles after a fixed
// delay, succeeding with a configurable probability. It is used for local
// development and demos when no remote worker is available.
package simulator

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/executor"
)

// Default settings for the simulated worker
const (
	DefaultDelay       = 5 * time.Second
	DefaultSuccessRate = 0.5
)

// Source yields uniformly distributed values in [0, 1).
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// lockedSource serializes access to a source that is not safe for
// concurrent use, such as *rand.Rand.
type lockedSource struct {
	mu  sync.Mutex
	src Source
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.src.Float64()
}

// Executor simulates a remote worker.
type Executor struct {
	delay       time.Duration
	successRate float64
	source      Source
	logger      *slog.Logger
}

var _ executor.Executor = (*Executor)(nil)

// Option configures an Executor.
type Option func(*Executor)

// WithDelay sets how long each attempt takes before settling.
func WithDelay(d time.Duration) Option {
	return func(e *Executor) { e.delay = d }
}

// WithSuccessRate sets the probability in [0, 1] that an attempt succeeds.
func WithSuccessRate(rate float64) Option {
	return func(e *Executor) { e.successRate = rate }
}

// WithSource replaces the random source. Sources that are not safe for
// concurrent use are wrapped in a mutex.
func WithSource(src Source) Option {
	return func(e *Executor) { e.source = &lockedSource{src: src} }
}

// NewExecutor creates a simulated executor. Without options it waits
// DefaultDelay and succeeds half of the time.
func NewExecutor(logger *slog.Logger, opts ...Option) (*Executor, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}

	e := &Executor{
		delay:       DefaultDelay,
		successRate: DefaultSuccessRate,
		source:      globalSource{},
		logger:      logger.With("component", "simulated_executor"),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.delay < 0 {
		return nil, errors.New("delay cannot be negative")
	}
	if e.successRate < 0 || e.successRate > 1 {
		return nil, errors.New("success rate must be between 0 and 1")
	}

	return e, nil
}

// Execute waits for the configured delay, then either returns a result in
// [0, 100) or fails with one of executor.FailureMessages. It returns the
// context error if ctx is done before the delay elapses.
func (e *Executor) Execute(ctx context.Context, task domain.Task) (float64, error) {
	timer := time.NewTimer(e.delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return 0, ctx.Err()
	case <-timer.C:
	}

	if e.source.Float64() < e.successRate {
		result := math.Floor(e.source.Float64() * 100)
		e.logger.DebugContext(ctx, "simulated attempt succeeded",
			slog.String("task_id", task.ID.String()),
			slog.Float64("result", result))
		return result, nil
	}

	idx := int(e.source.Float64() * float64(len(executor.FailureMessages)))
	if idx >= len(executor.FailureMessages) {
		idx = len(executor.FailureMessages) - 1
	}
	message := executor.FailureMessages[idx]

	e.logger.DebugContext(ctx, "simulated attempt failed",
		slog.String("task_id", task.ID.String()),
		slog.String("reason", message))

	return 0, executor.NewExecutionError(message)
}
