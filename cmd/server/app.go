package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/phrazzld/taskdeck-api/internal/config"
	"github.com/phrazzld/taskdeck-api/internal/events"
	"github.com/phrazzld/taskdeck-api/internal/executor"
	"github.com/phrazzld/taskdeck-api/internal/lifecycle"
	"github.com/phrazzld/taskdeck-api/internal/platform/httpexec"
	"github.com/phrazzld/taskdeck-api/internal/platform/simulator"
	"github.com/phrazzld/taskdeck-api/internal/runner"
	"github.com/phrazzld/taskdeck-api/internal/service"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

// application holds all the shared application dependencies to simplify management
// and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger

	taskStore  store.TaskStore
	closeStore func() error

	executor     executor.Executor
	engine       *lifecycle.Engine
	runner       *runner.Runner
	eventEmitter *events.InMemoryEventEmitter
	taskService  service.TaskService
}

// newApplication wires every component from configuration. On error, any
// resource already opened is released.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *application, err error) {
	app := &application{
		config: cfg,
		logger: logger,
	}
	defer func() {
		if err != nil {
			app.cleanup(context.Background())
		}
	}()

	app.taskStore, app.closeStore, err = setupTaskStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up task store: %w", err)
	}

	app.executor, err = newExecutor(cfg.Executor, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up executor: %w", err)
	}

	app.engine, err = lifecycle.NewEngine(app.taskStore, app.executor, logger,
		lifecycle.WithExecutorTimeout(cfg.Engine.ExecutorTimeout),
		lifecycle.WithLockMode(lifecycle.LockMode(cfg.Engine.LockMode)),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create lifecycle engine: %w", err)
	}

	app.runner, err = setupRunner(app.engine, cfg.Runner, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to set up runner: %w", err)
	}

	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	app.eventEmitter.RegisterHandler(runner.NewEventHandler(app.runner, logger))

	app.taskService, err = service.NewTaskService(app.taskStore, app.engine, app.eventEmitter, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create task service: %w", err)
	}

	logger.Info("application initialized",
		"store_backend", cfg.Store.Backend,
		"executor_mode", cfg.Executor.Mode,
		"lock_mode", cfg.Engine.LockMode)
	return app, nil
}

// newExecutor builds the executor selected by executor.mode.
func newExecutor(cfg config.ExecutorConfig, logger *slog.Logger) (executor.Executor, error) {
	switch cfg.Mode {
	case config.ExecutorModeSimulated:
		return simulator.NewExecutor(logger,
			simulator.WithDelay(cfg.Delay),
			simulator.WithSuccessRate(cfg.SuccessRate))
	case config.ExecutorModeHTTP:
		opts := []httpexec.Option{httpexec.WithRetries(uint64(cfg.MaxRetries), cfg.RetryBackoff)}
		if cfg.RateLimit > 0 {
			opts = append(opts, httpexec.WithRateLimit(cfg.RateLimit, max(cfg.RateBurst, 1)))
		}
		return httpexec.NewExecutor(cfg.URL, cfg.RequestTimeout, logger, opts...)
	default:
		return nil, fmt.Errorf("unknown executor mode %q", cfg.Mode)
	}
}

// setupRunner creates and starts the background perform runner.
func setupRunner(performer runner.Performer, cfg config.RunnerConfig, logger *slog.Logger) (*runner.Runner, error) {
	r, err := runner.NewRunner(performer, runner.Config{
		WorkerCount: cfg.WorkerCount,
		QueueSize:   cfg.QueueSize,
	}, logger)
	if err != nil {
		return nil, err
	}

	r.SetErrorHandler(func(job runner.Job, err error) {
		logger.Warn("queued perform failed",
			"task_id", job.TaskID,
			"queued_for", time.Since(job.EnqueuedAt),
			"error", err)
	})

	if err := r.Start(); err != nil {
		return nil, fmt.Errorf("failed to start runner: %w", err)
	}
	return r, nil
}

// seed fills an empty store with sample tasks. A non-empty store is left
// alone and only logged.
func (app *application) seed(ctx context.Context) error {
	tasks, err := app.taskService.Seed(ctx)
	if err != nil {
		if errors.Is(err, service.ErrStoreNotEmpty) {
			app.logger.Info("store already has tasks, skipping seed")
			return nil
		}
		return fmt.Errorf("failed to seed tasks: %w", err)
	}
	app.logger.Info("seeded sample tasks", "count", len(tasks))
	return nil
}

// Run serves HTTP until ctx is cancelled, then shuts down gracefully.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// cleanup drains the runner and releases the store. Queued jobs get until
// ctx ends to finish.
func (app *application) cleanup(ctx context.Context) {
	if app.runner != nil {
		if err := app.runner.Stop(ctx); err != nil {
			app.logger.Warn("runner did not drain before shutdown deadline", "error", err)
		}
	}

	if app.closeStore != nil {
		if err := app.closeStore(); err != nil {
			app.logger.Error("error closing task store", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
