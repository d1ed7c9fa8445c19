package runner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/phrazzld/taskdeck-api/internal/platform/logger"
)

// WorkerPool manages a pool of worker goroutines that perform jobs
// from a queue. It handles graceful shutdown and worker lifecycle.
type WorkerPool struct {
	// jobs is the channel workers consume from
	jobs <-chan Job

	// performer runs each job
	performer Performer

	// workerCount is the number of concurrent workers to start
	workerCount int

	// wg tracks active worker goroutines for clean shutdown
	wg sync.WaitGroup

	// ctx is handed to every Perform call and cancelled on forced shutdown
	ctx    context.Context
	cancel context.CancelFunc

	logger *slog.Logger

	// errorHandler is called when a job cannot be performed.
	// If nil, errors are only logged
	errorHandler func(job Job, err error)
}

// NewWorkerPool creates a new worker pool consuming from jobs.
func NewWorkerPool(jobs <-chan Job, performer Performer, workerCount int, log *slog.Logger) *WorkerPool {
	if log == nil {
		log = slog.Default()
	}
	if workerCount <= 0 {
		log.Warn("invalid worker count specified, using default",
			"specified_count", workerCount,
			"default_count", 1)
		workerCount = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	ctx = logger.WithLogger(ctx, log)

	return &WorkerPool{
		jobs:        jobs,
		performer:   performer,
		workerCount: workerCount,
		ctx:         ctx,
		cancel:      cancel,
		logger:      log,
	}
}

// SetErrorHandler sets a handler for jobs that could not be performed.
// It must be called before Start.
func (p *WorkerPool) SetErrorHandler(handler func(job Job, err error)) {
	p.errorHandler = handler
}

// Start launches the worker goroutines.
func (p *WorkerPool) Start() {
	p.logger.Info("starting worker pool", "worker_count", p.workerCount)
	for i := 0; i < p.workerCount; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Wait blocks until every worker has exited.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Cancel aborts in-flight jobs and stops workers without draining the queue.
func (p *WorkerPool) Cancel() {
	p.cancel()
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-p.ctx.Done():
			p.logger.Debug("stopping worker", "worker_id", id)
			return

		case job, ok := <-p.jobs:
			if !ok {
				p.logger.Debug("job channel closed, stopping worker", "worker_id", id)
				return
			}
			p.process(job, id)
		}
	}
}

func (p *WorkerPool) process(job Job, workerID int) {
	log := p.logger.With("task_id", job.TaskID, "worker_id", workerID)

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("panic while performing task: %v", r)
			}
		}()
		_, err = p.performer.Perform(p.ctx, job.TaskID)
		return err
	}()

	if err != nil {
		log.Error("background perform failed", "error", err)
		if p.errorHandler != nil {
			p.errorHandler(job, err)
		}
		return
	}

	log.Debug("background perform finished")
}
