package service

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/events"
	"github.com/phrazzld/taskdeck-api/internal/filter"
	"github.com/phrazzld/taskdeck-api/internal/platform/logger"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

// Performer runs one execution attempt of a task.
type Performer interface {
	Perform(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// CreateTaskInput holds the client-supplied fields of a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Importance  domain.Importance
}

// TaskService provides task-related operations
type TaskService interface {
	// Query returns the tasks matching the filter, oldest first.
	Query(ctx context.Context, spec filter.Spec) ([]*domain.Task, error)

	// Get retrieves a task by its ID.
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Create stores a new task with status new.
	Create(ctx context.Context, input CreateTaskInput) (*domain.Task, error)

	// Update replaces the mutable field set of a task and returns the stored task.
	Update(ctx context.Context, id uuid.UUID, fields store.TaskFields) (*domain.Task, error)

	// Delete removes a task. Returns ErrTaskNotFound if nothing was deleted.
	Delete(ctx context.Context, id uuid.UUID) error

	// AddMsg appends a message to a task and returns it with its generated ID.
	AddMsg(ctx context.Context, id uuid.UUID, txt, by string) (domain.Msg, error)

	// RemoveMsg removes a message from a task.
	RemoveMsg(ctx context.Context, id uuid.UUID, msgID string) error

	// Perform runs one execution attempt synchronously.
	Perform(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// EnqueuePerform requests an asynchronous execution attempt.
	EnqueuePerform(ctx context.Context, id uuid.UUID) error

	// Seed fills an empty store with sample tasks.
	Seed(ctx context.Context) ([]*domain.Task, error)
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	tasks        store.TaskStore
	performer    Performer
	eventEmitter events.EventEmitter
	rand         Rand
	logger       *slog.Logger
}

// Option configures the task service.
type Option func(*taskServiceImpl)

// WithSeedRand sets the randomness used by Seed.
func WithSeedRand(r Rand) Option {
	return func(s *taskServiceImpl) {
		s.rand = r
	}
}

// NewTaskService creates a new TaskService
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tasks store.TaskStore,
	performer Performer,
	eventEmitter events.EventEmitter,
	logger *slog.Logger,
	opts ...Option,
) (TaskService, error) {
	if tasks == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "task store cannot be nil"}
	}
	if performer == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "performer cannot be nil"}
	}
	if eventEmitter == nil {
		return nil, &TaskServiceError{Operation: "create_service", Message: "eventEmitter cannot be nil"}
	}

	if logger == nil {
		logger = slog.Default()
	}

	s := &taskServiceImpl{
		tasks:        tasks,
		performer:    performer,
		eventEmitter: eventEmitter,
		rand:         globalRand{},
		logger:       logger.With("component", "task_service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *taskServiceImpl) log(ctx context.Context) *slog.Logger {
	return logger.FromContextOrDefault(ctx, s.logger)
}

// Query builds store criteria from the filter and runs them.
func (s *taskServiceImpl) Query(ctx context.Context, spec filter.Spec) ([]*domain.Task, error) {
	criteria := filter.Build(spec)

	tasks, err := s.tasks.Find(ctx, criteria)
	if err != nil {
		s.log(ctx).Error("failed to query tasks", "error", err)
		return nil, NewTaskServiceError("query_tasks", "failed to query tasks", err)
	}

	s.log(ctx).Debug("tasks queried",
		"count", len(tasks),
		"filtered", !criteria.IsEmpty())
	return tasks, nil
}

// Get retrieves a task by its ID
func (s *taskServiceImpl) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if !store.IsNotFoundError(err) {
			s.log(ctx).Error("failed to retrieve task", "error", err, "task_id", id)
		}
		return nil, NewTaskServiceError("get_task", "failed to retrieve task", err)
	}
	return task, nil
}

// Create stores a new task with status new
func (s *taskServiceImpl) Create(ctx context.Context, input CreateTaskInput) (*domain.Task, error) {
	task, err := domain.NewTask(input.Title, input.Description, input.Importance)
	if err != nil {
		s.log(ctx).Warn("invalid task", "error", err)
		return nil, NewTaskServiceError("create_task", "invalid task", err)
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		s.log(ctx).Error("failed to create task", "error", err, "task_id", task.ID)
		return nil, NewTaskServiceError("create_task", "failed to save task", err)
	}

	s.log(ctx).Info("task created", "task_id", task.ID, "importance", task.Importance)
	return task, nil
}

// Update replaces the task's mutable field set. The running status belongs
// to an attempt in flight and cannot be set from outside the engine.
func (s *taskServiceImpl) Update(ctx context.Context, id uuid.UUID, fields store.TaskFields) (*domain.Task, error) {
	if fields.Status == domain.StatusRunning {
		return nil, NewTaskServiceError("update_task", "invalid status",
			domain.NewValidationError("status", "cannot be set to running", domain.ErrInvalidStatus))
	}

	if err := s.tasks.UpdateFields(ctx, id, fields); err != nil {
		if !store.IsNotFoundError(err) {
			s.log(ctx).Error("failed to update task", "error", err, "task_id", id)
		}
		return nil, NewTaskServiceError("update_task", "failed to update task", err)
	}

	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("update_task", "failed to reload task", err)
	}

	s.log(ctx).Info("task updated", "task_id", id, "status", task.Status)
	return task, nil
}

// Delete removes the task
func (s *taskServiceImpl) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.tasks.Delete(ctx, id)
	if err != nil {
		s.log(ctx).Error("failed to delete task", "error", err, "task_id", id)
		return NewTaskServiceError("delete_task", "failed to delete task", err)
	}
	if deleted == 0 {
		return ErrTaskNotFound
	}

	s.log(ctx).Info("task deleted", "task_id", id)
	return nil
}

// AddMsg appends a message to the task
func (s *taskServiceImpl) AddMsg(ctx context.Context, id uuid.UUID, txt, by string) (domain.Msg, error) {
	msg, err := domain.NewMsg(txt, by)
	if err != nil {
		return domain.Msg{}, NewTaskServiceError("add_msg", "invalid message", err)
	}

	if err := s.tasks.AppendMsg(ctx, id, msg); err != nil {
		if !store.IsNotFoundError(err) {
			s.log(ctx).Error("failed to append message", "error", err, "task_id", id)
		}
		return domain.Msg{}, NewTaskServiceError("add_msg", "failed to append message", err)
	}

	s.log(ctx).Debug("task message added", "task_id", id, "msg_id", msg.ID)
	return msg, nil
}

// RemoveMsg removes a message from the task
func (s *taskServiceImpl) RemoveMsg(ctx context.Context, id uuid.UUID, msgID string) error {
	if err := s.tasks.RemoveMsg(ctx, id, msgID); err != nil {
		if !store.IsNotFoundError(err) {
			s.log(ctx).Error("failed to remove message", "error", err, "task_id", id, "msg_id", msgID)
		}
		return NewTaskServiceError("remove_msg", "failed to remove message", err)
	}

	s.log(ctx).Debug("task message removed", "task_id", id, "msg_id", msgID)
	return nil
}

// Perform runs one execution attempt and returns the updated task
func (s *taskServiceImpl) Perform(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	task, err := s.performer.Perform(ctx, id)
	if err != nil {
		return nil, NewTaskServiceError("perform_task", "failed to perform task", err)
	}
	return task, nil
}

// EnqueuePerform emits a perform event for an existing task
func (s *taskServiceImpl) EnqueuePerform(ctx context.Context, id uuid.UUID) error {
	if _, err := s.tasks.GetByID(ctx, id); err != nil {
		return NewTaskServiceError("enqueue_perform", "failed to retrieve task", err)
	}

	event, err := events.NewPerformEvent(id)
	if err != nil {
		return NewTaskServiceError("enqueue_perform", "failed to create event", err)
	}

	if err := s.eventEmitter.EmitEvent(ctx, event); err != nil {
		s.log(ctx).Error("failed to emit perform event",
			"error", err,
			"task_id", id,
			"event_id", event.ID)
		return NewTaskServiceError("enqueue_perform", "failed to emit event", err)
	}

	s.log(ctx).Info("perform event emitted", "task_id", id, "event_id", event.ID)
	return nil
}

// Seed inserts SeedCount sample tasks when the store is empty.
func (s *taskServiceImpl) Seed(ctx context.Context) ([]*domain.Task, error) {
	count, err := s.tasks.Count(ctx)
	if err != nil {
		return nil, NewTaskServiceError("seed_tasks", "failed to count tasks", err)
	}
	if count > 0 {
		return nil, ErrStoreNotEmpty
	}

	tasks := SampleTasks(s.rand, SeedCount)
	if err := s.tasks.CreateMultiple(ctx, tasks); err != nil {
		s.log(ctx).Error("failed to seed tasks", "error", err)
		return nil, NewTaskServiceError("seed_tasks", "failed to insert sample tasks", err)
	}

	s.log(ctx).Info("sample tasks seeded", "count", len(tasks))
	return tasks, nil
}
