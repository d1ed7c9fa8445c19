// Package memory provides an in-process implementation of store.TaskStore.
// It keeps deep copies of every task so callers never share state with the
// store, and is used for development and tests.
package memory

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

type entry struct {
	task *domain.Task
	seq  uint64
}

// TaskStore is a map-backed task store guarded by a RWMutex.
type TaskStore struct {
	mu     sync.RWMutex
	tasks  map[uuid.UUID]entry
	seq    uint64
	logger *slog.Logger
}

var _ store.TaskStore = (*TaskStore)(nil)

// NewTaskStore creates an empty in-memory task store.
// If logger is nil, slog.Default() is used.
func NewTaskStore(logger *slog.Logger) *TaskStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskStore{
		tasks:  make(map[uuid.UUID]entry),
		logger: logger.With("component", "memory_task_store"),
	}
}

// Find implements store.TaskStore.
func (s *TaskStore) Find(ctx context.Context, criteria store.Criteria) ([]*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]entry, 0, len(s.tasks))
	for _, e := range s.tasks {
		if criteria.Matches(e.task) {
			matched = append(matched, e)
		}
	}

	slices.SortFunc(matched, func(a, b entry) int {
		if c := a.task.CreatedAt.Compare(b.task.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})

	tasks := make([]*domain.Task, 0, len(matched))
	for _, e := range matched {
		tasks = append(tasks, e.task.Clone())
	}
	return tasks, nil
}

// GetByID implements store.TaskStore.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	return e.task.Clone(), nil
}

// Create implements store.TaskStore.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID)
	}
	s.insertLocked(task)

	s.logger.DebugContext(ctx, "task created", slog.String("task_id", task.ID.String()))
	return nil
}

// CreateMultiple implements store.TaskStore. Nothing is stored if any task
// is invalid or already present.
func (s *TaskStore) CreateMultiple(ctx context.Context, tasks []*domain.Task) error {
	seen := make(map[uuid.UUID]struct{}, len(tasks))
	for _, task := range tasks {
		if err := task.Validate(); err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		if _, dup := seen[task.ID]; dup {
			return fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID)
		}
		seen[task.ID] = struct{}{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, task := range tasks {
		if _, exists := s.tasks[task.ID]; exists {
			return fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID)
		}
	}
	for _, task := range tasks {
		s.insertLocked(task)
	}

	s.logger.DebugContext(ctx, "tasks created", slog.Int("count", len(tasks)))
	return nil
}

func (s *TaskStore) insertLocked(task *domain.Task) {
	s.seq++
	s.tasks[task.ID] = entry{task: task.Clone(), seq: s.seq}
}

// UpdateFields implements store.TaskStore.
func (s *TaskStore) UpdateFields(ctx context.Context, id uuid.UUID, fields store.TaskFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}

	updated := e.task.Clone()
	fields.Apply(updated)
	if err := updated.Validate(); err != nil {
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	e.task = updated
	s.tasks[id] = e
	return nil
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return 0, nil
	}
	delete(s.tasks, id)
	return 1, nil
}

// Count implements store.TaskStore.
func (s *TaskStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.tasks)), nil
}

// AppendMsg implements store.TaskStore.
func (s *TaskStore) AppendMsg(ctx context.Context, id uuid.UUID, msg domain.Msg) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}
	e.task.Msgs = append(e.task.Msgs, msg)
	return nil
}

// RemoveMsg implements store.TaskStore.
func (s *TaskStore) RemoveMsg(ctx context.Context, id uuid.UUID, msgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.tasks[id]
	if !ok {
		return store.ErrTaskNotFound
	}

	idx := slices.IndexFunc(e.task.Msgs, func(m domain.Msg) bool { return m.ID == msgID })
	if idx < 0 {
		return store.ErrMsgNotFound
	}
	e.task.Msgs = slices.Delete(e.task.Msgs, idx, idx+1)
	return nil
}
