package store

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
)

// Criteria restricts a task query. A zero-valued dimension leaves that
// dimension unconstrained.
type Criteria struct {
	// TitleContains matches tasks whose title contains this text, ignoring case.
	TitleContains string

	// Statuses restricts results to tasks whose status is in the set.
	Statuses []domain.Status

	// Importances restricts results to tasks whose importance is in the set.
	Importances []domain.Importance
}

// IsEmpty reports whether the criteria match every task.
func (c Criteria) IsEmpty() bool {
	return c.TitleContains == "" && len(c.Statuses) == 0 && len(c.Importances) == 0
}

// Matches evaluates the criteria against a task in memory.
func (c Criteria) Matches(task *domain.Task) bool {
	if c.TitleContains != "" &&
		!strings.Contains(strings.ToLower(task.Title), strings.ToLower(c.TitleContains)) {
		return false
	}
	if len(c.Statuses) > 0 && !slices.Contains(c.Statuses, task.Status) {
		return false
	}
	if len(c.Importances) > 0 && !slices.Contains(c.Importances, task.Importance) {
		return false
	}
	return true
}

// TaskFields is the set of task fields replaced by UpdateFields. Fields not
// listed here (ID, CreatedAt, Msgs) are left untouched by an update.
type TaskFields struct {
	Title       string
	Description string
	Importance  domain.Importance
	Status      domain.Status
	LastTriedAt *time.Time
	TriesCount  int
	DoneAt      *time.Time
	Errors      []string
}

// FieldsOf extracts the replaceable field set from a task.
func FieldsOf(task *domain.Task) TaskFields {
	errs := slices.Clone(task.Errors)
	if errs == nil {
		errs = []string{}
	}
	return TaskFields{
		Title:       task.Title,
		Description: task.Description,
		Importance:  task.Importance,
		Status:      task.Status,
		LastTriedAt: task.LastTriedAt,
		TriesCount:  task.TriesCount,
		DoneAt:      task.DoneAt,
		Errors:      errs,
	}
}

// Apply copies the field set onto task.
func (f TaskFields) Apply(task *domain.Task) {
	task.Title = f.Title
	task.Description = f.Description
	task.Importance = f.Importance
	task.Status = f.Status
	task.LastTriedAt = f.LastTriedAt
	task.TriesCount = f.TriesCount
	task.DoneAt = f.DoneAt
	task.Errors = slices.Clone(f.Errors)
	if task.Errors == nil {
		task.Errors = []string{}
	}
}

// TaskStore defines the interface for task data persistence.
// Version: 1.0
type TaskStore interface {
	// Find returns all tasks matching the criteria, oldest first.
	// Returns an empty slice if nothing matches.
	Find(ctx context.Context, criteria Criteria) ([]*domain.Task, error)

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Create saves a new task to the store.
	// Returns validation errors from the domain Task if data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// CreateMultiple saves several tasks at once; either all are stored or none.
	CreateMultiple(ctx context.Context, tasks []*domain.Task) error

	// UpdateFields replaces the listed fields of the task with the given ID in a
	// single atomic write. Returns ErrTaskNotFound if the task does not exist.
	UpdateFields(ctx context.Context, id uuid.UUID, fields TaskFields) error

	// Delete removes the task and returns the number of deleted tasks (0 or 1).
	Delete(ctx context.Context, id uuid.UUID) (int64, error)

	// Count returns the number of stored tasks.
	Count(ctx context.Context) (int64, error)

	// AppendMsg atomically appends a message to the task's message list.
	// Returns ErrTaskNotFound if the task does not exist.
	AppendMsg(ctx context.Context, id uuid.UUID, msg domain.Msg) error

	// RemoveMsg atomically removes the message with msgID from the task.
	// Returns ErrTaskNotFound if the task does not exist and ErrMsgNotFound if
	// the task has no such message.
	RemoveMsg(ctx context.Context, id uuid.UUID, msgID string) error
}
