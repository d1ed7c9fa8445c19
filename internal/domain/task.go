package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Status represents the lifecycle state of a task.
type Status string

// Possible task status values
const (
	StatusNew     Status = "new"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusNew, StatusRunning, StatusDone, StatusFailed:
		return true
	default:
		return false
	}
}

// Importance ranks a task from 1 (low) to 3 (high).
type Importance int

// Possible importance values
const (
	ImportanceLow    Importance = 1
	ImportanceMedium Importance = 2
	ImportanceHigh   Importance = 3
)

// Valid reports whether i is within 1..3.
func (i Importance) Valid() bool {
	return i >= ImportanceLow && i <= ImportanceHigh
}

// Msg is a short note attached to a task. Messages are appended and removed
// independently of the task's execution lifecycle.
type Msg struct {
	ID  string `json:"id"`
	Txt string `json:"txt"`
	By  string `json:"by"`
}

// NewMsg creates a message with a freshly generated ID.
func NewMsg(txt, by string) (Msg, error) {
	if strings.TrimSpace(txt) == "" {
		return Msg{}, NewValidationError("txt", "cannot be empty", ErrEmptyMsgText)
	}
	return Msg{
		ID:  uuid.NewString(),
		Txt: txt,
		By:  by,
	}, nil
}

// Task is a unit of deferred work with a status lifecycle.
//
// Status, LastTriedAt, TriesCount, DoneAt and Errors are driven by the
// lifecycle engine; Errors only ever grows and DoneAt is never cleared by a
// failed attempt.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Importance  Importance `json:"importance"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	LastTriedAt *time.Time `json:"lastTriedAt"`
	TriesCount  int        `json:"triesCount"`
	DoneAt      *time.Time `json:"doneAt"`
	Errors      []string   `json:"errors"`
	Msgs        []Msg      `json:"msgs"`
}

// NewTask creates a new Task with status new, zero tries and empty
// error and message lists. Returns an error if validation fails.
func NewTask(title, description string, importance Importance) (*Task, error) {
	task := &Task{
		ID:          uuid.New(),
		Title:       strings.TrimSpace(title),
		Description: description,
		Importance:  importance,
		Status:      StatusNew,
		CreatedAt:   time.Now().UTC(),
		Errors:      []string{},
		Msgs:        []Msg{},
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return NewValidationError("id", "cannot be empty", ErrInvalidID)
	}

	if strings.TrimSpace(t.Title) == "" {
		return NewValidationError("title", "cannot be empty", ErrEmptyTitle)
	}

	if !t.Importance.Valid() {
		return NewValidationError("importance", "must be 1, 2 or 3", ErrInvalidImportance)
	}

	if !t.Status.Valid() {
		return NewValidationError("status", "is not a known status", ErrInvalidStatus)
	}

	return nil
}

// Clone returns a deep copy of the task. Timestamps and slices are copied so
// that mutating the clone never affects the original.
func (t *Task) Clone() *Task {
	c := *t
	c.LastTriedAt = cloneTime(t.LastTriedAt)
	c.DoneAt = cloneTime(t.DoneAt)
	c.Errors = slices.Clone(t.Errors)
	if c.Errors == nil {
		c.Errors = []string{}
	}
	c.Msgs = slices.Clone(t.Msgs)
	if c.Msgs == nil {
		c.Msgs = []Msg{}
	}
	return &c
}

func cloneTime(ts *time.Time) *time.Time {
	if ts == nil {
		return nil
	}
	v := *ts
	return &v
}
