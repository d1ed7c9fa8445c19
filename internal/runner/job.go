package runner

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
)

// Job is one queued perform request.
type Job struct {
	TaskID     uuid.UUID
	EnqueuedAt time.Time
}

// Performer runs a single execution attempt of a task.
type Performer interface {
	Perform(ctx context.Context, id uuid.UUID) (*domain.Task, error)
}

// PerformerFunc adapts an ordinary function to the Performer interface.
type PerformerFunc func(ctx context.Context, id uuid.UUID) (*domain.Task, error)

// Perform calls f(ctx, id).
func (f PerformerFunc) Perform(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	return f(ctx, id)
}
