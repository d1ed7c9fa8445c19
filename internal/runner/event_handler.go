package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/events"
)

// Submitter accepts perform jobs.
type Submitter interface {
	Submit(ctx context.Context, taskID uuid.UUID) error
}

// EventHandler turns perform events into runner jobs.
type EventHandler struct {
	submitter Submitter
	logger    *slog.Logger
}

// NewEventHandler creates an EventHandler that submits to s.
func NewEventHandler(s Submitter, logger *slog.Logger) *EventHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventHandler{
		submitter: s,
		logger:    logger.With("component", "perform_event_handler"),
	}
}

// HandleEvent submits the task named by a TypePerformTask event.
// Events of other types are ignored.
func (h *EventHandler) HandleEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	if event.Type != events.TypePerformTask {
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type,
			"event_id", event.ID)
		return nil
	}

	var payload events.PerformPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		h.logger.Error("failed to unmarshal payload", "error", err, "event_id", event.ID)
		return fmt.Errorf("failed to unmarshal payload: %w", err)
	}

	if payload.TaskID == uuid.Nil {
		return fmt.Errorf("perform event %s carries no task id", event.ID)
	}

	if err := h.submitter.Submit(ctx, payload.TaskID); err != nil {
		h.logger.Error("failed to submit perform job",
			"error", err,
			"task_id", payload.TaskID,
			"event_id", event.ID)
		return fmt.Errorf("failed to submit perform job: %w", err)
	}

	h.logger.Info("perform job submitted",
		"task_id", payload.TaskID,
		"event_id", event.ID)
	return nil
}

// Ensure EventHandler implements events.EventHandler
var _ events.EventHandler = (*EventHandler)(nil)
