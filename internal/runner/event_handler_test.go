package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSubmitter struct {
	mock.Mock
}

func (m *mockSubmitter) Submit(ctx context.Context, taskID uuid.UUID) error {
	args := m.Called(ctx, taskID)
	return args.Error(0)
}

func TestEventHandler_SubmitsPerformEvents(t *testing.T) {
	taskID := uuid.New()
	submitter := &mockSubmitter{}
	submitter.On("Submit", mock.Anything, taskID).Return(nil).Once()

	handler := NewEventHandler(submitter, nil)
	event, err := events.NewPerformEvent(taskID)
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	submitter.AssertExpectations(t)
}

func TestEventHandler_IgnoresOtherTypes(t *testing.T) {
	submitter := &mockSubmitter{}
	handler := NewEventHandler(submitter, nil)

	event, err := events.NewTaskRequestEvent("task.archive", map[string]string{"task_id": uuid.NewString()})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	submitter.AssertNotCalled(t, "Submit", mock.Anything, mock.Anything)
}

func TestEventHandler_Errors(t *testing.T) {
	t.Run("bad payload", func(t *testing.T) {
		handler := NewEventHandler(&mockSubmitter{}, nil)
		event := &events.TaskRequestEvent{ID: uuid.New(), Type: events.TypePerformTask, Payload: []byte(`{"task_id":`)}

		assert.Error(t, handler.HandleEvent(context.Background(), event))
	})

	t.Run("missing task id", func(t *testing.T) {
		handler := NewEventHandler(&mockSubmitter{}, nil)
		event := &events.TaskRequestEvent{ID: uuid.New(), Type: events.TypePerformTask, Payload: []byte(`{}`)}

		assert.Error(t, handler.HandleEvent(context.Background(), event))
	})

	t.Run("queue full propagates", func(t *testing.T) {
		taskID := uuid.New()
		submitter := &mockSubmitter{}
		submitter.On("Submit", mock.Anything, taskID).Return(ErrQueueFull)

		handler := NewEventHandler(submitter, nil)
		event, err := events.NewPerformEvent(taskID)
		require.NoError(t, err)

		err = handler.HandleEvent(context.Background(), event)
		assert.True(t, errors.Is(err, ErrQueueFull))
	})
}
