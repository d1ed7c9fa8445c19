package service_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"testing"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/events"
	"github.com/phrazzld/taskdeck-api/internal/filter"
	"github.com/phrazzld/taskdeck-api/internal/lifecycle"
	"github.com/phrazzld/taskdeck-api/internal/platform/logger"
	"github.com/phrazzld/taskdeck-api/internal/platform/memory"
	"github.com/phrazzld/taskdeck-api/internal/service"
	"github.com/phrazzld/taskdeck-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockPerformer mocks the Performer interface
type MockPerformer struct {
	mock.Mock
}

func (m *MockPerformer) Perform(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Task), args.Error(1)
}

// MockEventEmitter mocks the EventEmitter interface
type MockEventEmitter struct {
	mock.Mock
}

func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskRequestEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

type fixture struct {
	svc       service.TaskService
	store     *memory.TaskStore
	performer *MockPerformer
	emitter   *MockEventEmitter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	log, _ := logger.GetTestLogger(t)
	f := &fixture{
		store:     memory.NewTaskStore(log),
		performer: &MockPerformer{},
		emitter:   &MockEventEmitter{},
	}
	svc, err := service.NewTaskService(f.store, f.performer, f.emitter, log,
		service.WithSeedRand(rand.New(rand.NewPCG(3, 4))))
	require.NoError(t, err)
	f.svc = svc
	return f
}

func (f *fixture) create(t *testing.T, title string, importance domain.Importance) *domain.Task {
	t.Helper()
	task, err := f.svc.Create(context.Background(), service.CreateTaskInput{
		Title:      title,
		Importance: importance,
	})
	require.NoError(t, err)
	return task
}

func TestNewTaskService_RequiresDependencies(t *testing.T) {
	s := memory.NewTaskStore(nil)
	p := &MockPerformer{}
	e := &MockEventEmitter{}

	_, err := service.NewTaskService(nil, p, e, nil)
	assert.Error(t, err)
	_, err = service.NewTaskService(s, nil, e, nil)
	assert.Error(t, err)
	_, err = service.NewTaskService(s, p, nil, nil)
	assert.Error(t, err)
}

func TestTaskService_Create(t *testing.T) {
	f := newFixture(t)

	task := f.create(t, "  Backup database  ", domain.ImportanceHigh)
	assert.Equal(t, "Backup database", task.Title)
	assert.Equal(t, domain.StatusNew, task.Status)
	assert.Zero(t, task.TriesCount)
	assert.Empty(t, task.Errors)
	assert.Empty(t, task.Msgs)

	stored, err := f.svc.Get(context.Background(), task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, stored.ID)

	_, err = f.svc.Create(context.Background(), service.CreateTaskInput{Title: "x", Importance: 9})
	assert.ErrorIs(t, err, domain.ErrInvalidImportance)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestTaskService_Query(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	backup := f.create(t, "Backup database", domain.ImportanceHigh)
	f.create(t, "Clear cache", domain.ImportanceLow)

	all, err := f.svc.Query(ctx, filter.Spec{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	got, err := f.svc.Query(ctx, filter.Spec{
		Txt:        "BACKUP",
		Importance: filter.ImportanceFlags{Three: true},
	})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, backup.ID, got[0].ID)

	none, err := f.svc.Query(ctx, filter.Spec{Status: filter.StatusFlags{Done: true}})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestTaskService_GetMissing(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), uuid.New())
	assert.Same(t, service.ErrTaskNotFound, err)
}

func TestTaskService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, "Restart server", domain.ImportanceMedium)
	msg, err := f.svc.AddMsg(ctx, task.ID, "note", "ops")
	require.NoError(t, err)

	fields := store.FieldsOf(task)
	fields.Title = "Restart all servers"
	fields.Status = domain.StatusDone

	updated, err := f.svc.Update(ctx, task.ID, fields)
	require.NoError(t, err)
	assert.Equal(t, "Restart all servers", updated.Title)
	assert.Equal(t, domain.StatusDone, updated.Status)
	assert.Equal(t, []domain.Msg{msg}, updated.Msgs, "update keeps messages")

	_, err = f.svc.Update(ctx, uuid.New(), fields)
	assert.Same(t, service.ErrTaskNotFound, err)

	fields.Importance = 0
	_, err = f.svc.Update(ctx, task.ID, fields)
	assert.ErrorIs(t, err, store.ErrInvalidEntity)

	fields = store.FieldsOf(updated)
	fields.Status = domain.StatusRunning
	_, err = f.svc.Update(ctx, task.ID, fields)
	assert.ErrorIs(t, err, domain.ErrValidation)
	stored, err := f.svc.Get(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusDone, stored.Status, "running is never stored by an update")
}

func TestTaskService_Delete(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, "Remove inactive users", domain.ImportanceLow)

	require.NoError(t, f.svc.Delete(context.Background(), task.ID))
	assert.Same(t, service.ErrTaskNotFound, f.svc.Delete(context.Background(), task.ID))
}

func TestTaskService_Msgs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.create(t, "Check system logs", domain.ImportanceMedium)

	msg, err := f.svc.AddMsg(ctx, task.ID, "looks fine", "ann")
	require.NoError(t, err)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, "looks fine", msg.Txt)
	assert.Equal(t, "ann", msg.By)

	_, err = f.svc.AddMsg(ctx, task.ID, "   ", "ann")
	assert.ErrorIs(t, err, domain.ErrEmptyMsgText)

	_, err = f.svc.AddMsg(ctx, uuid.New(), "hello", "ann")
	assert.Same(t, service.ErrTaskNotFound, err)

	require.NoError(t, f.svc.RemoveMsg(ctx, task.ID, msg.ID))
	assert.Same(t, service.ErrMsgNotFound, f.svc.RemoveMsg(ctx, task.ID, msg.ID))
	assert.Same(t, service.ErrTaskNotFound, f.svc.RemoveMsg(ctx, uuid.New(), msg.ID))
}

func TestTaskService_Perform(t *testing.T) {
	f := newFixture(t)
	id := uuid.New()
	done := &domain.Task{ID: id, Status: domain.StatusDone, TriesCount: 1}

	f.performer.On("Perform", mock.Anything, id).Return(done, nil).Once()
	got, err := f.svc.Perform(context.Background(), id)
	require.NoError(t, err)
	assert.Same(t, done, got)

	busyID := uuid.New()
	f.performer.On("Perform", mock.Anything, busyID).Return(nil, lifecycle.ErrTaskBusy).Once()
	_, err = f.svc.Perform(context.Background(), busyID)
	assert.ErrorIs(t, err, lifecycle.ErrTaskBusy)

	missingID := uuid.New()
	f.performer.On("Perform", mock.Anything, missingID).
		Return(nil, errors.Join(errors.New("failed to load task"), store.ErrTaskNotFound)).Once()
	_, err = f.svc.Perform(context.Background(), missingID)
	assert.Same(t, service.ErrTaskNotFound, err)

	f.performer.AssertExpectations(t)
}

func TestTaskService_EnqueuePerform(t *testing.T) {
	f := newFixture(t)
	task := f.create(t, "Run antivirus scan", domain.ImportanceHigh)

	isPerformFor := func(id uuid.UUID) any {
		return mock.MatchedBy(func(e *events.TaskRequestEvent) bool {
			var p events.PerformPayload
			return e.Type == events.TypePerformTask && e.UnmarshalPayload(&p) == nil && p.TaskID == id
		})
	}

	f.emitter.On("EmitEvent", mock.Anything, isPerformFor(task.ID)).Return(nil).Once()
	require.NoError(t, f.svc.EnqueuePerform(context.Background(), task.ID))

	queueFull := errors.New("job queue is full")
	f.emitter.On("EmitEvent", mock.Anything, isPerformFor(task.ID)).Return(queueFull).Once()
	assert.ErrorIs(t, f.svc.EnqueuePerform(context.Background(), task.ID), queueFull)

	assert.Same(t, service.ErrTaskNotFound, f.svc.EnqueuePerform(context.Background(), uuid.New()))

	f.emitter.AssertExpectations(t)
}

func TestTaskService_Seed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seeded, err := f.svc.Seed(ctx)
	require.NoError(t, err)
	assert.Len(t, seeded, service.SeedCount)

	count, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(service.SeedCount), count)

	_, err = f.svc.Seed(ctx)
	assert.ErrorIs(t, err, service.ErrStoreNotEmpty)
}
