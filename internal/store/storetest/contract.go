// Package storetest holds the behavioral contract shared by every
// store.TaskStore implementation. Each implementation's tests call
// RunTaskStoreContract with a factory producing an empty store.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store for a single subtest.
type Factory func(t *testing.T) store.TaskStore

// NewTask builds a valid task with a deterministic creation time offset.
func NewTask(t *testing.T, title string, importance domain.Importance, status domain.Status, offset time.Duration) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(title, "generated for tests", importance)
	require.NoError(t, err)
	task.Status = status
	task.CreatedAt = time.Date(2023, time.January, 1, 0, 0, 0, 0, time.UTC).Add(offset)
	return task
}

// RunTaskStoreContract runs the shared store behavior tests.
func RunTaskStoreContract(t *testing.T, newStore Factory) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newStore(t)) })
	t.Run("CreateRejectsInvalidAndDuplicate", func(t *testing.T) { testCreateRejects(t, newStore(t)) })
	t.Run("CreateMultipleIsAllOrNothing", func(t *testing.T) { testCreateMultiple(t, newStore(t)) })
	t.Run("FindByCriteria", func(t *testing.T) { testFind(t, newStore(t)) })
	t.Run("UpdateFields", func(t *testing.T) { testUpdateFields(t, newStore(t)) })
	t.Run("DeleteAndCount", func(t *testing.T) { testDeleteAndCount(t, newStore(t)) })
	t.Run("Msgs", func(t *testing.T) { testMsgs(t, newStore(t)) })
	t.Run("ConcurrentAppendMsg", func(t *testing.T) { testConcurrentAppend(t, newStore(t)) })
	t.Run("ReturnedTasksAreCopies", func(t *testing.T) { testCopies(t, newStore(t)) })
}

func testCreateAndGet(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask(t, "Backup database", domain.ImportanceHigh, domain.StatusNew, 0)

	require.NoError(t, s.Create(ctx, task))

	got, err := s.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, task.ID, got.ID)
	assert.Equal(t, task.Title, got.Title)
	assert.Equal(t, task.Description, got.Description)
	assert.Equal(t, task.Importance, got.Importance)
	assert.Equal(t, domain.StatusNew, got.Status)
	assert.True(t, task.CreatedAt.Equal(got.CreatedAt))
	assert.Nil(t, got.LastTriedAt)
	assert.Nil(t, got.DoneAt)
	assert.Equal(t, 0, got.TriesCount)
	assert.NotNil(t, got.Errors)
	assert.Empty(t, got.Errors)
	assert.NotNil(t, got.Msgs)

	_, err = s.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, store.ErrTaskNotFound)
	assert.True(t, store.IsNotFoundError(err))
}

func testCreateRejects(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	invalid := NewTask(t, "Clear cache", domain.ImportanceLow, domain.StatusNew, 0)
	invalid.Importance = 7
	assert.ErrorIs(t, s.Create(ctx, invalid), store.ErrInvalidEntity)

	task := NewTask(t, "Clear cache", domain.ImportanceLow, domain.StatusNew, 0)
	require.NoError(t, s.Create(ctx, task))
	assert.ErrorIs(t, s.Create(ctx, task), store.ErrDuplicate)

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func testCreateMultiple(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	a := NewTask(t, "Restart server", domain.ImportanceLow, domain.StatusNew, 0)
	b := NewTask(t, "Run antivirus scan", domain.ImportanceMedium, domain.StatusDone, time.Minute)
	require.NoError(t, s.CreateMultiple(ctx, []*domain.Task{a, b}))

	c := NewTask(t, "Check system logs", domain.ImportanceLow, domain.StatusNew, 2*time.Minute)
	err := s.CreateMultiple(ctx, []*domain.Task{c, a})
	assert.ErrorIs(t, err, store.ErrDuplicate)

	_, err = s.GetByID(ctx, c.ID)
	assert.ErrorIs(t, err, store.ErrTaskNotFound, "a failed batch must not leave partial writes")

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func testFind(t *testing.T, s store.TaskStore) {
	ctx := context.Background()

	tasks := []*domain.Task{
		NewTask(t, "Backup database", domain.ImportanceHigh, domain.StatusFailed, 3*time.Minute),
		NewTask(t, "Optimize DATABASE performance", domain.ImportanceLow, domain.StatusNew, time.Minute),
		NewTask(t, "Clear cache", domain.ImportanceMedium, domain.StatusDone, 2*time.Minute),
		NewTask(t, "Clean temporary files 100%", domain.ImportanceLow, domain.StatusRunning, 0),
	}
	require.NoError(t, s.CreateMultiple(ctx, tasks))

	titles := func(found []*domain.Task) []string {
		out := make([]string, 0, len(found))
		for _, f := range found {
			out = append(out, f.Title)
		}
		return out
	}

	all, err := s.Find(ctx, store.Criteria{})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Clean temporary files 100%",
		"Optimize DATABASE performance",
		"Clear cache",
		"Backup database",
	}, titles(all), "results are ordered by creation time")

	byTitle, err := s.Find(ctx, store.Criteria{TitleContains: "database"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Optimize DATABASE performance", "Backup database"}, titles(byTitle))

	literal, err := s.Find(ctx, store.Criteria{TitleContains: "100%"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Clean temporary files 100%"}, titles(literal))

	wildcard, err := s.Find(ctx, store.Criteria{TitleContains: "_"})
	require.NoError(t, err)
	assert.Empty(t, wildcard, "pattern characters are matched literally")

	byStatus, err := s.Find(ctx, store.Criteria{Statuses: []domain.Status{domain.StatusNew, domain.StatusDone}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Optimize DATABASE performance", "Clear cache"}, titles(byStatus))

	combined, err := s.Find(ctx, store.Criteria{
		TitleContains: "c",
		Statuses:      []domain.Status{domain.StatusFailed, domain.StatusRunning},
		Importances:   []domain.Importance{domain.ImportanceLow},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Clean temporary files 100%"}, titles(combined))

	none, err := s.Find(ctx, store.Criteria{TitleContains: "nothing like this"})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func testUpdateFields(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask(t, "Install security patch", domain.ImportanceMedium, domain.StatusNew, 0)
	require.NoError(t, s.Create(ctx, task))

	msg, err := domain.NewMsg("pending approval", "ops")
	require.NoError(t, err)
	require.NoError(t, s.AppendMsg(ctx, task.ID, msg))

	tried := time.Date(2023, time.March, 4, 5, 6, 7, 0, time.UTC)
	fields := store.TaskFields{
		Title:       "Install security patch v2",
		Description: "rolled",
		Importance:  domain.ImportanceHigh,
		Status:      domain.StatusFailed,
		LastTriedAt: &tried,
		TriesCount:  4,
		Errors:      []string{"Device is busy", "Network timeout"},
	}
	require.NoError(t, s.UpdateFields(ctx, task.ID, fields))

	got, err := s.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Install security patch v2", got.Title)
	assert.Equal(t, "rolled", got.Description)
	assert.Equal(t, domain.ImportanceHigh, got.Importance)
	assert.Equal(t, domain.StatusFailed, got.Status)
	require.NotNil(t, got.LastTriedAt)
	assert.True(t, tried.Equal(*got.LastTriedAt))
	assert.Equal(t, 4, got.TriesCount)
	assert.Nil(t, got.DoneAt)
	assert.Equal(t, []string{"Device is busy", "Network timeout"}, got.Errors)
	assert.True(t, task.CreatedAt.Equal(got.CreatedAt), "createdAt is immutable")
	assert.Equal(t, []domain.Msg{msg}, got.Msgs, "msgs are untouched by field updates")

	err = s.UpdateFields(ctx, uuid.New(), fields)
	assert.ErrorIs(t, err, store.ErrTaskNotFound)

	fields.Status = "paused"
	assert.ErrorIs(t, s.UpdateFields(ctx, task.ID, fields), store.ErrInvalidEntity)
}

func testDeleteAndCount(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask(t, "Remove inactive users", domain.ImportanceLow, domain.StatusNew, 0)
	require.NoError(t, s.Create(ctx, task))

	count, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	deleted, err := s.Delete(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	deleted, err = s.Delete(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)

	count, err = s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func testMsgs(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask(t, "Monitor network traffic", domain.ImportanceMedium, domain.StatusNew, 0)
	require.NoError(t, s.Create(ctx, task))

	first, _ := domain.NewMsg("first", "ann")
	second, _ := domain.NewMsg("second", "bob")
	require.NoError(t, s.AppendMsg(ctx, task.ID, first))
	require.NoError(t, s.AppendMsg(ctx, task.ID, second))

	got, err := s.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Msg{first, second}, got.Msgs)

	require.NoError(t, s.RemoveMsg(ctx, task.ID, first.ID))
	got, err = s.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, []domain.Msg{second}, got.Msgs)

	assert.ErrorIs(t, s.RemoveMsg(ctx, task.ID, first.ID), store.ErrMsgNotFound)
	assert.ErrorIs(t, s.RemoveMsg(ctx, uuid.New(), second.ID), store.ErrTaskNotFound)
	assert.ErrorIs(t, s.AppendMsg(ctx, uuid.New(), first), store.ErrTaskNotFound)
}

func testConcurrentAppend(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask(t, "Archive completed projects", domain.ImportanceLow, domain.StatusNew, 0)
	require.NoError(t, s.Create(ctx, task))

	const writers = 8
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			msg, _ := domain.NewMsg("note", "worker")
			assert.NoError(t, s.AppendMsg(ctx, task.ID, msg))
		}()
	}
	wg.Wait()

	got, err := s.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Len(t, got.Msgs, writers)
}

func testCopies(t *testing.T, s store.TaskStore) {
	ctx := context.Background()
	task := NewTask(t, "Generate monthly reports", domain.ImportanceLow, domain.StatusNew, 0)
	require.NoError(t, s.Create(ctx, task))

	task.Title = "mutated after create"

	got, err := s.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, "Generate monthly reports", got.Title)

	got.Errors = append(got.Errors, "local only")
	again, err := s.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Errors)
}
