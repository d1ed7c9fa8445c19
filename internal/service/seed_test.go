package service

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleTasks_AreConsistent(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	tasks := SampleTasks(r, 200)
	require.Len(t, tasks, 200)

	for _, task := range tasks {
		require.NoError(t, task.Validate())
		assert.NotEqual(t, domain.StatusRunning, task.Status)
		assert.Contains(t, seedTitles, task.Title)
		assert.NotNil(t, task.Errors)
		assert.NotNil(t, task.Msgs)

		for _, e := range task.Errors {
			assert.True(t, slices.Contains(executor.FailureMessages, e))
		}

		switch task.Status {
		case domain.StatusNew:
			assert.Zero(t, task.TriesCount)
			assert.Nil(t, task.LastTriedAt)
			assert.Nil(t, task.DoneAt)
			assert.Empty(t, task.Errors)
		case domain.StatusDone:
			require.NotNil(t, task.DoneAt)
			require.NotNil(t, task.LastTriedAt)
			assert.Positive(t, task.TriesCount)
			assert.Less(t, len(task.Errors), task.TriesCount)
		case domain.StatusFailed:
			assert.Nil(t, task.DoneAt)
			require.NotNil(t, task.LastTriedAt)
			assert.True(t, task.LastTriedAt.After(task.CreatedAt))
			assert.NotEmpty(t, task.Errors)
			assert.LessOrEqual(t, len(task.Errors), task.TriesCount)
		}
	}
}

func TestSampleTasks_Deterministic(t *testing.T) {
	a := SampleTasks(rand.New(rand.NewPCG(7, 7)), SeedCount)
	b := SampleTasks(rand.New(rand.NewPCG(7, 7)), SeedCount)

	for i := range a {
		assert.Equal(t, a[i].Title, b[i].Title)
		assert.Equal(t, a[i].Status, b[i].Status)
		assert.Equal(t, a[i].Errors, b[i].Errors)
	}
}
