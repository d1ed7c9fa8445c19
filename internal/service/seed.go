package service

import (
	"math/rand/v2"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/executor"
)

// SeedCount is the number of sample tasks created by Seed.
const SeedCount = 12

var seedTitles = []string{
	"Delete old files",
	"Update system drivers",
	"Install security patch",
	"Backup database",
	"Optimize database performance",
	"Clear cache",
	"Archive completed projects",
	"Generate monthly reports",
	"Check system logs",
	"Run antivirus scan",
	"Restart server",
	"Install software updates",
	"Remove inactive users",
	"Monitor network traffic",
	"Clean temporary files",
}

var seedCreatedDates = []string{
	"2023-01-15", "2023-05-22", "2022-07-10", "2022-10-18", "2023-09-05",
	"2022-04-30", "2023-03-12", "2023-07-28", "2022-11-11", "2023-08-01",
}

// seedStatuses omits running: a running state is never stored.
var seedStatuses = []domain.Status{domain.StatusNew, domain.StatusDone, domain.StatusFailed}

// Rand is the randomness used to generate sample data.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// SampleTasks generates n sample tasks. The generated history is
// consistent: new tasks were never tried, done tasks carry doneAt and
// failed tasks carry at least one error.
func SampleTasks(r Rand, n int) []*domain.Task {
	tasks := make([]*domain.Task, 0, n)
	for i := 0; i < n; i++ {
		created, _ := time.Parse(time.DateOnly, seedCreatedDates[r.IntN(len(seedCreatedDates))])

		task := &domain.Task{
			ID:          uuid.New(),
			Title:       seedTitles[r.IntN(len(seedTitles))],
			Description: "",
			Importance:  domain.Importance(1 + r.IntN(3)),
			Status:      seedStatuses[r.IntN(len(seedStatuses))],
			CreatedAt:   created.UTC(),
			Errors:      []string{},
			Msgs:        []domain.Msg{},
		}

		if task.Status != domain.StatusNew {
			task.TriesCount = 1 + r.IntN(10)
			tried := created.AddDate(0, 0, 1+r.IntN(60)).UTC()
			task.LastTriedAt = &tried

			failures := task.TriesCount
			if task.Status == domain.StatusDone {
				failures--
				done := tried
				task.DoneAt = &done
			}
			task.Errors = pickErrors(r, min(failures, 3))
		}

		tasks = append(tasks, task)
	}
	return tasks
}

func pickErrors(r Rand, n int) []string {
	errs := make([]string, 0, n)
	for i := 0; i < n; i++ {
		errs = append(errs, executor.FailureMessages[r.IntN(len(executor.FailureMessages))])
	}
	return errs
}
