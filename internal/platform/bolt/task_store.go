// Package bolt implements store.TaskStore on top of an embedded bbolt
// database file. Tasks are stored as JSON documents keyed by their ID, which
// makes it a single-binary alternative to the postgres backend.
package bolt

import (
	"cmp"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/store"
	bbolt "go.etcd.io/bbolt"
)

var tasksBucket = []byte("tasks")

// record is the stored document. Seq breaks ties between tasks created at
// the same instant so that Find ordering is stable.
type record struct {
	Seq  uint64       `json:"seq"`
	Task *domain.Task `json:"task"`
}

// TaskStore persists tasks in a bbolt database.
type TaskStore struct {
	db     *bbolt.DB
	logger *slog.Logger
}

var _ store.TaskStore = (*TaskStore)(nil)

// Open opens (creating if needed) the database file at path.
func Open(path string, logger *slog.Logger) (*TaskStore, error) {
	if logger == nil {
		logger = slog.Default()
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt database %s: %w", path, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(tasksBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize bolt database: %w", err)
	}

	return &TaskStore{
		db:     db,
		logger: logger.With("component", "bolt_task_store"),
	}, nil
}

// Close releases the database file.
func (s *TaskStore) Close() error {
	return s.db.Close()
}

func key(id uuid.UUID) []byte {
	return id[:]
}

func readRecord(b *bbolt.Bucket, id uuid.UUID) (*record, error) {
	data := b.Get(key(id))
	if data == nil {
		return nil, store.ErrTaskNotFound
	}
	var rec record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, store.NewStoreError("task", "decode", "corrupt task document", err)
	}
	return &rec, nil
}

func writeRecord(b *bbolt.Bucket, rec *record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return store.NewStoreError("task", "encode", "failed to encode task", err)
	}
	return b.Put(key(rec.Task.ID), data)
}

// Find implements store.TaskStore.
func (s *TaskStore) Find(ctx context.Context, criteria store.Criteria) ([]*domain.Task, error) {
	var matched []record

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(tasksBucket).ForEach(func(_, v []byte) error {
			var rec record
			if err := json.Unmarshal(v, &rec); err != nil {
				return store.NewStoreError("task", "decode", "corrupt task document", err)
			}
			if criteria.Matches(rec.Task) {
				matched = append(matched, rec)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matched, func(a, b record) int {
		if c := a.Task.CreatedAt.Compare(b.Task.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.Seq, b.Seq)
	})

	tasks := make([]*domain.Task, 0, len(matched))
	for _, rec := range matched {
		tasks = append(tasks, rec.Task.Clone())
	}
	return tasks, nil
}

// GetByID implements store.TaskStore.
func (s *TaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task *domain.Task
	err := s.db.View(func(tx *bbolt.Tx) error {
		rec, err := readRecord(tx.Bucket(tasksBucket), id)
		if err != nil {
			return err
		}
		task = rec.Task.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Create implements store.TaskStore.
func (s *TaskStore) Create(ctx context.Context, task *domain.Task) error {
	return s.CreateMultiple(ctx, []*domain.Task{task})
}

// CreateMultiple implements store.TaskStore. All tasks are written in one
// bbolt transaction.
func (s *TaskStore) CreateMultiple(ctx context.Context, tasks []*domain.Task) error {
	for _, task := range tasks {
		if err := task.Validate(); err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tasksBucket)
		for _, task := range tasks {
			if b.Get(key(task.ID)) != nil {
				return fmt.Errorf("%w: task %s", store.ErrDuplicate, task.ID)
			}
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			if err := writeRecord(b, &record{Seq: seq, Task: task.Clone()}); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.DebugContext(ctx, "tasks created", slog.Int("count", len(tasks)))
	return nil
}

// update applies fn to the stored record inside a write transaction.
func (s *TaskStore) update(id uuid.UUID, fn func(rec *record) error) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tasksBucket)
		rec, err := readRecord(b, id)
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		return writeRecord(b, rec)
	})
}

// UpdateFields implements store.TaskStore.
func (s *TaskStore) UpdateFields(ctx context.Context, id uuid.UUID, fields store.TaskFields) error {
	return s.update(id, func(rec *record) error {
		fields.Apply(rec.Task)
		if err := rec.Task.Validate(); err != nil {
			return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
		}
		return nil
	})
}

// Delete implements store.TaskStore.
func (s *TaskStore) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	var deleted int64
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(tasksBucket)
		if b.Get(key(id)) == nil {
			return nil
		}
		deleted = 1
		return b.Delete(key(id))
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

// Count implements store.TaskStore.
func (s *TaskStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = int64(tx.Bucket(tasksBucket).Stats().KeyN)
		return nil
	})
	return n, err
}

// AppendMsg implements store.TaskStore.
func (s *TaskStore) AppendMsg(ctx context.Context, id uuid.UUID, msg domain.Msg) error {
	return s.update(id, func(rec *record) error {
		rec.Task.Msgs = append(rec.Task.Msgs, msg)
		return nil
	})
}

// RemoveMsg implements store.TaskStore.
func (s *TaskStore) RemoveMsg(ctx context.Context, id uuid.UUID, msgID string) error {
	return s.update(id, func(rec *record) error {
		idx := slices.IndexFunc(rec.Task.Msgs, func(m domain.Msg) bool { return m.ID == msgID })
		if idx < 0 {
			return store.ErrMsgNotFound
		}
		rec.Task.Msgs = slices.Delete(rec.Task.Msgs, idx, idx+1)
		return nil
	})
}
