package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/phrazzld/taskdeck-api/internal/domain"
	"github.com/phrazzld/taskdeck-api/internal/platform/logger"
	"github.com/phrazzld/taskdeck-api/internal/store"
)

const taskColumns = `id, title, description, importance, status, created_at,
	last_tried_at, tries_count, done_at, errors, msgs`

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the TaskStore interface.
// It accepts a database connection or transaction that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx returns a store that runs every statement inside tx.
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		status      string
		importance  int
		lastTriedAt sql.NullTime
		doneAt      sql.NullTime
		errorsJSON  []byte
		msgsJSON    []byte
	)

	err := row.Scan(
		&task.ID,
		&task.Title,
		&task.Description,
		&importance,
		&status,
		&task.CreatedAt,
		&lastTriedAt,
		&task.TriesCount,
		&doneAt,
		&errorsJSON,
		&msgsJSON,
	)
	if err != nil {
		return nil, err
	}

	task.Status = domain.Status(status)
	task.Importance = domain.Importance(importance)
	task.CreatedAt = task.CreatedAt.UTC()
	if lastTriedAt.Valid {
		t := lastTriedAt.Time.UTC()
		task.LastTriedAt = &t
	}
	if doneAt.Valid {
		t := doneAt.Time.UTC()
		task.DoneAt = &t
	}

	if err := json.Unmarshal(errorsJSON, &task.Errors); err != nil {
		return nil, fmt.Errorf("failed to decode errors column: %w", err)
	}
	if err := json.Unmarshal(msgsJSON, &task.Msgs); err != nil {
		return nil, fmt.Errorf("failed to decode msgs column: %w", err)
	}
	if task.Errors == nil {
		task.Errors = []string{}
	}
	if task.Msgs == nil {
		task.Msgs = []domain.Msg{}
	}

	return &task, nil
}

func encodeList[T any](list []T) (string, error) {
	if list == nil {
		list = []T{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// escapeLike escapes LIKE metacharacters so the text is matched literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// buildFindQuery translates criteria into a SELECT with positional args.
func buildFindQuery(criteria store.Criteria) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	next := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	if criteria.TitleContains != "" {
		clauses = append(clauses,
			"title ILIKE "+next("%"+escapeLike(criteria.TitleContains)+"%"))
	}

	if len(criteria.Statuses) > 0 {
		statuses := make([]string, len(criteria.Statuses))
		for i, s := range criteria.Statuses {
			statuses[i] = string(s)
		}
		clauses = append(clauses, "status = ANY("+next(statuses)+")")
	}

	if len(criteria.Importances) > 0 {
		importances := make([]int32, len(criteria.Importances))
		for i, imp := range criteria.Importances {
			importances[i] = int32(imp)
		}
		clauses = append(clauses, "importance = ANY("+next(importances)+")")
	}

	query := "SELECT " + taskColumns + " FROM tasks"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at ASC, id ASC"

	return query, args
}

// Find implements store.TaskStore.Find
func (s *PostgresTaskStore) Find(ctx context.Context, criteria store.Criteria) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query, args := buildFindQuery(criteria)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks", slog.String("error", err.Error()))
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row", slog.String("error", err.Error()))
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		log.Error("error iterating task rows", slog.String("error", err.Error()))
		return nil, MapError(err)
	}

	log.Debug("tasks queried", slog.Int("count", len(tasks)))
	return tasks, nil
}

// GetByID implements store.TaskStore.GetByID
// Returns store.ErrTaskNotFound if the task does not exist.
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	query := "SELECT " + taskColumns + " FROM tasks WHERE id = $1"

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		mapped := MapError(err)
		if store.IsNotFoundError(mapped) {
			log.Debug("task not found", slog.String("task_id", id.String()))
		} else {
			log.Error("failed to get task",
				slog.String("error", err.Error()),
				slog.String("task_id", id.String()))
		}
		return nil, mapped
	}

	return task, nil
}

// Create implements store.TaskStore.Create
// Returns store.ErrInvalidEntity if the task fails validation and
// store.ErrDuplicate if a task with the same ID exists.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	errorsJSON, err := encodeList(task.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode errors: %w", err)
	}
	msgsJSON, err := encodeList(task.Msgs)
	if err != nil {
		return fmt.Errorf("failed to encode msgs: %w", err)
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10::jsonb, $11::jsonb)
	`
	_, err = s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.Title,
		task.Description,
		int(task.Importance),
		string(task.Status),
		task.CreatedAt,
		task.LastTriedAt,
		task.TriesCount,
		task.DoneAt,
		errorsJSON,
		msgsJSON,
	)
	if err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return MapError(err)
	}

	log.Debug("task created", slog.String("task_id", task.ID.String()))
	return nil
}

// CreateMultiple implements store.TaskStore.CreateMultiple
// When the store is bound to a *sql.DB the inserts run in a new transaction;
// when it is already bound to a transaction they join it.
func (s *PostgresTaskStore) CreateMultiple(ctx context.Context, tasks []*domain.Task) error {
	insertAll := func(st *PostgresTaskStore) error {
		for _, task := range tasks {
			if err := st.Create(ctx, task); err != nil {
				return err
			}
		}
		return nil
	}

	db, ok := s.db.(*sql.DB)
	if !ok {
		return insertAll(s)
	}

	return store.RunInTransaction(ctx, db, func(ctx context.Context, tx *sql.Tx) error {
		return insertAll(s.WithTx(tx).(*PostgresTaskStore))
	})
}

// UpdateFields implements store.TaskStore.UpdateFields
// The whole field set is written by a single UPDATE statement.
func (s *PostgresTaskStore) UpdateFields(ctx context.Context, id uuid.UUID, fields store.TaskFields) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	probe := &domain.Task{ID: id}
	fields.Apply(probe)
	if err := probe.Validate(); err != nil {
		log.Warn("task validation failed during update",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return fmt.Errorf("%w: %w", store.ErrInvalidEntity, err)
	}

	errorsJSON, err := encodeList(fields.Errors)
	if err != nil {
		return fmt.Errorf("failed to encode errors: %w", err)
	}

	query := `
		UPDATE tasks
		SET title = $1,
			description = $2,
			importance = $3,
			status = $4,
			last_tried_at = $5,
			tries_count = $6,
			done_at = $7,
			errors = $8::jsonb
		WHERE id = $9
	`
	result, err := s.db.ExecContext(
		ctx,
		query,
		fields.Title,
		fields.Description,
		int(fields.Importance),
		string(fields.Status),
		fields.LastTriedAt,
		fields.TriesCount,
		fields.DoneAt,
		errorsJSON,
		id,
	)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	if err := CheckRowsAffected(result, store.ErrTaskNotFound); err != nil {
		return err
	}

	log.Debug("task updated",
		slog.String("task_id", id.String()),
		slog.String("status", string(fields.Status)),
		slog.Int("tries_count", fields.TriesCount))
	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return 0, MapError(err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	log.Debug("task delete executed",
		slog.String("task_id", id.String()),
		slog.Int64("deleted", deleted))
	return deleted, nil
}

// Count implements store.TaskStore.Count
func (s *PostgresTaskStore) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM tasks").Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// AppendMsg implements store.TaskStore.AppendMsg
func (s *PostgresTaskStore) AppendMsg(ctx context.Context, id uuid.UUID, msg domain.Msg) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	msgJSON, err := encodeList([]domain.Msg{msg})
	if err != nil {
		return fmt.Errorf("failed to encode msg: %w", err)
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET msgs = msgs || $1::jsonb WHERE id = $2",
		msgJSON, id)
	if err != nil {
		log.Error("failed to append task msg",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	return CheckRowsAffected(result, store.ErrTaskNotFound)
}

// AppendMsg and RemoveMsg rewrite the msgs array in one statement so that
// concurrent edits to the list never overwrite each other.
const removeMsgQuery = `
	UPDATE tasks
	SET msgs = COALESCE(
		(SELECT jsonb_agg(m ORDER BY ord)
		 FROM jsonb_array_elements(msgs) WITH ORDINALITY AS e(m, ord)
		 WHERE m->>'id' <> $1),
		'[]'::jsonb)
	WHERE id = $2 AND msgs @> $3::jsonb
`

// RemoveMsg implements store.TaskStore.RemoveMsg
func (s *PostgresTaskStore) RemoveMsg(ctx context.Context, id uuid.UUID, msgID string) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	containsJSON, err := json.Marshal([]map[string]string{{"id": msgID}})
	if err != nil {
		return fmt.Errorf("failed to encode msg id: %w", err)
	}

	result, err := s.db.ExecContext(ctx, removeMsgQuery, msgID, id, string(containsJSON))
	if err != nil {
		log.Error("failed to remove task msg",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	var exists bool
	err = s.db.QueryRowContext(ctx, "SELECT EXISTS(SELECT 1 FROM tasks WHERE id = $1)", id).Scan(&exists)
	if err != nil {
		return MapError(err)
	}
	if !exists {
		return store.ErrTaskNotFound
	}
	return store.ErrMsgNotFound
}
