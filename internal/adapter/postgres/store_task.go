package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/hourstack/hourstack/internal/domain"
	"github.com/hourstack/hourstack/internal/domain/task"
	"github.com/hourstack/hourstack/internal/port/database"
)

const taskColumns = `id, client_id, title, description, priority, status, est_hours, hours_spent, assigned_dev_id, position, created_at, completed_at`

// nextPosition appends to the end of a (client, status) partition.
const nextPosition = `(SELECT COALESCE(MAX(t2.position) + 1, 0) FROM tasks t2 WHERE t2.client_id = $1 AND t2.status = $2)`

func (s *Store) ListTasks(ctx context.Context, clientID string, status task.Status) ([]task.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	var args []any
	switch {
	case clientID != "" && status != "":
		query += ` WHERE client_id = $1 AND status = $2`
		args = append(args, clientID, status)
	case clientID != "":
		query += ` WHERE client_id = $1`
		args = append(args, clientID)
	case status != "":
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	defer rows.Close()

	var tasks []task.Task
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE id = $1`, id)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("get task %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

func (s *Store) ActiveTask(ctx context.Context, clientID string) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+taskColumns+` FROM tasks WHERE client_id = $1 AND status = 'in_progress'`, clientID)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("active task for client %s: %w", clientID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("active task for client %s: %w", clientID, err)
	}
	return &t, nil
}

// CreateTask inserts a task at the end of its (client, status) partition.
// completedAt is non-nil only when the task is created directly as done.
// A concurrent in_progress insert for the same client trips the
// single-active index and surfaces as ErrConflict.
func (s *Store) CreateTask(ctx context.Context, req task.CreateRequest, completedAt *time.Time) (*task.Task, error) {
	row := s.pool.QueryRow(ctx,
		`INSERT INTO tasks (client_id, title, description, priority, status, est_hours, assigned_dev_id, position, completed_at)
		 VALUES ($1, $3, $4, $5, $2, $6, $7, `+nextPosition+`, $8)
		 RETURNING `+taskColumns,
		req.ClientID, req.Status, req.Title, req.Description, req.Priority,
		req.EstHours, req.AssignedDevID, completedAt)

	t, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", translateErr(err))
	}
	return &t, nil
}

// UpdateTask applies the changes as one atomic statement. Columns with nil
// change pointers keep their value. A status change re-appends the task at
// the end of the target partition so positions stay unique there.
func (s *Store) UpdateTask(ctx context.Context, id string, ch database.TaskChanges) (*task.Task, error) {
	var (
		applyEst, applySpent, applyDev, applyCompleted bool
		estVal, spentVal                               *float64
		devVal                                         *string
		completedVal                                   *time.Time
	)
	if ch.EstHours != nil {
		applyEst, estVal = true, ch.EstHours
	}
	if ch.HoursSpent != nil {
		applySpent, spentVal = true, ch.HoursSpent
	}
	if ch.AssignedDevID != nil {
		applyDev, devVal = true, *ch.AssignedDevID
	}
	if ch.CompletedAt != nil {
		applyCompleted, completedVal = true, *ch.CompletedAt
	}

	row := s.pool.QueryRow(ctx,
		`UPDATE tasks SET
		    title        = COALESCE($2, title),
		    description  = COALESCE($3, description),
		    priority     = COALESCE($4, priority),
		    est_hours    = CASE WHEN $5::boolean THEN $6 ELSE est_hours END,
		    hours_spent  = CASE WHEN $7::boolean THEN $8 ELSE hours_spent END,
		    assigned_dev_id = CASE WHEN $9::boolean THEN $10::uuid ELSE assigned_dev_id END,
		    completed_at = CASE WHEN $11::boolean THEN $12 ELSE completed_at END,
		    position     = CASE WHEN $13::text IS NOT NULL AND $13 <> status
		                        THEN (SELECT COALESCE(MAX(t2.position) + 1, 0) FROM tasks t2
		                              WHERE t2.client_id = tasks.client_id AND t2.status = $13)
		                        ELSE position END,
		    status       = COALESCE($13, status)
		 WHERE id = $1
		 RETURNING `+taskColumns,
		id, ch.Title, ch.Description, ch.Priority,
		applyEst, estVal, applySpent, spentVal, applyDev, devVal,
		applyCompleted, completedVal, ch.Status)

	t, err := scanTask(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("update task %s: %w", id, domain.ErrNotFound)
		}
		if isSingleActiveViolation(err) {
			return nil, fmt.Errorf("update task %s: %w", id, domain.ErrConflict)
		}
		return nil, fmt.Errorf("update task %s: %w", id, translateErr(err))
	}
	return &t, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("delete task %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ReorderTasks rewrites positions for one (client, status) partition in a
// single transaction. Every referenced task is locked and checked for
// partition membership first; any mismatch aborts the whole batch with
// zero side effects. The deferred unique constraint on positions is
// checked at commit.
func (s *Store) ReorderTasks(ctx context.Context, req task.ReorderRequest) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("reorder begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	ids := make([]string, len(req.Order))
	for i, o := range req.Order {
		ids[i] = o.ID
	}

	rows, err := tx.Query(ctx,
		`SELECT id FROM tasks
		 WHERE id = ANY($1) AND client_id = $2 AND status = $3
		 FOR UPDATE`, ids, req.ClientID, req.Status)
	if err != nil {
		return fmt.Errorf("reorder lock: %w", err)
	}
	matched := make(map[string]bool, len(ids))
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return fmt.Errorf("reorder scan: %w", err)
		}
		matched[id] = true
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reorder lock: %w", err)
	}

	for _, id := range ids {
		if !matched[id] {
			return fmt.Errorf("task %s is not a %s task of client %s: %w",
				id, req.Status, req.ClientID, domain.ErrValidation)
		}
	}

	batch := &pgx.Batch{}
	for _, o := range req.Order {
		batch.Queue(`UPDATE tasks SET position = $2 WHERE id = $1`, o.ID, o.Position)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("reorder write: %w", translateErr(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("reorder commit: %w", translateErr(err))
	}
	return nil
}
