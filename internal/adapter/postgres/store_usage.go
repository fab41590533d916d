package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hourstack/hourstack/internal/domain"
	"github.com/hourstack/hourstack/internal/domain/usage"
)

const usageColumns = `id, client_id, task_id, hours, logged_by, logged_at`

// AppendUsage inserts a ledger entry and refreshes the client's cached
// hours_used_month in the same transaction. The ledger stays the source of
// truth; the cache is an incremental snapshot of it. When
// incrementTaskHours is set and the entry references a task, the task's
// cached hours_spent is bumped as well.
func (s *Store) AppendUsage(ctx context.Context, req usage.AppendRequest, incrementTaskHours bool) (*usage.LogEntry, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("append usage begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	row := tx.QueryRow(ctx,
		`INSERT INTO usage_logs (client_id, task_id, hours, logged_by)
		 VALUES ($1, $2, $3, $4)
		 RETURNING `+usageColumns,
		req.ClientID, req.TaskID, req.Hours, req.LoggedBy)

	e, err := scanUsageEntry(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" { // foreign key
			return nil, fmt.Errorf("append usage: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("append usage: %w", err)
	}

	if _, err := tx.Exec(ctx,
		`UPDATE clients SET hours_used_month = hours_used_month + $2, updated_at = now() WHERE id = $1`,
		req.ClientID, req.Hours); err != nil {
		return nil, fmt.Errorf("append usage cache: %w", err)
	}

	if incrementTaskHours && req.TaskID != nil {
		if _, err := tx.Exec(ctx,
			`UPDATE tasks SET hours_spent = COALESCE(hours_spent, 0) + $2 WHERE id = $1`,
			*req.TaskID, req.Hours); err != nil {
			return nil, fmt.Errorf("append usage task hours: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("append usage commit: %w", err)
	}
	return &e, nil
}

// CycleHours sums ledger hours for entries logged inside [from, to).
func (s *Store) CycleHours(ctx context.Context, clientID string, from, to time.Time) (float64, error) {
	var total float64
	err := s.pool.QueryRow(ctx,
		`SELECT COALESCE(SUM(hours), 0) FROM usage_logs
		 WHERE client_id = $1 AND logged_at >= $2 AND logged_at < $3`,
		clientID, from, to).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("cycle hours for client %s: %w", clientID, err)
	}
	return total, nil
}

func (s *Store) ListUsage(ctx context.Context, clientID string, from, to time.Time) ([]usage.LogEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+usageColumns+` FROM usage_logs
		 WHERE client_id = $1 AND logged_at >= $2 AND logged_at < $3
		 ORDER BY logged_at DESC`,
		clientID, from, to)
	if err != nil {
		return nil, fmt.Errorf("list usage: %w", err)
	}
	defer rows.Close()

	var entries []usage.LogEntry
	for rows.Next() {
		e, err := scanUsageEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
