package postgres

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hourstack/hourstack/internal/domain"
	"github.com/hourstack/hourstack/internal/domain/client"
	"github.com/hourstack/hourstack/internal/domain/task"
	"github.com/hourstack/hourstack/internal/domain/usage"
)

// uniqueViolation is the SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

// singleActiveIndex is the partial unique index enforcing at most one
// in_progress task per client.
const singleActiveIndex = "uq_tasks_one_active"

// translateErr maps low-level pg errors onto domain sentinels. A violation
// of the single-active index becomes ErrConflict so the service layer can
// attach the blocking task; other unique violations also conflict.
func translateErr(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return domain.ErrConflict
	}
	return err
}

// isSingleActiveViolation reports whether err is specifically a violation
// of the one-active-task index.
func isSingleActiveViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == uniqueViolation &&
		pgErr.ConstraintName == singleActiveIndex
}

func scanClient(row pgx.Row) (client.Client, error) {
	var c client.Client
	var customerRef *string
	err := row.Scan(&c.ID, &c.Name, &c.PlanCode, &c.HoursMonthly, &c.HoursUsedMonth,
		&c.CycleStart, &customerRef, &c.CreatedAt, &c.UpdatedAt)
	if customerRef != nil {
		c.PaymentCustomerRef = *customerRef
	}
	return c, err
}

func scanTask(row pgx.Row) (task.Task, error) {
	var t task.Task
	err := row.Scan(&t.ID, &t.ClientID, &t.Title, &t.Description, &t.Priority, &t.Status,
		&t.EstHours, &t.HoursSpent, &t.AssignedDevID, &t.Position, &t.CreatedAt, &t.CompletedAt)
	return t, err
}

func scanUsageEntry(row pgx.Row) (usage.LogEntry, error) {
	var e usage.LogEntry
	err := row.Scan(&e.ID, &e.ClientID, &e.TaskID, &e.Hours, &e.LoggedBy, &e.LoggedAt)
	return e, err
}
