// Package database defines the database store port (interface).
package database

import (
	"context"
	"time"

	"github.com/hourstack/hourstack/internal/domain/client"
	"github.com/hourstack/hourstack/internal/domain/task"
	"github.com/hourstack/hourstack/internal/domain/usage"
)

// TaskChanges is the set of column writes a transition resolves to. Nil
// fields are left untouched. The store must apply all of them as a single
// atomic statement so the partial unique index on active tasks can close
// the check-then-set race.
type TaskChanges struct {
	Title         *string
	Description   *string
	Priority      *task.Priority
	Status        *task.Status
	EstHours      *float64
	HoursSpent    *float64
	AssignedDevID **string
	CompletedAt   **time.Time
}

// Store is the port interface for database operations.
type Store interface {
	// Clients
	ListClients(ctx context.Context) ([]client.Client, error)
	GetClient(ctx context.Context, id string) (*client.Client, error)
	GetClientByCustomerRef(ctx context.Context, ref string) (*client.Client, error)
	CreateClient(ctx context.Context, req client.CreateRequest) (*client.Client, error)
	// SetClientPlan unconditionally sets plan_code and hours_monthly.
	SetClientPlan(ctx context.Context, id, planCode string, hoursMonthly float64) error
	// ResetClientCycle sets hours_used_month = 0 and cycle_start = day.
	ResetClientCycle(ctx context.Context, id string, day time.Time) error
	// ResetDueCycles resets every client whose cycle_start is on or before
	// day and returns the affected client ids.
	ResetDueCycles(ctx context.Context, day time.Time) ([]string, error)

	// Tasks
	ListTasks(ctx context.Context, clientID string, status task.Status) ([]task.Task, error)
	GetTask(ctx context.Context, id string) (*task.Task, error)
	// ActiveTask returns the client's in_progress task, or ErrNotFound.
	ActiveTask(ctx context.Context, clientID string) (*task.Task, error)
	CreateTask(ctx context.Context, req task.CreateRequest, completedAt *time.Time) (*task.Task, error)
	// UpdateTask applies changes atomically and returns the updated row.
	// A violation of the single-active index surfaces as ErrConflict.
	UpdateTask(ctx context.Context, id string, ch TaskChanges) (*task.Task, error)
	DeleteTask(ctx context.Context, id string) error
	// ReorderTasks rewrites positions in one transaction after verifying
	// every task belongs to the (client, status) partition. A failed
	// verification surfaces as ErrValidation with zero side effects.
	ReorderTasks(ctx context.Context, req task.ReorderRequest) error

	// Usage ledger
	// AppendUsage inserts the entry and increments the client's cached
	// hours_used_month in the same transaction. When incrementTaskHours
	// is true and the entry references a task, that task's cached
	// hours_spent is incremented as well.
	AppendUsage(ctx context.Context, req usage.AppendRequest, incrementTaskHours bool) (*usage.LogEntry, error)
	// CycleHours sums ledger hours for entries with logged_at inside
	// [from, to).
	CycleHours(ctx context.Context, clientID string, from, to time.Time) (float64, error)
	ListUsage(ctx context.Context, clientID string, from, to time.Time) ([]usage.LogEntry, error)
}
