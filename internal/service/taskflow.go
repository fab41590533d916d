package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/hourstack/hourstack/internal/adapter/otel"
	"github.com/hourstack/hourstack/internal/adapter/ws"
	"github.com/hourstack/hourstack/internal/domain"
	"github.com/hourstack/hourstack/internal/domain/task"
	"github.com/hourstack/hourstack/internal/domain/usage"
	"github.com/hourstack/hourstack/internal/port/database"
	"github.com/hourstack/hourstack/internal/port/messagequeue"
)

// TaskService owns the task lifecycle: creation, the queued → in_progress →
// done state machine, and deletion. It enforces the one-active-task rule per
// client and books hours on completion.
type TaskService struct {
	store   database.Store
	usage   *UsageService
	events  *Publisher
	hub     Broadcaster
	metrics *otel.Metrics
}

// NewTaskService creates a TaskService. hub may be nil.
func NewTaskService(store database.Store, usageSvc *UsageService, events *Publisher, hub Broadcaster, metrics *otel.Metrics) *TaskService {
	if hub == nil {
		hub = noopBroadcaster{}
	}
	return &TaskService{
		store:   store,
		usage:   usageSvc,
		events:  events,
		hub:     hub,
		metrics: metrics,
	}
}

// List returns tasks, optionally filtered by client and status, in display
// order: priority rank descending, then position ascending.
func (s *TaskService) List(ctx context.Context, clientID string, status task.Status) ([]task.Task, error) {
	if status != "" && !task.ValidStatuses[status] {
		return nil, domain.Validationf("invalid status %q", status)
	}

	tasks, err := s.store.ListTasks(ctx, clientID, status)
	if err != nil {
		return nil, err
	}
	task.SortForDisplay(tasks)
	return tasks, nil
}

// Get returns a single task by ID.
func (s *TaskService) Get(ctx context.Context, id string) (*task.Task, error) {
	return s.store.GetTask(ctx, id)
}

// Create submits a new task. Status defaults to queued; a task created
// directly as in_progress is subject to the one-active rule, and a task
// created as done gets its completion timestamp immediately.
func (s *TaskService) Create(ctx context.Context, req task.CreateRequest) (*task.Task, error) {
	if req.ClientID == "" {
		return nil, domain.Validationf("client_id is required")
	}
	if req.Title == "" {
		return nil, domain.Validationf("title is required")
	}
	if req.Priority == "" {
		req.Priority = task.PriorityMedium
	} else if !task.ValidPriorities[req.Priority] {
		return nil, domain.Validationf("invalid priority %q", req.Priority)
	}
	if req.Status == "" {
		req.Status = task.StatusQueued
	} else if !task.ValidStatuses[req.Status] {
		return nil, domain.Validationf("invalid status %q", req.Status)
	}
	if req.EstHours != nil && *req.EstHours < 0 {
		return nil, domain.Validationf("est_hours must not be negative")
	}

	if req.Status == task.StatusInProgress {
		if err := s.checkActiveSlot(ctx, req.ClientID, ""); err != nil {
			return nil, err
		}
	}

	var completedAt *time.Time
	if req.Status == task.StatusDone {
		now := time.Now().UTC()
		completedAt = &now
	}

	created, err := s.store.CreateTask(ctx, req, completedAt)
	if err != nil {
		return nil, s.translateConflict(ctx, req.ClientID, err)
	}

	if created.Status == task.StatusDone {
		s.bookCompletion(ctx, created)
	}

	s.fanOut(ctx, created, "created")
	return created, nil
}

// Update applies a partial update. A status change runs through the state
// machine: entering in_progress is checked against the one-active rule,
// entering done stamps completed_at and books hours against the client's
// capacity, and leaving done clears the completion timestamp.
func (s *TaskService) Update(ctx context.Context, id string, req task.UpdateRequest) (*task.Task, error) {
	if req.Empty() {
		return nil, domain.Validationf("update carries no fields")
	}
	if req.Priority != nil && !task.ValidPriorities[*req.Priority] {
		return nil, domain.Validationf("invalid priority %q", *req.Priority)
	}
	if req.Status != nil && !task.ValidStatuses[*req.Status] {
		return nil, domain.Validationf("invalid status %q", *req.Status)
	}
	if req.Title != nil && *req.Title == "" {
		return nil, domain.Validationf("title must not be empty")
	}
	if req.EstHours != nil && *req.EstHours < 0 {
		return nil, domain.Validationf("est_hours must not be negative")
	}
	if req.HoursSpent != nil && *req.HoursSpent < 0 {
		return nil, domain.Validationf("hours_spent must not be negative")
	}

	current, err := s.store.GetTask(ctx, id)
	if err != nil {
		return nil, err
	}

	ch := database.TaskChanges{
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		EstHours:      req.EstHours,
		HoursSpent:    req.HoursSpent,
		AssignedDevID: req.AssignedDevID,
	}

	completing := false
	if req.Status != nil && *req.Status != current.Status {
		ch.Status = req.Status

		switch *req.Status {
		case task.StatusInProgress:
			if err := s.checkActiveSlot(ctx, current.ClientID, id); err != nil {
				return nil, err
			}
		case task.StatusDone:
			now := time.Now().UTC()
			ts := &now
			ch.CompletedAt = &ts
			completing = true
		}
		if current.Status == task.StatusDone && *req.Status != task.StatusDone {
			var cleared *time.Time
			ch.CompletedAt = &cleared
		}
	}

	updated, err := s.store.UpdateTask(ctx, id, ch)
	if err != nil {
		return nil, s.translateConflict(ctx, current.ClientID, err)
	}

	if completing {
		s.bookCompletion(ctx, updated)
	}

	s.fanOut(ctx, updated, "updated")
	return updated, nil
}

// Delete removes a task. Ledger entries referencing it are preserved with
// their task link cleared by the store's foreign key action.
func (s *TaskService) Delete(ctx context.Context, id string) error {
	t, err := s.store.GetTask(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteTask(ctx, id); err != nil {
		return err
	}
	s.fanOut(ctx, t, "deleted")
	return nil
}

// checkActiveSlot returns a ConflictError naming the blocking task when the
// client already has an in_progress task other than excludeID. The partial
// unique index remains the authoritative guard; this pre-check only exists
// to name the blocker in the error.
func (s *TaskService) checkActiveSlot(ctx context.Context, clientID, excludeID string) error {
	active, err := s.store.ActiveTask(ctx, clientID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return err
	}
	if active.ID == excludeID {
		return nil
	}
	return &domain.ConflictError{BlockingTaskID: active.ID, BlockingTaskTitle: active.Title}
}

// translateConflict upgrades a bare index-violation conflict to a named
// ConflictError when the blocking task can still be identified.
func (s *TaskService) translateConflict(ctx context.Context, clientID string, err error) error {
	var conflict *domain.ConflictError
	if errors.As(err, &conflict) || !errors.Is(err, domain.ErrConflict) {
		return err
	}
	active, lookupErr := s.store.ActiveTask(ctx, clientID)
	if lookupErr != nil {
		return err
	}
	return &domain.ConflictError{BlockingTaskID: active.ID, BlockingTaskTitle: active.Title}
}

// bookCompletion appends the task's hours to the usage ledger after a
// transition to done. The value comes from hours_spent, falling back to the
// estimate, then to one hour. Failures are logged and counted, never
// surfaced: the completion itself has already committed.
func (s *TaskService) bookCompletion(ctx context.Context, t *task.Task) {
	hours := 1.0
	switch {
	case t.HoursSpent != nil:
		hours = *t.HoursSpent
	case t.EstHours != nil:
		hours = *t.EstHours
	}
	if hours <= 0 {
		return
	}

	// hours_spent already carries this value, so the task cache must not
	// be incremented again.
	_, err := s.store.AppendUsage(ctx, usage.AppendRequest{
		ClientID: t.ClientID,
		TaskID:   &t.ID,
		Hours:    hours,
	}, false)
	if err != nil {
		slog.Error("completion usage append failed",
			"task_id", t.ID,
			"client_id", t.ClientID,
			"hours", hours,
			"error", err,
		)
		s.metrics.RecordAppendFailure(ctx)
		return
	}

	s.metrics.RecordTaskCompleted(ctx)
	s.metrics.RecordHoursLogged(ctx, hours)
	s.usage.notifyChanged(ctx, t.ClientID)
}

// fanOut broadcasts the change to dashboards and publishes it on the queue.
func (s *TaskService) fanOut(ctx context.Context, t *task.Task, action string) {
	payload := messagequeue.TaskEventPayload{
		TaskID:   t.ID,
		ClientID: t.ClientID,
		Status:   string(t.Status),
		Title:    t.Title,
		Action:   action,
	}
	s.hub.BroadcastEvent(ctx, ws.EventTaskChanged, payload)
	s.events.Publish(ctx, messagequeue.SubjectTaskEvents, payload)
}
