package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hourstack/hourstack/internal/domain"
	"github.com/hourstack/hourstack/internal/domain/client"
	"github.com/hourstack/hourstack/internal/domain/task"
	"github.com/hourstack/hourstack/internal/domain/usage"
	"github.com/hourstack/hourstack/internal/port/database"
)

// fakeStore is an in-memory database.Store used by the service tests. It
// mirrors the storage invariants the real store enforces: one active task
// per client, appended positions, and atomic reorder batches.
type fakeStore struct {
	mu      sync.Mutex
	clients map[string]*client.Client
	tasks   map[string]*task.Task
	entries []usage.LogEntry
	nextID  int

	appendErr error // forced failure for AppendUsage
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		clients: make(map[string]*client.Client),
		tasks:   make(map[string]*task.Task),
	}
}

func (f *fakeStore) id(prefix string) string {
	f.nextID++
	return fmt.Sprintf("%s-%d", prefix, f.nextID)
}

func (f *fakeStore) addClient(hoursMonthly float64, customerRef string) *client.Client {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &client.Client{
		ID:                 f.id("client"),
		Name:               "Acme",
		PlanCode:           "starter",
		HoursMonthly:       hoursMonthly,
		CycleStart:         time.Now().UTC().Truncate(24 * time.Hour),
		PaymentCustomerRef: customerRef,
	}
	f.clients[c.ID] = c
	return c
}

func (f *fakeStore) ListClients(context.Context) ([]client.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]client.Client, 0, len(f.clients))
	for _, c := range f.clients {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) GetClient(_ context.Context, id string) (*client.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeStore) GetClientByCustomerRef(_ context.Context, ref string) (*client.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.clients {
		if c.PaymentCustomerRef == ref {
			cp := *c
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) CreateClient(_ context.Context, req client.CreateRequest) (*client.Client, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c := &client.Client{
		ID:                 f.id("client"),
		Name:               req.Name,
		PlanCode:           req.PlanCode,
		HoursMonthly:       req.HoursMonthly,
		CycleStart:         req.CycleStart,
		PaymentCustomerRef: req.PaymentCustomerRef,
	}
	f.clients[c.ID] = c
	cp := *c
	return &cp, nil
}

func (f *fakeStore) SetClientPlan(_ context.Context, id, planCode string, hoursMonthly float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.PlanCode = planCode
	c.HoursMonthly = hoursMonthly
	return nil
}

func (f *fakeStore) ResetClientCycle(_ context.Context, id string, day time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.clients[id]
	if !ok {
		return domain.ErrNotFound
	}
	c.HoursUsedMonth = 0
	c.CycleStart = day
	return nil
}

func (f *fakeStore) ResetDueCycles(_ context.Context, day time.Time) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var ids []string
	for _, c := range f.clients {
		if !c.CycleStart.After(day) {
			c.HoursUsedMonth = 0
			c.CycleStart = day
			ids = append(ids, c.ID)
		}
	}
	return ids, nil
}

func (f *fakeStore) ListTasks(_ context.Context, clientID string, status task.Status) ([]task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []task.Task
	for _, t := range f.tasks {
		if clientID != "" && t.ClientID != clientID {
			continue
		}
		if status != "" && t.Status != status {
			continue
		}
		out = append(out, *t)
	}
	return out, nil
}

func (f *fakeStore) GetTask(_ context.Context, id string) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) ActiveTask(_ context.Context, clientID string) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.activeLocked(clientID)
}

func (f *fakeStore) activeLocked(clientID string) (*task.Task, error) {
	for _, t := range f.tasks {
		if t.ClientID == clientID && t.Status == task.StatusInProgress {
			cp := *t
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeStore) nextPositionLocked(clientID string, status task.Status) int {
	pos := 0
	for _, t := range f.tasks {
		if t.ClientID == clientID && t.Status == status && t.Position >= pos {
			pos = t.Position + 1
		}
	}
	return pos
}

func (f *fakeStore) CreateTask(_ context.Context, req task.CreateRequest, completedAt *time.Time) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.Status == task.StatusInProgress {
		if _, err := f.activeLocked(req.ClientID); err == nil {
			return nil, domain.ErrConflict
		}
	}
	t := &task.Task{
		ID:            f.id("task"),
		ClientID:      req.ClientID,
		Title:         req.Title,
		Description:   req.Description,
		Priority:      req.Priority,
		Status:        req.Status,
		EstHours:      req.EstHours,
		AssignedDevID: req.AssignedDevID,
		Position:      f.nextPositionLocked(req.ClientID, req.Status),
		CreatedAt:     time.Now().UTC(),
		CompletedAt:   completedAt,
	}
	f.tasks[t.ID] = t
	cp := *t
	return &cp, nil
}

func (f *fakeStore) UpdateTask(_ context.Context, id string, ch database.TaskChanges) (*task.Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tasks[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if ch.Status != nil && *ch.Status == task.StatusInProgress && t.Status != task.StatusInProgress {
		if _, err := f.activeLocked(t.ClientID); err == nil {
			return nil, domain.ErrConflict
		}
	}
	if ch.Title != nil {
		t.Title = *ch.Title
	}
	if ch.Description != nil {
		t.Description = *ch.Description
	}
	if ch.Priority != nil {
		t.Priority = *ch.Priority
	}
	if ch.EstHours != nil {
		t.EstHours = ch.EstHours
	}
	if ch.HoursSpent != nil {
		t.HoursSpent = ch.HoursSpent
	}
	if ch.AssignedDevID != nil {
		t.AssignedDevID = *ch.AssignedDevID
	}
	if ch.CompletedAt != nil {
		t.CompletedAt = *ch.CompletedAt
	}
	if ch.Status != nil && *ch.Status != t.Status {
		t.Position = f.nextPositionLocked(t.ClientID, *ch.Status)
		t.Status = *ch.Status
	}
	cp := *t
	return &cp, nil
}

func (f *fakeStore) DeleteTask(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.tasks[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.tasks, id)
	return nil
}

func (f *fakeStore) ReorderTasks(_ context.Context, req task.ReorderRequest) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range req.Order {
		t, ok := f.tasks[e.ID]
		if !ok || t.ClientID != req.ClientID || t.Status != req.Status {
			return domain.Validationf("task %s is not in the target partition", e.ID)
		}
	}
	for _, e := range req.Order {
		f.tasks[e.ID].Position = e.Position
	}
	return nil
}

func (f *fakeStore) AppendUsage(_ context.Context, req usage.AppendRequest, incrementTaskHours bool) (*usage.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.appendErr != nil {
		return nil, f.appendErr
	}
	c, ok := f.clients[req.ClientID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	entry := usage.LogEntry{
		ID:       f.id("entry"),
		ClientID: req.ClientID,
		TaskID:   req.TaskID,
		Hours:    req.Hours,
		LoggedBy: req.LoggedBy,
		LoggedAt: time.Now().UTC(),
	}
	f.entries = append(f.entries, entry)
	c.HoursUsedMonth += req.Hours
	if incrementTaskHours && req.TaskID != nil {
		if t, ok := f.tasks[*req.TaskID]; ok {
			total := req.Hours
			if t.HoursSpent != nil {
				total += *t.HoursSpent
			}
			t.HoursSpent = &total
		}
	}
	return &entry, nil
}

// addEntryAt inserts a ledger entry with an explicit timestamp, so tests
// can place rows before the active cycle window.
func (f *fakeStore) addEntryAt(clientID string, hours float64, loggedAt time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, usage.LogEntry{
		ID:       f.id("entry"),
		ClientID: clientID,
		Hours:    hours,
		LoggedAt: loggedAt,
	})
}

func (f *fakeStore) CycleHours(_ context.Context, clientID string, from, to time.Time) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var total float64
	for _, e := range f.entries {
		if e.ClientID == clientID && !e.LoggedAt.Before(from) && e.LoggedAt.Before(to) {
			total += e.Hours
		}
	}
	return total, nil
}

func (f *fakeStore) ListUsage(_ context.Context, clientID string, from, to time.Time) ([]usage.LogEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []usage.LogEntry
	for _, e := range f.entries {
		if e.ClientID == clientID && !e.LoggedAt.Before(from) && e.LoggedAt.Before(to) {
			out = append(out, e)
		}
	}
	return out, nil
}

var _ database.Store = (*fakeStore)(nil)
