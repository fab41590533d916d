// Package task defines the Task domain entity and its ordering rules.
package task

import (
	"sort"
	"time"
)

// Status represents the lifecycle state of a task.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusInProgress Status = "in_progress"
	StatusDone       Status = "done"
)

// ValidStatuses is the set of all valid task statuses.
var ValidStatuses = map[Status]bool{
	StatusQueued:     true,
	StatusInProgress: true,
	StatusDone:       true,
}

// Priority represents the urgency of a task.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ValidPriorities is the set of all valid task priorities.
var ValidPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
}

// Task represents a unit of work owned by a client.
type Task struct {
	ID            string     `json:"id"`
	ClientID      string     `json:"client_id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	Priority      Priority   `json:"priority"`
	Status        Status     `json:"status"`
	EstHours      *float64   `json:"est_hours,omitempty"`
	HoursSpent    *float64   `json:"hours_spent,omitempty"`
	AssignedDevID *string    `json:"assigned_dev_id,omitempty"`
	Position      int        `json:"position"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// CreateRequest holds the fields needed to submit a new task.
// Status is optional; when empty the task starts queued.
type CreateRequest struct {
	ClientID      string   `json:"client_id"`
	Title         string   `json:"title"`
	Description   string   `json:"description,omitempty"`
	Priority      Priority `json:"priority,omitempty"`
	Status        Status   `json:"status,omitempty"`
	EstHours      *float64 `json:"est_hours,omitempty"`
	AssignedDevID *string  `json:"assigned_dev_id,omitempty"`
}

// UpdateRequest is a partial update applied by the state machine. Nil
// fields are left untouched. AssignedDevID distinguishes "absent" from
// "clear": an inner nil pointer clears the assignment.
type UpdateRequest struct {
	Title         *string   `json:"title,omitempty"`
	Description   *string   `json:"description,omitempty"`
	Priority      *Priority `json:"priority,omitempty"`
	Status        *Status   `json:"status,omitempty"`
	EstHours      *float64  `json:"est_hours,omitempty"`
	HoursSpent    *float64  `json:"hours_spent,omitempty"`
	AssignedDevID **string  `json:"assigned_dev_id,omitempty"`
}

// Empty reports whether the update carries no fields at all.
func (r *UpdateRequest) Empty() bool {
	return r.Title == nil && r.Description == nil && r.Priority == nil &&
		r.Status == nil && r.EstHours == nil && r.HoursSpent == nil &&
		r.AssignedDevID == nil
}

// OrderEntry is one member of a batch reorder request.
type OrderEntry struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

// ReorderRequest rewrites positions within one (client, status) partition.
type ReorderRequest struct {
	ClientID string       `json:"client_id"`
	Status   Status       `json:"status"`
	Order    []OrderEntry `json:"order"`
}

// priorityRank maps priorities to sort weight. Unknown values rank as medium
// so a bad row never floats to the top or bottom of a board.
func priorityRank(p Priority) int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityLow:
		return 1
	default:
		return 2
	}
}

// SortForDisplay orders tasks the way boards render them: priority rank
// descending, then position ascending. Ties are broken by position only,
// never by retrieval order, so the result is deterministic.
func SortForDisplay(tasks []Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		ri, rj := priorityRank(tasks[i].Priority), priorityRank(tasks[j].Priority)
		if ri != rj {
			return ri > rj
		}
		return tasks[i].Position < tasks[j].Position
	})
}
