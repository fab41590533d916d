package service

import (
	"context"

	"github.com/hourstack/hourstack/internal/adapter/ws"
	"github.com/hourstack/hourstack/internal/domain"
	"github.com/hourstack/hourstack/internal/domain/task"
)

// Reorder rewrites positions within one (client, status) partition as a
// single atomic batch. Every task in the batch must belong to the named
// partition; a batch naming a foreign task is rejected with zero side
// effects. Duplicate target positions are rejected up front.
func (s *TaskService) Reorder(ctx context.Context, req task.ReorderRequest) error {
	if req.ClientID == "" {
		return domain.Validationf("client_id is required")
	}
	if !task.ValidStatuses[req.Status] {
		return domain.Validationf("invalid status %q", req.Status)
	}
	if len(req.Order) == 0 {
		return domain.Validationf("order must not be empty")
	}

	seenID := make(map[string]bool, len(req.Order))
	seenPos := make(map[int]bool, len(req.Order))
	for _, e := range req.Order {
		if e.ID == "" {
			return domain.Validationf("order entry is missing a task id")
		}
		if seenID[e.ID] {
			return domain.Validationf("task %s appears twice in the batch", e.ID)
		}
		if e.Position < 0 {
			return domain.Validationf("position must not be negative")
		}
		if seenPos[e.Position] {
			return domain.Validationf("position %d assigned twice", e.Position)
		}
		seenID[e.ID] = true
		seenPos[e.Position] = true
	}

	if err := s.store.ReorderTasks(ctx, req); err != nil {
		return err
	}

	s.hub.BroadcastEvent(ctx, ws.EventTaskChanged, map[string]string{
		"client_id": req.ClientID,
		"status":    string(req.Status),
		"action":    "reordered",
	})
	return nil
}
