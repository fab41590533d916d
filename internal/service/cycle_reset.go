package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/hourstack/hourstack/internal/adapter/otel"
	"github.com/hourstack/hourstack/internal/adapter/ws"
	"github.com/hourstack/hourstack/internal/port/database"
)

// CycleService resets billing cycles for clients whose cycle_start has
// come due. It backs both the scheduled sweep and the manual trigger
// endpoint.
type CycleService struct {
	store   database.Store
	usage   *UsageService
	hub     Broadcaster
	metrics *otel.Metrics
}

// NewCycleService creates a CycleService. hub may be nil.
func NewCycleService(store database.Store, usageSvc *UsageService, hub Broadcaster, metrics *otel.Metrics) *CycleService {
	if hub == nil {
		hub = noopBroadcaster{}
	}
	return &CycleService{
		store:   store,
		usage:   usageSvc,
		hub:     hub,
		metrics: metrics,
	}
}

// Run performs one reset sweep and returns the affected client IDs. The
// sweep is a single set-based statement, so concurrent runs converge on
// the same state.
func (c *CycleService) Run(ctx context.Context) ([]string, error) {
	day := today()

	ids, err := c.store.ResetDueCycles(ctx, day)
	if err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return nil, nil
	}

	slog.Info("billing cycles reset", "count", len(ids), "day", day.Format(time.DateOnly))
	c.metrics.RecordCycleResets(ctx, len(ids))

	for _, id := range ids {
		c.usage.InvalidateSummary(ctx, id)
	}
	c.hub.BroadcastEvent(ctx, ws.EventCycleReset, map[string]any{
		"client_ids": ids,
		"day":        day.Format(time.DateOnly),
	})
	return ids, nil
}

// StartScheduler runs a sweep immediately and then on every interval tick
// until ctx is canceled.
func (c *CycleService) StartScheduler(ctx context.Context, interval time.Duration) {
	go func() {
		if _, err := c.Run(ctx); err != nil {
			slog.Error("cycle reset sweep failed", "error", err)
		}

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if _, err := c.Run(ctx); err != nil {
					slog.Error("cycle reset sweep failed", "error", err)
				}
			}
		}
	}()
}
