package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hourstack/hourstack/internal/adapter/otel"
	"github.com/hourstack/hourstack/internal/adapter/ws"
	"github.com/hourstack/hourstack/internal/domain"
	"github.com/hourstack/hourstack/internal/domain/usage"
	"github.com/hourstack/hourstack/internal/port/cache"
	"github.com/hourstack/hourstack/internal/port/database"
)

const summaryKeyPrefix = "usage:summary:"

// UsageService owns the append-only usage ledger and the derived per-cycle
// summary. Summaries are cached; every append invalidates the owning
// client's entry.
type UsageService struct {
	store      database.Store
	cache      cache.Cache
	summaryTTL time.Duration
	hub        Broadcaster
	metrics    *otel.Metrics
}

// NewUsageService creates a UsageService. cache and hub may be nil.
func NewUsageService(store database.Store, c cache.Cache, summaryTTL time.Duration, hub Broadcaster, metrics *otel.Metrics) *UsageService {
	if hub == nil {
		hub = noopBroadcaster{}
	}
	return &UsageService{
		store:      store,
		cache:      c,
		summaryTTL: summaryTTL,
		hub:        hub,
		metrics:    metrics,
	}
}

// Append records consumed hours against a client. Hours must be positive;
// zero-hour entries are rejected rather than silently stored.
func (s *UsageService) Append(ctx context.Context, req usage.AppendRequest) (*usage.LogEntry, error) {
	if req.ClientID == "" {
		return nil, domain.Validationf("client_id is required")
	}
	if req.Hours <= 0 {
		return nil, domain.Validationf("hours must be positive")
	}
	if req.TaskID != nil && *req.TaskID == "" {
		req.TaskID = nil
	}

	entry, err := s.store.AppendUsage(ctx, req, true)
	if err != nil {
		return nil, err
	}

	s.metrics.RecordHoursLogged(ctx, req.Hours)
	s.notifyChanged(ctx, req.ClientID)
	return entry, nil
}

// Summary returns the client's usage picture for the active billing cycle,
// recomputed from the ledger (not the cached column) and cached until the
// next append or reset.
func (s *UsageService) Summary(ctx context.Context, clientID string) (*usage.Summary, error) {
	key := summaryKeyPrefix + clientID

	if s.cache != nil {
		if data, ok, err := s.cache.Get(ctx, key); err == nil && ok {
			var cached usage.Summary
			if err := json.Unmarshal(data, &cached); err == nil {
				return &cached, nil
			}
		}
	}

	c, err := s.store.GetClient(ctx, clientID)
	if err != nil {
		return nil, err
	}

	from, to := usage.CycleWindow(c.CycleStart)
	used, err := s.store.CycleHours(ctx, clientID, from, to)
	if err != nil {
		return nil, err
	}

	summary := usage.Summarize(c.ID, c.HoursMonthly, used, c.CycleStart)

	if s.cache != nil {
		if data, err := json.Marshal(summary); err == nil {
			if err := s.cache.Set(ctx, key, data, s.summaryTTL); err != nil {
				slog.Warn("summary cache set failed", "client_id", clientID, "error", err)
			}
		}
	}
	return &summary, nil
}

// History lists ledger entries for a client inside [from, to). Each zero
// bound defaults independently to the client's active cycle window.
func (s *UsageService) History(ctx context.Context, clientID string, from, to time.Time) ([]usage.LogEntry, error) {
	if from.IsZero() || to.IsZero() {
		c, err := s.store.GetClient(ctx, clientID)
		if err != nil {
			return nil, err
		}
		cycleFrom, cycleTo := usage.CycleWindow(c.CycleStart)
		if from.IsZero() {
			from = cycleFrom
		}
		if to.IsZero() {
			to = cycleTo
		}
	}
	if !to.After(from) {
		return nil, domain.Validationf("to must be after from")
	}
	return s.store.ListUsage(ctx, clientID, from, to)
}

// InvalidateSummary drops the cached summary for a client.
func (s *UsageService) InvalidateSummary(ctx context.Context, clientID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, summaryKeyPrefix+clientID); err != nil {
		slog.Warn("summary cache invalidation failed", "client_id", clientID, "error", err)
	}
}

// notifyChanged invalidates the summary cache and pushes the fresh picture
// to dashboards.
func (s *UsageService) notifyChanged(ctx context.Context, clientID string) {
	s.InvalidateSummary(ctx, clientID)

	summary, err := s.Summary(ctx, clientID)
	if err != nil {
		slog.Warn("usage summary refresh failed", "client_id", clientID, "error", err)
		return
	}
	s.hub.BroadcastEvent(ctx, ws.EventUsageChanged, summary)
}
