package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hourstack/hourstack/internal/adapter/otel"
	"github.com/hourstack/hourstack/internal/domain"
	"github.com/hourstack/hourstack/internal/domain/billing"
	"github.com/hourstack/hourstack/internal/domain/client"
	"github.com/hourstack/hourstack/internal/domain/plan"
	"github.com/hourstack/hourstack/internal/port/database"
)

// BillingService applies normalized billing events to client records. Every
// effect is an unconditional set, so replayed or out-of-order events
// converge on the same state.
type BillingService struct {
	store   database.Store
	catalog *plan.Catalog
	usage   *UsageService
	metrics *otel.Metrics
}

// NewBillingService creates a BillingService.
func NewBillingService(store database.Store, catalog *plan.Catalog, usageSvc *UsageService, metrics *otel.Metrics) *BillingService {
	return &BillingService{
		store:   store,
		catalog: catalog,
		usage:   usageSvc,
		metrics: metrics,
	}
}

// HandleMessage adapts Apply to the message queue handler signature.
func (s *BillingService) HandleMessage(ctx context.Context, subject string, data []byte) error {
	var ev billing.Event
	if err := json.Unmarshal(data, &ev); err != nil {
		// Malformed payloads are dropped, not redelivered forever.
		slog.Error("billing event unmarshal failed", "subject", subject, "error", err)
		return nil
	}
	return s.Apply(ctx, ev)
}

// Apply processes one billing event. Events that cannot meaningfully be
// applied (unknown type, unknown price, unknown customer) are logged and
// acknowledged rather than retried: redelivery cannot fix them.
func (s *BillingService) Apply(ctx context.Context, ev billing.Event) error {
	if !billing.ValidEventTypes[ev.Type] {
		slog.Warn("ignoring unknown billing event type", "type", ev.Type)
		return nil
	}
	if ev.CustomerRef == "" {
		slog.Warn("ignoring billing event without customer reference", "type", ev.Type)
		return nil
	}

	var err error
	switch ev.Type {
	case billing.EventCheckoutCompleted:
		err = s.applyCheckout(ctx, ev)
	case billing.EventSubscriptionUpdated:
		err = s.applySubscriptionUpdate(ctx, ev)
	case billing.EventSubscriptionDeleted:
		err = s.disableClient(ctx, ev.CustomerRef, "subscription deleted")
	case billing.EventInvoicePaid:
		err = s.applyInvoicePaid(ctx, ev)
	case billing.EventInvoiceFailed:
		err = s.disableClient(ctx, ev.CustomerRef, "invoice payment failed")
	}
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			slog.Warn("billing event references unknown customer",
				"type", ev.Type, "customer_ref", ev.CustomerRef)
			return nil
		}
		return fmt.Errorf("apply %s: %w", ev.Type, err)
	}

	s.metrics.RecordBillingEvent(ctx, string(ev.Type))
	return nil
}

// applyCheckout provisions a client for a completed checkout. If a client
// already exists for the customer reference, the event degrades to a plan
// set, which makes checkout replays harmless.
func (s *BillingService) applyCheckout(ctx context.Context, ev billing.Event) error {
	p, ok := s.catalog.ByPriceRef(ev.PriceRef)
	if !ok {
		slog.Warn("checkout references unknown price, skipping",
			"price_ref", ev.PriceRef, "customer_ref", ev.CustomerRef)
		return nil
	}

	existing, err := s.store.GetClientByCustomerRef(ctx, ev.CustomerRef)
	if err == nil {
		return s.setPlan(ctx, existing, p)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return err
	}

	name := ev.ClientName
	if name == "" {
		name = ev.CustomerRef
	}
	created, err := s.store.CreateClient(ctx, client.CreateRequest{
		Name:               name,
		PlanCode:           p.Code,
		HoursMonthly:       p.HoursMonthly,
		CycleStart:         today(),
		PaymentCustomerRef: ev.CustomerRef,
	})
	if err != nil {
		return err
	}
	slog.Info("client provisioned from checkout",
		"client_id", created.ID, "plan", p.Code, "customer_ref", ev.CustomerRef)
	return nil
}

func (s *BillingService) applySubscriptionUpdate(ctx context.Context, ev billing.Event) error {
	if billing.DisablingStatuses[ev.SubscriptionStatus] {
		return s.disableClient(ctx, ev.CustomerRef, "subscription "+ev.SubscriptionStatus)
	}
	if ev.SubscriptionStatus != billing.StatusActive {
		slog.Warn("ignoring subscription update with unhandled status",
			"status", ev.SubscriptionStatus, "customer_ref", ev.CustomerRef)
		return nil
	}

	p, ok := s.catalog.ByPriceRef(ev.PriceRef)
	if !ok {
		slog.Warn("subscription update references unknown price, skipping",
			"price_ref", ev.PriceRef, "customer_ref", ev.CustomerRef)
		return nil
	}

	c, err := s.store.GetClientByCustomerRef(ctx, ev.CustomerRef)
	if err != nil {
		return err
	}
	return s.setPlan(ctx, c, p)
}

// applyInvoicePaid starts a fresh billing cycle: zero the usage cache and
// move cycle_start to today. The ledger itself is untouched.
func (s *BillingService) applyInvoicePaid(ctx context.Context, ev billing.Event) error {
	c, err := s.store.GetClientByCustomerRef(ctx, ev.CustomerRef)
	if err != nil {
		return err
	}
	if err := s.store.ResetClientCycle(ctx, c.ID, today()); err != nil {
		return err
	}
	slog.Info("billing cycle reset on paid invoice", "client_id", c.ID)
	s.usage.InvalidateSummary(ctx, c.ID)
	return nil
}

func (s *BillingService) setPlan(ctx context.Context, c *client.Client, p plan.Plan) error {
	if err := s.store.SetClientPlan(ctx, c.ID, p.Code, p.HoursMonthly); err != nil {
		return err
	}
	slog.Info("client plan set", "client_id", c.ID, "plan", p.Code, "hours_monthly", p.HoursMonthly)
	s.usage.InvalidateSummary(ctx, c.ID)
	return nil
}

// disableClient zeroes capacity while keeping the client's data intact.
func (s *BillingService) disableClient(ctx context.Context, customerRef, reason string) error {
	c, err := s.store.GetClientByCustomerRef(ctx, customerRef)
	if err != nil {
		return err
	}
	if err := s.store.SetClientPlan(ctx, c.ID, c.PlanCode, 0); err != nil {
		return err
	}
	slog.Info("client capacity disabled", "client_id", c.ID, "reason", reason)
	s.usage.InvalidateSummary(ctx, c.ID)
	return nil
}

// today returns midnight UTC of the current day.
func today() time.Time {
	return time.Now().UTC().Truncate(24 * time.Hour)
}
