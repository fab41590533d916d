package otel

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the instruments for task lifecycle and usage accounting.
type Metrics struct {
	tasksCompleted metric.Int64Counter
	hoursLogged    metric.Float64Counter
	appendFailures metric.Int64Counter
	billingEvents  metric.Int64Counter
	cycleResets    metric.Int64Counter
}

// NewMetrics creates the instrument set on the global meter provider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("hourstack")

	tasksCompleted, err := meter.Int64Counter("hourstack.tasks.completed",
		metric.WithDescription("Tasks transitioned to done"))
	if err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	hoursLogged, err := meter.Float64Counter("hourstack.usage.hours_logged",
		metric.WithDescription("Hours appended to the usage ledger"))
	if err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	appendFailures, err := meter.Int64Counter("hourstack.usage.append_failures",
		metric.WithDescription("Best-effort usage appends that failed"))
	if err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	billingEvents, err := meter.Int64Counter("hourstack.billing.events",
		metric.WithDescription("Billing events applied, by type"))
	if err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}
	cycleResets, err := meter.Int64Counter("hourstack.cycle.resets",
		metric.WithDescription("Billing cycles reset"))
	if err != nil {
		return nil, fmt.Errorf("create counter: %w", err)
	}

	return &Metrics{
		tasksCompleted: tasksCompleted,
		hoursLogged:    hoursLogged,
		appendFailures: appendFailures,
		billingEvents:  billingEvents,
		cycleResets:    cycleResets,
	}, nil
}

// RecordTaskCompleted increments the completed-task counter.
func (m *Metrics) RecordTaskCompleted(ctx context.Context) {
	if m == nil {
		return
	}
	m.tasksCompleted.Add(ctx, 1)
}

// RecordHoursLogged adds to the logged-hours counter.
func (m *Metrics) RecordHoursLogged(ctx context.Context, hours float64) {
	if m == nil {
		return
	}
	m.hoursLogged.Add(ctx, hours)
}

// RecordAppendFailure increments the best-effort append failure counter.
func (m *Metrics) RecordAppendFailure(ctx context.Context) {
	if m == nil {
		return
	}
	m.appendFailures.Add(ctx, 1)
}

// RecordBillingEvent increments the billing event counter for the given type.
func (m *Metrics) RecordBillingEvent(ctx context.Context, eventType string) {
	if m == nil {
		return
	}
	m.billingEvents.Add(ctx, 1,
		metric.WithAttributes(attribute.String("event.type", eventType)))
}

// RecordCycleResets adds to the cycle reset counter.
func (m *Metrics) RecordCycleResets(ctx context.Context, n int) {
	if m == nil {
		return
	}
	m.cycleResets.Add(ctx, int64(n))
}
