// Package service contains application services.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hourstack/hourstack/internal/port/messagequeue"
	"github.com/hourstack/hourstack/internal/resilience"
)

// Broadcaster pushes events to connected dashboard clients.
type Broadcaster interface {
	BroadcastEvent(ctx context.Context, eventType string, payload any)
}

// noopBroadcaster is used when no WebSocket hub is wired (CLI commands, tests).
type noopBroadcaster struct{}

func (noopBroadcaster) BroadcastEvent(context.Context, string, any) {}

// Publisher fans events out to the message queue behind a circuit breaker.
// Publishing is best-effort: the queue being down never fails the calling
// operation.
type Publisher struct {
	queue   messagequeue.Queue
	breaker *resilience.Breaker
}

// NewPublisher creates a Publisher. A nil queue disables publishing.
func NewPublisher(queue messagequeue.Queue, breaker *resilience.Breaker) *Publisher {
	if breaker == nil {
		breaker = resilience.NewBreaker(5, 30*time.Second)
	}
	return &Publisher{queue: queue, breaker: breaker}
}

// Publish marshals payload and sends it to subject. Failures are logged and
// counted against the breaker but never returned.
func (p *Publisher) Publish(ctx context.Context, subject string, payload any) {
	if p == nil || p.queue == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		slog.Error("event marshal failed", "subject", subject, "error", err)
		return
	}

	err = p.breaker.Execute(func() error {
		return p.queue.Publish(ctx, subject, data)
	})
	if err != nil {
		slog.Warn("event publish skipped", "subject", subject, "error", err)
	}
}
