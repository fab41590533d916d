// Package resilience guards best-effort side channels so queue or fan-out
// outages cannot slow the request path.
package resilience

import (
	"errors"
	"log/slog"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker is rejecting calls.
var ErrCircuitOpen = errors.New("circuit breaker is open")

type state int

const (
	stateClosed state = iota
	stateOpen
	stateHalfOpen
)

func (s state) String() string {
	switch s {
	case stateOpen:
		return "open"
	case stateHalfOpen:
		return "half-open"
	default:
		return "closed"
	}
}

// Breaker trips after a run of consecutive failures and rejects calls until
// a cool-down elapses. The first call after the cool-down probes the
// downstream: success closes the circuit, failure re-opens it.
type Breaker struct {
	mu          sync.Mutex
	state       state
	failures    int
	maxFailures int
	timeout     time.Duration
	openedAt    time.Time
	now         func() time.Time // injected in tests
}

// NewBreaker creates a breaker that opens after maxFailures consecutive
// failures and cools down for timeout before probing again.
func NewBreaker(maxFailures int, timeout time.Duration) *Breaker {
	return &Breaker{
		maxFailures: maxFailures,
		timeout:     timeout,
		now:         time.Now,
	}
}

// Execute runs fn unless the circuit is open. Every error feeds the trip
// counter; the callers here are fire-and-forget publishes, so there is no
// distinction between transient and permanent failures.
func (b *Breaker) Execute(fn func() error) error {
	b.mu.Lock()
	if !b.admitLocked() {
		b.mu.Unlock()
		return ErrCircuitOpen
	}
	b.mu.Unlock()

	err := fn()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.recordLocked(err)
	return err
}

// admitLocked reports whether a call may proceed, moving an expired open
// circuit to half-open.
func (b *Breaker) admitLocked() bool {
	if b.state == stateOpen {
		if b.now().Sub(b.openedAt) < b.timeout {
			return false
		}
		b.state = stateHalfOpen
		slog.Info("circuit breaker probing downstream", "state", b.state.String())
	}
	return true
}

// recordLocked folds a call outcome into the breaker state.
func (b *Breaker) recordLocked(err error) {
	if err == nil {
		if b.state != stateClosed {
			slog.Info("circuit breaker closed")
		}
		b.state = stateClosed
		b.failures = 0
		return
	}

	b.failures++
	if b.state == stateHalfOpen || b.failures >= b.maxFailures {
		if b.state != stateOpen {
			slog.Warn("circuit breaker opened",
				"failures", b.failures,
				"cooldown", b.timeout,
			)
		}
		b.state = stateOpen
		b.openedAt = b.now()
	}
}
