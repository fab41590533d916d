// Package usage defines the usage ledger entry and aggregate math.
package usage

import "time"

// LogEntry is an immutable record of hours consumed against a client's
// capacity. Entries are append-only; they are never updated or deleted
// through normal flow.
type LogEntry struct {
	ID       string    `json:"id"`
	ClientID string    `json:"client_id"`
	TaskID   *string   `json:"task_id,omitempty"`
	Hours    float64   `json:"hours"`
	LoggedBy *string   `json:"logged_by,omitempty"`
	LoggedAt time.Time `json:"logged_at"`
}

// AppendRequest is the input for recording consumed hours.
type AppendRequest struct {
	ClientID string  `json:"client_id"`
	TaskID   *string `json:"task_id,omitempty"`
	Hours    float64 `json:"hours"`
	LoggedBy *string `json:"logged_by,omitempty"`
}

// Risk classifies a client's consumption relative to plan capacity.
type Risk string

const (
	RiskLow    Risk = "low"
	RiskMedium Risk = "medium"
	RiskHigh   Risk = "high"
)

// Summary is the derived usage picture for one client's active cycle.
type Summary struct {
	ClientID         string    `json:"client_id"`
	HoursMonthly     float64   `json:"hours_monthly"`
	HoursUsed        float64   `json:"hours_used"`
	PctUsed          float64   `json:"pct_used"`
	Risk             Risk      `json:"risk"`
	CapacityDisabled bool      `json:"capacity_disabled"`
	CycleStart       time.Time `json:"cycle_start"`
}

// Classify maps percent-used to a risk flag. Lower bounds are inclusive:
// 80.0 is already medium, 100.0 is already high.
func Classify(pctUsed float64) Risk {
	switch {
	case pctUsed >= 100:
		return RiskHigh
	case pctUsed >= 80:
		return RiskMedium
	default:
		return RiskLow
	}
}

// Summarize derives a Summary from a cycle aggregate and plan capacity.
// A zero capacity means the client is disabled; pct_used is defined as 0
// in that case rather than dividing by zero.
func Summarize(clientID string, hoursMonthly, hoursUsed float64, cycleStart time.Time) Summary {
	s := Summary{
		ClientID:     clientID,
		HoursMonthly: hoursMonthly,
		HoursUsed:    hoursUsed,
		CycleStart:   cycleStart,
	}
	if hoursMonthly > 0 {
		s.PctUsed = hoursUsed / hoursMonthly * 100
	} else {
		s.CapacityDisabled = true
	}
	s.Risk = Classify(s.PctUsed)
	return s
}

// CycleWindow returns the half-open interval [start, start+1 month) that
// bounds the active billing cycle.
func CycleWindow(cycleStart time.Time) (from, to time.Time) {
	return cycleStart, cycleStart.AddDate(0, 1, 0)
}

// InCycle reports whether ts falls inside the active cycle window.
func InCycle(ts, cycleStart time.Time) bool {
	from, to := CycleWindow(cycleStart)
	return !ts.Before(from) && ts.Before(to)
}
