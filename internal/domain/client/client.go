// Package client defines the Client domain entity.
package client

import "time"

// Client represents a billed tenant with a monthly hours plan.
// HoursUsedMonth is a denormalized cache of the usage ledger aggregate for
// the active cycle; the ledger remains the source of truth.
type Client struct {
	ID                 string    `json:"id"`
	Name               string    `json:"name"`
	PlanCode           string    `json:"plan_code"`
	HoursMonthly       float64   `json:"hours_monthly"`
	HoursUsedMonth     float64   `json:"hours_used_month"`
	CycleStart         time.Time `json:"cycle_start"`
	PaymentCustomerRef string    `json:"payment_customer_ref,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// CreateRequest holds the fields needed to provision a new client.
// Subscription Sync builds one from a completed checkout event.
type CreateRequest struct {
	Name               string    `json:"name"`
	PlanCode           string    `json:"plan_code"`
	HoursMonthly       float64   `json:"hours_monthly"`
	CycleStart         time.Time `json:"cycle_start"`
	PaymentCustomerRef string    `json:"payment_customer_ref,omitempty"`
}

// Disabled reports whether the client's capacity has been zeroed out
// (cancellation or payment failure). Data is retained; only access stops.
func (c *Client) Disabled() bool {
	return c.HoursMonthly <= 0
}
