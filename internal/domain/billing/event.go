// Package billing defines the normalized billing event consumed by
// Subscription Sync. The upstream payment provider's wire format and
// signature verification live outside this core; events arriving here are
// already verified and flattened to this shape.
package billing

// EventType identifies the provider-side state change an event describes.
type EventType string

const (
	EventCheckoutCompleted   EventType = "checkout.completed"
	EventSubscriptionUpdated EventType = "subscription.updated"
	EventSubscriptionDeleted EventType = "subscription.deleted"
	EventInvoicePaid         EventType = "invoice.paid"
	EventInvoiceFailed       EventType = "invoice.payment_failed"
)

// ValidEventTypes is the set of event types Subscription Sync understands.
var ValidEventTypes = map[EventType]bool{
	EventCheckoutCompleted:   true,
	EventSubscriptionUpdated: true,
	EventSubscriptionDeleted: true,
	EventInvoicePaid:         true,
	EventInvoiceFailed:       true,
}

// Subscription statuses that disable a client's capacity.
const (
	StatusActive            = "active"
	StatusCanceled          = "canceled"
	StatusPastDue           = "past_due"
	StatusUnpaid            = "unpaid"
	StatusIncompleteExpired = "incomplete_expired"
)

// DisablingStatuses maps subscription statuses to the zero-capacity effect.
var DisablingStatuses = map[string]bool{
	StatusCanceled:          true,
	StatusPastDue:           true,
	StatusUnpaid:            true,
	StatusIncompleteExpired: true,
}

// Event is a normalized, pre-verified billing notification.
type Event struct {
	Type               EventType `json:"type"`
	CustomerRef        string    `json:"customer_reference"`
	PriceRef           string    `json:"price_reference,omitempty"`
	SubscriptionStatus string    `json:"subscription_status,omitempty"`
	// ClientName seeds the client record on checkout; the provider's
	// client_reference_id when present.
	ClientName string `json:"client_name,omitempty"`
}
