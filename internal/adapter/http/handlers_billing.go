package http

import (
	"net/http"

	"github.com/hourstack/hourstack/internal/domain/billing"
)

// HandleBillingEvent handles POST /api/v1/billing/events
//
// The payload is a normalized billing event; signature verification happens
// in middleware before the request reaches this handler. Events that cannot
// be applied (unknown price or customer) are acknowledged with 202 so the
// provider stops retrying.
func (h *Handlers) HandleBillingEvent(w http.ResponseWriter, r *http.Request) {
	ev, ok := readJSON[billing.Event](w, r)
	if !ok {
		return
	}

	if err := h.Billing.Apply(r.Context(), ev); err != nil {
		writeInternalError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// TriggerCycleReset handles POST /api/v1/cron/cycle-reset
//
// The scheduler runs the same sweep on an interval; this endpoint exists
// for external cron and manual operations.
func (h *Handlers) TriggerCycleReset(w http.ResponseWriter, r *http.Request) {
	ids, err := h.Cycle.Run(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"reset_count":         len(ids),
		"affected_client_ids": ids,
	})
}
