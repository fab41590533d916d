package http

import (
	"net/http"
	"time"

	"github.com/hourstack/hourstack/internal/domain/client"
	"github.com/hourstack/hourstack/internal/domain/usage"
)

// ListClients handles GET /api/v1/clients
func (h *Handlers) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.Clients.List(r.Context())
	if err != nil {
		writeInternalError(w, err)
		return
	}
	if clients == nil {
		clients = []client.Client{}
	}
	writeJSON(w, http.StatusOK, clients)
}

// GetClient handles GET /api/v1/clients/{id}
func (h *Handlers) GetClient(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if !canAccessClient(r, id) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	c, err := h.Clients.Get(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// GetClientUsage handles GET /api/v1/clients/{id}/usage
func (h *Handlers) GetClientUsage(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if !canAccessClient(r, id) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	summary, err := h.Usage.Summary(r.Context(), id)
	if err != nil {
		writeDomainError(w, err, "client not found")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GetClientUsageHistory handles GET /api/v1/clients/{id}/usage/history?from=&to=
// Bounds default to the client's active cycle window.
func (h *Handlers) GetClientUsageHistory(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	if !canAccessClient(r, id) {
		writeError(w, http.StatusForbidden, "forbidden")
		return
	}

	var from, to time.Time
	if v := r.URL.Query().Get("from"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "from must be RFC 3339")
			return
		}
		from = ts
	}
	if v := r.URL.Query().Get("to"); v != "" {
		ts, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "to must be RFC 3339")
			return
		}
		to = ts
	}

	entries, err := h.Usage.History(r.Context(), id, from, to)
	if err != nil {
		writeDomainError(w, err, "client not found")
		return
	}
	if entries == nil {
		entries = []usage.LogEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}
