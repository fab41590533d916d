package http

import (
	"net/http"

	"github.com/hourstack/hourstack/internal/domain/usage"
	"github.com/hourstack/hourstack/internal/middleware"
)

// LogUsage handles POST /api/v1/usage/log
func (h *Handlers) LogUsage(w http.ResponseWriter, r *http.Request) {
	req, ok := readJSON[usage.AppendRequest](w, r)
	if !ok {
		return
	}

	// Attribute the entry to the caller when the client did not name one.
	if req.LoggedBy == nil {
		if p := middleware.PrincipalFromContext(r.Context()); p != nil {
			req.LoggedBy = &p.UserID
		}
	}

	entry, err := h.Usage.Append(r.Context(), req)
	if err != nil {
		writeDomainError(w, err, "client not found")
		return
	}
	writeJSON(w, http.StatusCreated, entry)
}
