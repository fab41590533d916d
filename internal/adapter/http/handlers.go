package http

import (
	"net/http"

	"github.com/hourstack/hourstack/internal/adapter/ws"
	"github.com/hourstack/hourstack/internal/middleware"
	"github.com/hourstack/hourstack/internal/service"
)

// Pinger reports backend connectivity for the health endpoint.
type Pinger interface {
	IsConnected() bool
}

// Handlers holds the HTTP handler dependencies.
type Handlers struct {
	Tasks   *service.TaskService
	Usage   *service.UsageService
	Clients *service.ClientService
	Billing *service.BillingService
	Cycle   *service.CycleService
	Hub     *ws.Hub
	Queue   Pinger // nil when running without a message queue
}

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, _ *http.Request) {
	resp := map[string]any{"status": "ok"}
	if h.Queue != nil {
		resp["queue_connected"] = h.Queue.IsConnected()
	}
	if h.Hub != nil {
		resp["ws_connections"] = h.Hub.ConnectionCount()
	}
	writeJSON(w, http.StatusOK, resp)
}

// canAccessClient enforces tenant scoping: client-role callers may only
// read their own records. Staff roles and anonymous internal calls pass.
func canAccessClient(r *http.Request, clientID string) bool {
	p := middleware.PrincipalFromContext(r.Context())
	if p == nil || p.Role != middleware.RoleClient {
		return true
	}
	return p.ClientID == clientID
}
