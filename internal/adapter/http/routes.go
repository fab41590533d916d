package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hourstack/hourstack/internal/middleware"
)

// MountRoutes registers all API routes on the given chi router. Reads
// require an authenticated principal, mutations are restricted to staff
// roles; billing intake sits outside role checks and is guarded by HMAC
// signature verification instead.
func MountRoutes(r chi.Router, h *Handlers, webhookSecret string) {
	authed := middleware.RequireRole(middleware.RoleAdmin, middleware.RolePM, middleware.RoleDev, middleware.RoleClient)
	staff := middleware.RequireRole(middleware.RoleAdmin, middleware.RolePM, middleware.RoleDev)
	admin := middleware.RequireRole(middleware.RoleAdmin)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"version":"0.1.0"}`))
		})
		r.Get("/health", h.Health)

		// Billing intake (HMAC-verified, no role check)
		r.With(middleware.WebhookHMAC(webhookSecret, "X-Billing-Signature")).
			Post("/billing/events", h.HandleBillingEvent)

		// Tasks
		r.With(authed).Get("/tasks", h.ListTasks)
		r.With(staff).Post("/tasks", h.CreateTask)
		r.With(staff).Post("/tasks/reorder", h.ReorderTasks)
		r.With(authed).Get("/tasks/{id}", h.GetTask)
		r.With(staff).Patch("/tasks/{id}", h.UpdateTask)
		r.With(staff).Delete("/tasks/{id}", h.DeleteTask)

		// Usage ledger
		r.With(staff).Post("/usage/log", h.LogUsage)

		// Clients
		r.With(staff).Get("/clients", h.ListClients)
		r.With(authed).Get("/clients/{id}", h.GetClient)
		r.With(authed).Get("/clients/{id}/usage", h.GetClientUsage)
		r.With(authed).Get("/clients/{id}/usage/history", h.GetClientUsageHistory)

		// Operations
		r.With(admin).Post("/cron/cycle-reset", h.TriggerCycleReset)
	})

	if h.Hub != nil {
		r.Get("/ws", h.Hub.HandleWS)
	}
}
