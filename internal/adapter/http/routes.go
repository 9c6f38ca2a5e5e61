package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Strob0t/buildnotify/internal/config"
	"github.com/Strob0t/buildnotify/internal/middleware"
)

// Version is reported by GET /api/v1/.
const Version = "0.1.0"

// MountRoutes registers all API routes on the given chi router. Build
// intake is HMAC-verified when a webhook secret is configured.
func MountRoutes(r chi.Router, h *Handlers, webhookCfg config.Webhook) {
	r.Get("/health", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"version": Version})
		})

		r.With(middleware.WebhookHMAC(webhookCfg.Secret, webhookCfg.Header)).
			Post("/builds", h.ReceiveBuild)

		r.Get("/projects/{project}/dispatches", h.ListDispatches)
		r.Get("/senders", h.ListSenders)
	})
}
