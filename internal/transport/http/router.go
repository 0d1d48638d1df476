// Package httptransport is the thin HTTP layer. Handlers decode, delegate to
// the domain services, and encode; no business logic lives here.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dewauriarte/SIGCERH-sub005/internal/acta"
	"github.com/dewauriarte/SIGCERH-sub005/internal/notificacion"
	"github.com/dewauriarte/SIGCERH-sub005/internal/pago"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/middleware"
	"github.com/dewauriarte/SIGCERH-sub005/internal/solicitud"
)

// Deps bundles everything the router serves.
type Deps struct {
	Engine       *solicitud.Engine
	Actas        *acta.Service
	Bridge       *pago.Bridge
	Worker       *notificacion.Worker
	Notificacion notificacion.Store
	Logger       *slog.Logger
	JWTValidator middleware.JWTValidator

	// WebhookTokenHash guards the public gateway endpoint; empty disables
	// the check (local development).
	WebhookTokenHash string
}

// NewRouter wires the full API surface.
func NewRouter(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Logger(deps.Logger))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// The gateway authenticates with the shared token, not a JWT.
	webhookHandler := &pagoHandler{bridge: deps.Bridge, logger: deps.Logger, tokenHash: deps.WebhookTokenHash}
	r.Post("/webhooks/pagos", webhookHandler.handleReceive)

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.RequireAuth(deps.JWTValidator, deps.Logger))

		solicitudes := &solicitudHandler{engine: deps.Engine, actas: deps.Actas, logger: deps.Logger}
		api.Post("/solicitudes", solicitudes.handleCreate)
		api.Get("/solicitudes", solicitudes.handleList)
		api.Get("/solicitudes/{id}", solicitudes.handleGet)
		api.Get("/solicitudes/{id}/historial", solicitudes.handleHistorial)
		api.Get("/solicitudes/{id}/transiciones", solicitudes.handleTransiciones)
		api.Post("/solicitudes/{id}/transicion", solicitudes.handleTransition)

		actas := &actaHandler{service: deps.Actas, logger: deps.Logger}
		api.Post("/actas", actas.handleCreate)
		api.Get("/actas/{id}", actas.handleGet)
		api.Get("/actas", actas.handleList)
		api.Post("/actas/{id}/asignar", actas.handleAsignar)
		api.Post("/actas/{id}/encontrada", actas.handleEncontrada)
		api.Post("/actas/{id}/no-encontrada", actas.handleNoEncontrada)

		api.Post("/pagos", webhookHandler.handleIniciarPago)
		api.Get("/pagos/{id}", webhookHandler.handleGetPago)
		api.Get("/webhooks/pendientes", webhookHandler.handlePendientes)
		api.Get("/webhooks/{id}", webhookHandler.handleGetWebhook)
		api.Post("/webhooks/{id}/reprocesar", webhookHandler.handleReprocess)

		notificaciones := &notificacionHandler{worker: deps.Worker, store: deps.Notificacion, logger: deps.Logger}
		api.Get("/notificaciones/fallidas", notificaciones.handleFallidas)
		api.Post("/notificaciones/{id}/reenviar", notificaciones.handleReenviar)
	})

	return r
}
