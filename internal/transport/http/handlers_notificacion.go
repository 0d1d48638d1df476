package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dewauriarte/SIGCERH-sub005/internal/notificacion"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

type notificacionHandler struct {
	worker *notificacion.Worker
	store  notificacion.Store
	logger *slog.Logger
}

type notificacionResponse struct {
	ID            string    `json:"id"`
	Tipo          string    `json:"tipo"`
	Canal         string    `json:"canal"`
	SolicitudID   string    `json:"solicitudId"`
	Estado        string    `json:"estado"`
	Intentos      int       `json:"intentos"`
	UltimoError   string    `json:"ultimoError,omitempty"`
	FechaEncolado time.Time `json:"fechaEncolado"`
}

func toNotificacionResponse(e *notificacion.Evento) notificacionResponse {
	return notificacionResponse{
		ID:            e.ID.String(),
		Tipo:          string(e.Tipo),
		Canal:         string(e.Canal),
		SolicitudID:   e.SolicitudID.String(),
		Estado:        string(e.Estado),
		Intentos:      e.Intentos,
		UltimoError:   e.UltimoError,
		FechaEncolado: e.FechaEncolado,
	}
}

// handleFallidas lists permanently failed notifications for operator review.
func (h *notificacionHandler) handleFallidas(w http.ResponseWriter, r *http.Request) {
	list, err := h.store.ListByEstado(r.Context(), notificacion.EstadoFallida)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]notificacionResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toNotificacionResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"notificaciones": out})
}

// handleReenviar re-queues a failed notification with a fresh retry budget.
func (h *notificacionHandler) handleReenviar(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseNotificacionID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	evento, err := h.store.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.worker.Reenviar(r.Context(), evento); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toNotificacionResponse(evento))
}

// notificacionCanal maps a request field to a delivery channel, defaulting to
// email.
func notificacionCanal(raw string) notificacion.Canal {
	switch notificacion.Canal(raw) {
	case notificacion.CanalWhatsApp, notificacion.CanalSMS:
		return notificacion.Canal(raw)
	default:
		return notificacion.CanalEmail
	}
}
