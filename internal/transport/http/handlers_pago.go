package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dewauriarte/SIGCERH-sub005/internal/pago"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
)

type pagoHandler struct {
	bridge    *pago.Bridge
	logger    *slog.Logger
	tokenHash string
}

// handleReceive is the public gateway endpoint: authenticate the shared
// token, persist the raw event, acknowledge with 202, reconcile in the
// background. The gateway never sees processing failures.
func (h *pagoHandler) handleReceive(w http.ResponseWriter, r *http.Request) {
	if h.tokenHash != "" {
		token, _ := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if err := pago.VerifyGatewayToken(token, h.tokenHash); err != nil {
			writeError(w, err)
			return
		}
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "no se pudo leer el cuerpo"))
		return
	}
	headers, _ := json.Marshal(r.Header)

	evento, err := h.bridge.Ingest(r.Context(), body, headers)
	if err != nil {
		writeError(w, err)
		return
	}

	// Detach from the request context: the 202 below ends the request but
	// reconciliation continues.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := h.bridge.Process(ctx, evento.ID); err != nil {
			h.logger.Error("webhook processing failed",
				"webhook_id", evento.ID.String(), "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]any{
		"success":   true,
		"webhookId": evento.ID.String(),
	})
}

type iniciarPagoRequest struct {
	SolicitudID string `json:"solicitudId"`
	NumeroOrden string `json:"numeroOrden"`
	MontoCents  int64  `json:"montoCents"`
	Metodo      string `json:"metodo"`
}

type pagoResponse struct {
	ID          string `json:"id"`
	SolicitudID string `json:"solicitudId"`
	NumeroOrden string `json:"numeroOrden"`
	MontoCents  int64  `json:"montoCents"`
	Metodo      string `json:"metodo"`
	Estado      string `json:"estado"`
	Conciliado  bool   `json:"conciliado"`
}

func toPagoResponse(p *pago.Pago) pagoResponse {
	return pagoResponse{
		ID:          p.ID.String(),
		SolicitudID: p.SolicitudID.String(),
		NumeroOrden: p.NumeroOrden,
		MontoCents:  p.MontoCents,
		Metodo:      string(p.Metodo),
		Estado:      string(p.Estado),
		Conciliado:  p.Conciliado,
	}
}

func (h *pagoHandler) handleIniciarPago(w http.ResponseWriter, r *http.Request) {
	var req iniciarPagoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "cuerpo de la peticion invalido"))
		return
	}
	solicitudID, err := domain.ParseSolicitudID(req.SolicitudID)
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.bridge.IniciarPago(r.Context(), pago.IniciarPagoInput{
		SolicitudID: solicitudID,
		NumeroOrden: req.NumeroOrden,
		MontoCents:  req.MontoCents,
		Metodo:      pago.Metodo(req.Metodo),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPagoResponse(p))
}

func (h *pagoHandler) handleGetPago(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParsePagoID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	p, err := h.bridge.GetPago(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toPagoResponse(p))
}

type webhookResponse struct {
	ID             string     `json:"id"`
	Procesado      bool       `json:"procesado"`
	ErrorProceso   string     `json:"errorProceso,omitempty"`
	FechaRecepcion time.Time  `json:"fechaRecepcion"`
	FechaProceso   *time.Time `json:"fechaProceso,omitempty"`
}

func toWebhookResponse(e *pago.WebhookEvento) webhookResponse {
	return webhookResponse{
		ID:             e.ID.String(),
		Procesado:      e.Procesado,
		ErrorProceso:   e.ErrorProceso,
		FechaRecepcion: e.FechaRecepcion,
		FechaProceso:   e.FechaProceso,
	}
}

func (h *pagoHandler) handlePendientes(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	list, err := h.bridge.ListUnprocessed(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]webhookResponse, 0, len(list))
	for _, e := range list {
		out = append(out, toWebhookResponse(e))
	}
	writeJSON(w, http.StatusOK, map[string]any{"webhooks": out})
}

func (h *pagoHandler) handleGetWebhook(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseWebhookID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	e, err := h.bridge.GetWebhook(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWebhookResponse(e))
}

func (h *pagoHandler) handleReprocess(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseWebhookID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.bridge.Reprocess(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	e, err := h.bridge.GetWebhook(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWebhookResponse(e))
}
