package httptransport

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dewauriarte/SIGCERH-sub005/internal/acta"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/middleware"
	"github.com/dewauriarte/SIGCERH-sub005/internal/solicitud"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
)

type solicitudHandler struct {
	engine *solicitud.Engine
	actas  *acta.Service
	logger *slog.Logger
}

type createSolicitudRequest struct {
	NumeroExpediente string `json:"numeroExpediente"`
	Estudiante       string `json:"estudiante"`
	Modalidad        string `json:"modalidad"`
	Prioridad        string `json:"prioridad"`
	Destinatario     string `json:"destinatario"`
	Canal            string `json:"canal"`
}

type solicitudResponse struct {
	ID               string     `json:"id"`
	NumeroExpediente string     `json:"numeroExpediente"`
	Estudiante       string     `json:"estudiante"`
	Estado           string     `json:"estado"`
	Modalidad        string     `json:"modalidad"`
	Prioridad        string     `json:"prioridad"`
	ActaID           *string    `json:"actaId,omitempty"`
	PagoID           *string    `json:"pagoId,omitempty"`
	FechaSolicitud   time.Time  `json:"fechaSolicitud"`
	FechaEmision     *time.Time `json:"fechaEmision,omitempty"`
	FechaEntrega     *time.Time `json:"fechaEntrega,omitempty"`
	MotivoRechazo    string     `json:"motivoRechazo,omitempty"`
}

func toSolicitudResponse(s *solicitud.Solicitud) solicitudResponse {
	resp := solicitudResponse{
		ID:               s.ID.String(),
		NumeroExpediente: s.NumeroExpediente,
		Estudiante:       s.Estudiante,
		Estado:           string(s.Estado),
		Modalidad:        string(s.Modalidad),
		Prioridad:        string(s.Prioridad),
		FechaSolicitud:   s.FechaSolicitud,
		FechaEmision:     s.FechaEmision,
		FechaEntrega:     s.FechaEntrega,
		MotivoRechazo:    s.MotivoRechazo,
	}
	if s.ActaID != nil {
		id := s.ActaID.String()
		resp.ActaID = &id
	}
	if s.PagoID != nil {
		id := s.PagoID.String()
		resp.PagoID = &id
	}
	return resp
}

func (h *solicitudHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createSolicitudRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "cuerpo de la peticion invalido"))
		return
	}

	s, err := h.engine.Create(r.Context(), solicitud.CreateInput{
		NumeroExpediente: req.NumeroExpediente,
		Estudiante:       req.Estudiante,
		Modalidad:        solicitud.Modalidad(req.Modalidad),
		Prioridad:        solicitud.Prioridad(req.Prioridad),
		Destinatario:     req.Destinatario,
		Canal:            notificacionCanal(req.Canal),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toSolicitudResponse(s))
}

func (h *solicitudHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSolicitudID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	s, err := h.engine.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSolicitudResponse(s))
}

func (h *solicitudHandler) handleList(w http.ResponseWriter, r *http.Request) {
	estado, err := solicitud.ParseEstado(r.URL.Query().Get("estado"))
	if err != nil {
		writeError(w, err)
		return
	}
	list, err := h.engine.ListByEstado(r.Context(), estado)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]solicitudResponse, 0, len(list))
	for _, s := range list {
		out = append(out, toSolicitudResponse(s))
	}
	writeJSON(w, http.StatusOK, map[string]any{"solicitudes": out})
}

type transitionRequest struct {
	Estado  string         `json:"estado"`
	Rol     string         `json:"rol"`
	Payload map[string]any `json:"payload"`
}

func (h *solicitudHandler) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSolicitudID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req transitionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "cuerpo de la peticion invalido"))
		return
	}
	target, err := solicitud.ParseEstado(req.Estado)
	if err != nil {
		writeError(w, err)
		return
	}
	rol, err := actorRol(r.Context(), req.Rol)
	if err != nil {
		writeError(w, err)
		return
	}

	payload := solicitud.Payload(req.Payload)
	if target == solicitud.EstadoActaEncontradaPendientePago {
		// The search outcome is a data precondition supplied by the acta
		// subsystem, never typed in by the caller.
		payload, err = h.actas.PreconditionPayload(r.Context(), id, payload)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	result, err := h.engine.AttemptTransition(r.Context(), id, target, rol, payload)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"solicitud":  toSolicitudResponse(result.Solicitud),
		"auditId":    result.AuditID.String(),
		"reentrante": result.Reentrante,
	})
}

func (h *solicitudHandler) handleTransiciones(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSolicitudID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	s, err := h.engine.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	var probeRol solicitud.Rol
	if raw := r.URL.Query().Get("rol"); raw != "" {
		probeRol, err = solicitud.ParseRol(raw)
		if err != nil {
			writeError(w, err)
			return
		}
	}

	next := solicitud.NextStates(s.Estado)
	out := make([]map[string]any, 0, len(next))
	for _, target := range next {
		item := map[string]any{
			"estado":       string(target),
			"roles":        solicitud.RolesFor(s.Estado),
			"requiereData": solicitud.RequiredData(s.Estado, target),
		}
		if probeRol != "" {
			// Probe with the edge's required data marked present so the
			// answer reflects authorization, not the caller's form state.
			probe := solicitud.Payload{}
			for _, key := range solicitud.RequiredData(s.Estado, target) {
				probe[key] = true
			}
			item["permitido"] = h.engine.CanTransition(r.Context(), id, target, probeRol, probe) == nil
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"estado":       string(s.Estado),
		"terminal":     solicitud.IsTerminal(s.Estado),
		"transiciones": out,
	})
}

func (h *solicitudHandler) handleHistorial(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseSolicitudID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	trail, err := h.engine.Historial(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(trail))
	for _, entry := range trail {
		item := map[string]any{
			"id":     entry.ID.String(),
			"accion": string(entry.Accion),
			"fecha":  entry.Fecha,
		}
		if entry.UsuarioID != nil {
			item["usuarioId"] = entry.UsuarioID.String()
		}
		if entry.Dispositivo != "" {
			item["dispositivo"] = entry.Dispositivo
		}
		out = append(out, item)
	}
	writeJSON(w, http.StatusOK, map[string]any{"historial": out})
}

// actorRol resolves the acting role. The caller may name one of its assigned
// roles; otherwise the first assigned role acts. A requested role outside the
// JWT claims fails closed, and SISTEMA is reserved for internal callers.
func actorRol(ctx context.Context, requested string) (solicitud.Rol, error) {
	claims := middleware.GetRoles(ctx)
	if requested != "" {
		rol, err := solicitud.ParseRol(requested)
		if err != nil {
			return "", err
		}
		if rol == solicitud.RolSistema {
			return "", dErrors.New(dErrors.CodeUnauthorizedRole, "el rol SISTEMA no puede actuar por la API")
		}
		for _, assigned := range claims {
			if assigned == requested {
				return rol, nil
			}
		}
		return "", dErrors.Newf(dErrors.CodeUnauthorizedRole, "el actor no tiene el rol %q", requested)
	}
	for _, assigned := range claims {
		if assigned == string(solicitud.RolSistema) {
			continue
		}
		return solicitud.ParseRol(assigned)
	}
	return "", dErrors.New(dErrors.CodeUnauthorizedRole, "el actor no tiene roles asignados")
}
