package httptransport

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dewauriarte/SIGCERH-sub005/internal/acta"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
)

type actaHandler struct {
	service *acta.Service
	logger  *slog.Logger
}

type createActaRequest struct {
	SolicitudID string `json:"solicitudId"`
	Libro       string `json:"libro"`
	Folio       string `json:"folio"`
	Anio        int    `json:"anio"`
	Institucion string `json:"institucion"`
	Ubicacion   string `json:"ubicacion"`
}

type actaResponse struct {
	ID             string     `json:"id"`
	SolicitudID    string     `json:"solicitudId"`
	Libro          string     `json:"libro"`
	Folio          string     `json:"folio"`
	Anio           int        `json:"anio"`
	Institucion    string     `json:"institucion"`
	Ubicacion      string     `json:"ubicacion,omitempty"`
	Estado         string     `json:"estado"`
	AsignadoA      *string    `json:"asignadoA,omitempty"`
	Observaciones  string     `json:"observaciones,omitempty"`
	FechaResultado *time.Time `json:"fechaResultado,omitempty"`
}

func toActaResponse(a *acta.Acta) actaResponse {
	resp := actaResponse{
		ID:             a.ID.String(),
		SolicitudID:    a.SolicitudID.String(),
		Libro:          a.Libro,
		Folio:          a.Folio,
		Anio:           a.Anio,
		Institucion:    a.Institucion,
		Ubicacion:      a.Ubicacion,
		Estado:         string(a.Estado),
		Observaciones:  a.Observaciones,
		FechaResultado: a.FechaResultado,
	}
	if a.AsignadoA != nil {
		id := a.AsignadoA.String()
		resp.AsignadoA = &id
	}
	return resp
}

func (h *actaHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createActaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "cuerpo de la peticion invalido"))
		return
	}
	solicitudID, err := domain.ParseSolicitudID(req.SolicitudID)
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := h.service.Crear(r.Context(), acta.CrearInput{
		SolicitudID: solicitudID,
		Libro:       req.Libro,
		Folio:       req.Folio,
		Anio:        req.Anio,
		Institucion: req.Institucion,
		Ubicacion:   req.Ubicacion,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toActaResponse(a))
}

func (h *actaHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseActaID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActaResponse(a))
}

func (h *actaHandler) handleList(w http.ResponseWriter, r *http.Request) {
	estado := acta.Estado(r.URL.Query().Get("estado"))
	list, err := h.service.ListByEstado(r.Context(), estado)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]actaResponse, 0, len(list))
	for _, a := range list {
		out = append(out, toActaResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]any{"actas": out})
}

type asignarRequest struct {
	EditorID string `json:"editorId"`
}

func (h *actaHandler) handleAsignar(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseActaID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req asignarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "cuerpo de la peticion invalido"))
		return
	}
	editor, err := domain.ParseUsuarioID(req.EditorID)
	if err != nil {
		writeError(w, err)
		return
	}
	a, err := h.service.Asignar(r.Context(), id, editor)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActaResponse(a))
}

type resultadoRequest struct {
	Ubicacion     string `json:"ubicacion"`
	Observaciones string `json:"observaciones"`
}

func (h *actaHandler) handleEncontrada(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseActaID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req resultadoRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "cuerpo de la peticion invalido"))
			return
		}
	}
	a, err := h.service.MarcarEncontrada(r.Context(), id, req.Ubicacion)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActaResponse(a))
}

func (h *actaHandler) handleNoEncontrada(w http.ResponseWriter, r *http.Request) {
	id, err := domain.ParseActaID(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	var req resultadoRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "cuerpo de la peticion invalido"))
			return
		}
	}
	a, err := h.service.MarcarNoEncontrada(r.Context(), id, req.Observaciones)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toActaResponse(a))
}
