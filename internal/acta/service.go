package acta

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dewauriarte/SIGCERH-sub005/internal/auditoria"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/middleware"
	"github.com/dewauriarte/SIGCERH-sub005/internal/solicitud"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/platform/sentinel"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/platform/tx"
)

// Service runs the acta search lifecycle. Every mutation lands in the audit
// trail under the acta_fisica entity.
type Service struct {
	store  Store
	audit  *auditoria.Publisher
	logger *slog.Logger
	runner tx.Runner
	now    func() time.Time
}

func NewService(store Store, audit *auditoria.Publisher, logger *slog.Logger, runner tx.Runner) *Service {
	return &Service{store: store, audit: audit, logger: logger, runner: runner, now: time.Now}
}

// CrearInput registers the archival reference the editor will search for.
type CrearInput struct {
	SolicitudID domain.SolicitudID
	Libro       string
	Folio       string
	Anio        int
	Institucion string
	Ubicacion   string
}

// Crear registers an acta reference in DISPONIBLE.
func (s *Service) Crear(ctx context.Context, input CrearInput) (*Acta, error) {
	if input.SolicitudID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "solicitud_id requerido")
	}
	if input.Libro == "" || input.Folio == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "libro y folio requeridos")
	}
	if input.Anio < 1950 || input.Anio > s.now().Year() {
		return nil, dErrors.Newf(dErrors.CodeInvalidInput, "anio fuera de rango: %d", input.Anio)
	}

	a := &Acta{
		ID:            domain.NewActaID(),
		SolicitudID:   input.SolicitudID,
		Libro:         input.Libro,
		Folio:         input.Folio,
		Anio:          input.Anio,
		Institucion:   input.Institucion,
		Ubicacion:     input.Ubicacion,
		Estado:        EstadoDisponible,
		FechaCreacion: s.now(),
	}

	err := tx.Run(ctx, s.runner, func(ctx context.Context) error {
		if err := s.store.Create(ctx, a); err != nil {
			return fmt.Errorf("create acta: %w", err)
		}
		_, err := s.audit.Record(ctx, s.entry(ctx, a.ID, auditoria.AccionCrear, nil, a))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("acta registrada",
		"acta_id", a.ID.String(),
		"solicitud_id", a.SolicitudID.String(),
		"libro", a.Libro,
		"folio", a.Folio,
	)
	return a, nil
}

// Asignar hands the acta to an editor for archive search.
func (s *Service) Asignar(ctx context.Context, id domain.ActaID, editor domain.UsuarioID) (*Acta, error) {
	return s.move(ctx, id, EstadoAsignadaBusqueda, func(a *Acta) {
		now := s.now()
		a.AsignadoA = &editor
		a.FechaAsignacion = &now
		a.FechaResultado = nil
		a.Observaciones = ""
	})
}

// MarcarEncontrada closes the search successfully. Terminal: a found acta is
// never searched again.
func (s *Service) MarcarEncontrada(ctx context.Context, id domain.ActaID, ubicacion string) (*Acta, error) {
	return s.move(ctx, id, EstadoEncontrada, func(a *Acta) {
		now := s.now()
		a.FechaResultado = &now
		if ubicacion != "" {
			a.Ubicacion = ubicacion
		}
	})
}

// MarcarNoEncontrada records a failed pass. The acta may be reassigned for
// another search.
func (s *Service) MarcarNoEncontrada(ctx context.Context, id domain.ActaID, observaciones string) (*Acta, error) {
	return s.move(ctx, id, EstadoNoEncontrada, func(a *Acta) {
		now := s.now()
		a.FechaResultado = &now
		a.Observaciones = observaciones
	})
}

// Reasignar sends a NO_ENCONTRADA acta back into search with a different
// editor.
func (s *Service) Reasignar(ctx context.Context, id domain.ActaID, editor domain.UsuarioID) (*Acta, error) {
	return s.Asignar(ctx, id, editor)
}

// Get returns one acta.
func (s *Service) Get(ctx context.Context, id domain.ActaID) (*Acta, error) {
	return s.store.FindByID(ctx, id)
}

// ListByEstado returns the actas currently in estado, oldest first.
func (s *Service) ListByEstado(ctx context.Context, estado Estado) ([]*Acta, error) {
	return s.store.ListByEstado(ctx, estado)
}

// PreconditionPayload stamps the transition payload with the acta search
// outcome: the acta_encontrada key is the acta record's verdict alone, filled
// in when the request's acta is ENCONTRADA and stripped otherwise, whatever
// the caller sent. The lifecycle engine stays ignorant of actas; this is the
// only coupling point.
func (s *Service) PreconditionPayload(ctx context.Context, solicitudID domain.SolicitudID, payload solicitud.Payload) (solicitud.Payload, error) {
	out := solicitud.Payload{}
	for k, v := range payload {
		out[k] = v
	}
	delete(out, solicitud.DataActaEncontrada)

	a, err := s.store.FindBySolicitud(ctx, solicitudID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return out, nil
		}
		return nil, err
	}
	if a.Estado != EstadoEncontrada {
		return out, nil
	}
	out[solicitud.DataActaEncontrada] = a.ID.String()
	return out, nil
}

// move commits one guarded acta transition with its audit entry.
func (s *Service) move(ctx context.Context, id domain.ActaID, target Estado, mutate func(*Acta)) (*Acta, error) {
	a, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canMove(a.Estado, target) {
		return nil, dErrors.Newf(dErrors.CodeIllegalTransition,
			"transicion de acta no permitida de %q a %q", a.Estado, target)
	}

	before := *a
	a.Estado = target
	mutate(a)

	err = tx.Run(ctx, s.runner, func(ctx context.Context) error {
		if err := s.store.Update(ctx, a); err != nil {
			return fmt.Errorf("update acta: %w", err)
		}
		accion := auditoria.AccionActualizar
		if target == EstadoNoEncontrada {
			accion = auditoria.AccionRechazar
		}
		_, err := s.audit.Record(ctx, s.entry(ctx, a.ID, accion, &before, a))
		return err
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("acta actualizada",
		"acta_id", a.ID.String(),
		"de", string(before.Estado),
		"a", string(target),
	)
	return a, nil
}

func (s *Service) entry(ctx context.Context, id domain.ActaID, accion auditoria.Accion, before, after any) auditoria.Entry {
	entry := auditoria.Entry{
		Entidad:         auditoria.EntidadActa,
		EntidadID:       id.String(),
		Accion:          accion,
		DatosAnteriores: auditoria.Snapshot(before),
		DatosNuevos:     auditoria.Snapshot(after),
		IP:              middleware.GetClientIP(ctx),
		UserAgent:       middleware.GetUserAgent(ctx),
	}
	if raw := middleware.GetUsuarioID(ctx); raw != "" {
		if usuarioID, err := domain.ParseUsuarioID(raw); err == nil {
			entry.UsuarioID = &usuarioID
		}
	}
	return entry
}
