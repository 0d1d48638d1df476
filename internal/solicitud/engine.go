package solicitud

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/dewauriarte/SIGCERH-sub005/internal/auditoria"
	"github.com/dewauriarte/SIGCERH-sub005/internal/notificacion"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/metrics"
	"github.com/dewauriarte/SIGCERH-sub005/internal/platform/middleware"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/platform/tx"
)

// Notifier enqueues a notification event. The engine only produces events for
// notifiable states; delivery and retry live in the notificacion package.
type Notifier interface {
	Enqueue(ctx context.Context, evento *notificacion.Evento) error
}

// Engine commits guarded transitions. Per solicitud the sequence
// load → guard → commit runs under a keyed lock, so concurrent callers
// serialize and the loser of a race is judged against the winner's committed
// state. State, audit entry, and notification row commit in one transaction
// when a tx.Runner is configured.
type Engine struct {
	store    Store
	audit    *auditoria.Publisher
	notifier Notifier
	metrics  *metrics.Metrics
	logger   *slog.Logger
	runner   tx.Runner
	locks    *keyedLocks
	tracer   trace.Tracer
	now      func() time.Time
}

// NewEngine builds the engine. notifier and runner may be nil: without a
// notifier no events are produced, without a runner writes are not wrapped in
// a database transaction (the in-memory stores need none).
func NewEngine(store Store, audit *auditoria.Publisher, notifier Notifier, m *metrics.Metrics, logger *slog.Logger, runner tx.Runner) *Engine {
	return &Engine{
		store:    store,
		audit:    audit,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
		runner:   runner,
		locks:    newKeyedLocks(),
		tracer:   otel.Tracer("solicitud"),
		now:      time.Now,
	}
}

// CreateInput is the intake form for a new request.
type CreateInput struct {
	NumeroExpediente string
	Estudiante       string
	Modalidad        Modalidad
	Prioridad        Prioridad
	Destinatario     string
	Canal            notificacion.Canal
}

// Create registers a request in REGISTRADA, writes the CREAR audit entry and
// enqueues the reception notice.
func (e *Engine) Create(ctx context.Context, input CreateInput) (*Solicitud, error) {
	if input.NumeroExpediente == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "numero de expediente requerido")
	}
	if input.Estudiante == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "nombre del estudiante requerido")
	}
	if input.Modalidad == "" {
		input.Modalidad = ModalidadDigital
	}
	if input.Prioridad == "" {
		input.Prioridad = PrioridadNormal
	}
	if input.Canal == "" {
		input.Canal = notificacion.CanalEmail
	}

	now := e.now()
	s := &Solicitud{
		ID:                 domain.NewSolicitudID(),
		NumeroExpediente:   input.NumeroExpediente,
		Estudiante:         input.Estudiante,
		Estado:             EstadoRegistrada,
		Modalidad:          input.Modalidad,
		Prioridad:          input.Prioridad,
		FechaSolicitud:     now,
		FechaActualizacion: now,
	}

	err := tx.Run(ctx, e.runner, func(ctx context.Context) error {
		if err := e.store.Create(ctx, s); err != nil {
			return fmt.Errorf("create solicitud: %w", err)
		}
		if _, err := e.audit.Record(ctx, e.entry(ctx, s.ID, auditoria.AccionCrear, nil, s)); err != nil {
			return err
		}
		return e.enqueueNotice(ctx, s, notificacion.TipoSolicitudRecibida, notificacion.PrioridadNormal, input.Destinatario, input.Canal)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("solicitud registrada",
		"solicitud_id", s.ID.String(),
		"expediente", s.NumeroExpediente,
		"modalidad", string(s.Modalidad),
	)
	return s, nil
}

// AttemptTransition moves a request along one edge of the lifecycle graph.
// The guard runs against the state read under the per-solicitud lock; a
// rejection leaves no trace anywhere (no state change, no audit entry, no
// notification).
func (e *Engine) AttemptTransition(ctx context.Context, id domain.SolicitudID, target Estado, rol Rol, payload Payload) (*TransitionResult, error) {
	ctx, span := e.tracer.Start(ctx, "solicitud.transition",
		trace.WithAttributes(
			attribute.String("solicitud.id", id.String()),
			attribute.String("transition.target", string(target)),
			attribute.String("transition.rol", string(rol)),
		))
	defer span.End()

	unlock := e.locks.acquire(id)
	defer unlock()

	s, err := e.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("transition.from", string(s.Estado)))

	if err := Authorize(s.Estado, target, rol, payload); err != nil {
		e.metrics.TransitionsRejected.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
		e.logger.Info("transicion rechazada",
			"solicitud_id", id.String(),
			"de", string(s.Estado),
			"a", string(target),
			"rol", string(rol),
			"error", err,
		)
		return nil, err
	}

	before := *s
	now := e.now()
	from := s.Estado
	s.Estado = target
	applyMilestone(s, target, now, payload)

	var auditID uuid.UUID
	err = tx.Run(ctx, e.runner, func(ctx context.Context) error {
		if err := e.store.Update(ctx, s); err != nil {
			return fmt.Errorf("update solicitud: %w", err)
		}
		entry := e.entry(ctx, s.ID, accionFor(target), &before, s)
		id, err := e.audit.Record(ctx, entry)
		if err != nil {
			return err
		}
		auditID = id
		if tipo, prioridad, notifiable := noticeFor(target); notifiable {
			destinatario, _ := payload[DataDestinatario].(string)
			canal := notificacion.Canal("")
			if raw, ok := payload[DataCanal].(string); ok {
				canal = notificacion.Canal(raw)
			}
			if canal == "" {
				canal = notificacion.CanalEmail
			}
			if err := e.enqueueNotice(ctx, s, tipo, prioridad, destinatario, canal); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	reentrante := from == EstadoObservadoPorUGEL && target == EstadoEnValidacionUGEL
	e.metrics.TransitionsCommitted.WithLabelValues(string(from), string(target)).Inc()
	if reentrante {
		e.metrics.UgelReentries.Inc()
	}
	e.logger.Info("transicion confirmada",
		"solicitud_id", id.String(),
		"de", string(from),
		"a", string(target),
		"rol", string(rol),
		"reentrante", reentrante,
	)

	return &TransitionResult{
		Solicitud:   s,
		NuevoEstado: target,
		AuditID:     auditID,
		Reentrante:  reentrante,
	}, nil
}

// CanTransition probes the guard without committing anything. Handlers use it
// to light up or grey out actions in the operator UI.
func (e *Engine) CanTransition(ctx context.Context, id domain.SolicitudID, target Estado, rol Rol, payload Payload) error {
	s, err := e.store.FindByID(ctx, id)
	if err != nil {
		return err
	}
	return Authorize(s.Estado, target, rol, payload)
}

// Get returns one request.
func (e *Engine) Get(ctx context.Context, id domain.SolicitudID) (*Solicitud, error) {
	return e.store.FindByID(ctx, id)
}

// ListByEstado returns the requests currently in estado.
func (e *Engine) ListByEstado(ctx context.Context, estado Estado) ([]*Solicitud, error) {
	return e.store.ListByEstado(ctx, estado)
}

// Historial returns the ordered audit trail of one request.
func (e *Engine) Historial(ctx context.Context, id domain.SolicitudID) ([]auditoria.Entry, error) {
	if _, err := e.store.FindByID(ctx, id); err != nil {
		return nil, err
	}
	return e.audit.List(ctx, auditoria.EntidadSolicitud, id.String())
}

// entry assembles an audit entry from the request context: actor from the JWT
// claims, client metadata from the HTTP middleware. A missing actor means a
// system action and stays nil.
func (e *Engine) entry(ctx context.Context, id domain.SolicitudID, accion auditoria.Accion, before, after any) auditoria.Entry {
	entry := auditoria.Entry{
		Entidad:         auditoria.EntidadSolicitud,
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

func (e *Engine) enqueueNotice(ctx context.Context, s *Solicitud, tipo notificacion.Tipo, prioridad notificacion.Prioridad, destinatario string, canal notificacion.Canal) error {
	if e.notifier == nil {
		return nil
	}
	evento := &notificacion.Evento{
		ID:           domain.NewNotificacionID(),
		Tipo:         tipo,
		Canal:        canal,
		SolicitudID:  s.ID,
		Destinatario: destinatario,
		Prioridad:    elevate(prioridad, s.Prioridad),
		Payload: map[string]any{
			"expediente": s.NumeroExpediente,
			"estado":     string(s.Estado),
		},
		FechaEncolado: e.now(),
	}
	if err := e.notifier.Enqueue(ctx, evento); err != nil {
		return fmt.Errorf("enqueue notification: %w", err)
	}
	return nil
}

// noticeFor maps the states that notify the applicant to the event type and
// its base priority. States not listed are internal checkpoints.
func noticeFor(target Estado) (notificacion.Tipo, notificacion.Prioridad, bool) {
	switch target {
	case EstadoDerivadoAEditor:
		return notificacion.TipoSolicitudDerivada, notificacion.PrioridadNormal, true
	case EstadoActaEncontradaPendientePago:
		return notificacion.TipoActaEncontrada, notificacion.PrioridadAlta, true
	case EstadoActaNoEncontrada:
		return notificacion.TipoActaNoEncontrada, notificacion.PrioridadAlta, true
	case EstadoPagoValidado:
		return notificacion.TipoPagoRecibido, notificacion.PrioridadNormal, true
	case EstadoObservadoPorUGEL:
		return notificacion.TipoCertificadoObservado, notificacion.PrioridadAlta, true
	case EstadoCertificadoEmitido:
		return notificacion.TipoCertificadoEmitido, notificacion.PrioridadUrgente, true
	case EstadoEntregado:
		return notificacion.TipoCertificadoListo, notificacion.PrioridadNormal, true
	default:
		return "", notificacion.PrioridadNormal, false
	}
}

// elevate bumps the notification priority for urgent requests.
func elevate(base notificacion.Prioridad, solicitudPrioridad Prioridad) notificacion.Prioridad {
	switch solicitudPrioridad {
	case PrioridadUrgente:
		return notificacion.PrioridadUrgente
	case PrioridadAlta:
		if base < notificacion.PrioridadAlta {
			return notificacion.PrioridadAlta
		}
	}
	return base
}
