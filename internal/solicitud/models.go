package solicitud

import (
	"time"

	"github.com/google/uuid"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// Modalidad is the delivery mode chosen at intake.
type Modalidad string

const (
	ModalidadDigital Modalidad = "DIGITAL"
	ModalidadFisica  Modalidad = "FISICA"
)

// Prioridad orders notification dispatch and operator work queues.
type Prioridad string

const (
	PrioridadNormal  Prioridad = "NORMAL"
	PrioridadAlta    Prioridad = "ALTA"
	PrioridadUrgente Prioridad = "URGENTE"
)

// Solicitud is one certificate request. Estado changes only through
// Engine.AttemptTransition; the milestone timestamps record when each
// checkpoint was reached.
type Solicitud struct {
	ID               domain.SolicitudID
	NumeroExpediente string
	Estudiante       string
	Estado           Estado
	Modalidad        Modalidad
	Prioridad        Prioridad
	ActaID           *domain.ActaID
	PagoID           *domain.PagoID

	FechaSolicitud      time.Time
	FechaDerivacion     *time.Time
	FechaValidacionPago *time.Time
	FechaEmision        *time.Time
	FechaEntrega        *time.Time
	FechaRechazo        *time.Time
	MotivoRechazo       string
	FechaActualizacion  time.Time
}

// Payload carries the named data keys a transition supplies. The guard checks
// required keys for presence and non-nil values.
type Payload map[string]any

// Has reports whether the key is present with a non-nil, non-empty value.
func (p Payload) Has(key string) bool {
	v, ok := p[key]
	if !ok || v == nil {
		return false
	}
	if s, isString := v.(string); isString && s == "" {
		return false
	}
	return true
}

// TransitionResult reports a committed transition.
type TransitionResult struct {
	Solicitud   *Solicitud
	NuevoEstado Estado
	AuditID     uuid.UUID
	// Reentrante marks the OBSERVADO_POR_UGEL → EN_VALIDACION_UGEL loop,
	// counted separately in metrics but authorized like any other edge.
	Reentrante bool
}

// applyMilestone stamps the timestamp fields the target state owns, mirroring
// the request's paper trail.
func applyMilestone(s *Solicitud, target Estado, now time.Time, payload Payload) {
	switch target {
	case EstadoDerivadoAEditor:
		s.FechaDerivacion = &now
	case EstadoPagoValidado:
		s.FechaValidacionPago = &now
		if pagoID, ok := payload[DataPagoID].(string); ok {
			if parsed, err := domain.ParsePagoID(pagoID); err == nil {
				s.PagoID = &parsed
			}
		}
	case EstadoActaNoEncontrada:
		s.FechaRechazo = &now
		s.MotivoRechazo = "Acta fisica no encontrada en archivo"
	case EstadoActaEncontradaPendientePago:
		if actaID, ok := payload[DataActaEncontrada].(string); ok {
			if parsed, err := domain.ParseActaID(actaID); err == nil {
				s.ActaID = &parsed
			}
		}
	case EstadoCertificadoEmitido:
		s.FechaEmision = &now
	case EstadoEntregado:
		s.FechaEntrega = &now
	}
	s.FechaActualizacion = now
}
