// Package notificacion queues and dispatches workflow notifications. Delivery
// mechanics (SMTP, SMS gateways) live behind the Channel interface; this
// package owns ordering, retry, and permanent-failure escalation.
package notificacion

import (
	"time"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// Tipo labels the business meaning of a notification.
type Tipo string

const (
	TipoSolicitudRecibida              Tipo = "SOLICITUD_RECIBIDA"
	TipoSolicitudDerivada              Tipo = "SOLICITUD_DERIVADA"
	TipoActaEncontrada                 Tipo = "ACTA_ENCONTRADA"
	TipoActaNoEncontrada               Tipo = "ACTA_NO_ENCONTRADA"
	TipoPagoRecibido                   Tipo = "PAGO_RECIBIDO"
	TipoCertificadoPendienteValidacion Tipo = "CERTIFICADO_PENDIENTE_VALIDACION"
	TipoCertificadoObservado           Tipo = "CERTIFICADO_OBSERVADO"
	TipoCertificadoEmitido             Tipo = "CERTIFICADO_EMITIDO"
	TipoCertificadoListo               Tipo = "CERTIFICADO_LISTO"
)

// Canal selects the delivery channel.
type Canal string

const (
	CanalEmail    Canal = "EMAIL"
	CanalWhatsApp Canal = "WHATSAPP"
	CanalSMS      Canal = "SMS"
)

// Estado is the delivery state of one queued event.
type Estado string

const (
	EstadoPendiente Estado = "PENDIENTE"
	EstadoEnviada   Estado = "ENVIADA"
	EstadoFallida   Estado = "FALLIDA"
	EstadoReenviada Estado = "REENVIADA"
)

// Prioridad orders the queue: urgent before high before normal, FIFO within
// a level.
type Prioridad int

const (
	PrioridadNormal  Prioridad = 0
	PrioridadAlta    Prioridad = 1
	PrioridadUrgente Prioridad = 2
)

// Evento is one queued notification.
type Evento struct {
	ID           domain.NotificacionID
	Tipo         Tipo
	Canal        Canal
	SolicitudID  domain.SolicitudID
	Destinatario string
	Estado       Estado
	Prioridad    Prioridad
	Payload      map[string]any

	FechaEncolado  time.Time
	Intentos       int
	ProximoIntento time.Time
	UltimoError    string
}
