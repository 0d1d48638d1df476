// Package pago owns payments and the gateway webhook bridge. Webhook events
// are acknowledged on receipt and reconciled asynchronously against the
// request lifecycle.
package pago

import (
	"encoding/json"
	"time"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// Estado is the payment state. A payment becomes immutable once VALIDADO or
// RECHAZADO.
type Estado string

const (
	EstadoPendiente Estado = "PENDIENTE"
	EstadoPagado    Estado = "PAGADO"
	EstadoValidado  Estado = "VALIDADO"
	EstadoRechazado Estado = "RECHAZADO"
	EstadoExpirado  Estado = "EXPIRADO"
)

// Metodo is the payment method reported by the gateway or the front desk.
type Metodo string

const (
	MetodoTarjeta       Metodo = "TARJETA"
	MetodoTransferencia Metodo = "TRANSFERENCIA"
	MetodoEfectivo      Metodo = "EFECTIVO"
	MetodoYape          Metodo = "YAPE"
)

// Pago is one payment, owned by exactly one request. NumeroOrden is the
// external correlation key the gateway echoes back in webhooks.
type Pago struct {
	ID          domain.PagoID
	SolicitudID domain.SolicitudID
	NumeroOrden string
	MontoCents  int64
	Metodo      Metodo
	Estado      Estado

	Conciliado         bool
	FechaConciliacion  *time.Time
	TransactionID      string
	FechaCreacion      time.Time
	FechaActualizacion time.Time
}

// WebhookEvento is one received gateway callback. Payload and headers are
// stored verbatim; only the processing fields mutate after receipt.
type WebhookEvento struct {
	ID      domain.WebhookID
	Payload json.RawMessage
	Headers json.RawMessage

	Procesado      bool
	ErrorProceso   string
	FechaRecepcion time.Time
	FechaProceso   *time.Time
}

// webhookPayload is the shape the bridge understands. Unknown estados are
// preserved in storage and reconciled as a no-op.
type webhookPayload struct {
	Evento        string `json:"evento"`
	Estado        string `json:"estado"`
	NumeroOrden   string `json:"numeroOrden"`
	TransactionID string `json:"transactionId"`
}

// Gateway estados the bridge acts on.
const (
	gatewayAprobado  = "APROBADO"
	gatewayPagado    = "PAGADO"
	gatewayRechazado = "RECHAZADO"
)
