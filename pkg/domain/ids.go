// Package domain holds the typed identifiers shared across the certificate
// workflow. Each entity gets its own UUID-backed type so a PagoID can never be
// passed where a SolicitudID is expected.
package domain

import (
	"github.com/google/uuid"

	dErrors "github.com/dewauriarte/SIGCERH-sub005/pkg/domain-errors"
)

type (
	// SolicitudID identifies a certificate request.
	SolicitudID uuid.UUID
	// ActaID identifies a physical grade-record (acta fisica).
	ActaID uuid.UUID
	// PagoID identifies a payment.
	PagoID uuid.UUID
	// WebhookID identifies a received payment-gateway webhook.
	WebhookID uuid.UUID
	// NotificacionID identifies a queued notification event.
	NotificacionID uuid.UUID
	// UsuarioID identifies a human actor. Nil for system actions.
	UsuarioID uuid.UUID
)

// NewSolicitudID returns a fresh request identifier.
func NewSolicitudID() SolicitudID { return SolicitudID(uuid.New()) }

// NewActaID returns a fresh acta identifier.
func NewActaID() ActaID { return ActaID(uuid.New()) }

// NewPagoID returns a fresh payment identifier.
func NewPagoID() PagoID { return PagoID(uuid.New()) }

// NewWebhookID returns a fresh webhook identifier.
func NewWebhookID() WebhookID { return WebhookID(uuid.New()) }

// NewNotificacionID returns a fresh notification identifier.
func NewNotificacionID() NotificacionID { return NotificacionID(uuid.New()) }

// NewUsuarioID returns a fresh actor identifier.
func NewUsuarioID() UsuarioID { return UsuarioID(uuid.New()) }

func (id SolicitudID) String() string    { return uuid.UUID(id).String() }
func (id ActaID) String() string         { return uuid.UUID(id).String() }
func (id PagoID) String() string         { return uuid.UUID(id).String() }
func (id WebhookID) String() string      { return uuid.UUID(id).String() }
func (id NotificacionID) String() string { return uuid.UUID(id).String() }
func (id UsuarioID) String() string      { return uuid.UUID(id).String() }

func (id SolicitudID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ActaID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id PagoID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id WebhookID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id NotificacionID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UsuarioID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the ID invariant at trust boundaries: valid, non-empty,
// non-nil UUIDs only.
func parseUUID(raw string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be empty")
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Wrap(err, dErrors.CodeInvalidInput, "id is not a valid UUID")
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "id must not be the nil UUID")
	}
	return parsed, nil
}

// ParseSolicitudID parses and validates a request identifier.
func ParseSolicitudID(raw string) (SolicitudID, error) {
	parsed, err := parseUUID(raw)
	return SolicitudID(parsed), err
}

// ParseActaID parses and validates an acta identifier.
func ParseActaID(raw string) (ActaID, error) {
	parsed, err := parseUUID(raw)
	return ActaID(parsed), err
}

// ParsePagoID parses and validates a payment identifier.
func ParsePagoID(raw string) (PagoID, error) {
	parsed, err := parseUUID(raw)
	return PagoID(parsed), err
}

// ParseWebhookID parses and validates a webhook identifier.
func ParseWebhookID(raw string) (WebhookID, error) {
	parsed, err := parseUUID(raw)
	return WebhookID(parsed), err
}

// ParseNotificacionID parses and validates a notification identifier.
func ParseNotificacionID(raw string) (NotificacionID, error) {
	parsed, err := parseUUID(raw)
	return NotificacionID(parsed), err
}

// ParseUsuarioID parses and validates an actor identifier.
func ParseUsuarioID(raw string) (UsuarioID, error) {
	parsed, err := parseUUID(raw)
	return UsuarioID(parsed), err
}
