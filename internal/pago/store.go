package pago

import (
	"context"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// Store persists payments. Implementations return sentinel.ErrNotFound for
// unknown ids or order numbers and sentinel.ErrConflict for duplicate order
// numbers.
type Store interface {
	Create(ctx context.Context, p *Pago) error
	FindByID(ctx context.Context, id domain.PagoID) (*Pago, error)
	FindByNumeroOrden(ctx context.Context, numeroOrden string) (*Pago, error)
	Update(ctx context.Context, p *Pago) error
}

// WebhookStore persists received gateway events. Events are immutable except
// for the processing outcome fields.
type WebhookStore interface {
	Create(ctx context.Context, e *WebhookEvento) error
	FindByID(ctx context.Context, id domain.WebhookID) (*WebhookEvento, error)
	MarkProcessed(ctx context.Context, id domain.WebhookID, procErr string) error
	ListUnprocessed(ctx context.Context, limit int) ([]*WebhookEvento, error)
}
