package acta

import (
	"context"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// Store persists actas. Implementations return sentinel.ErrNotFound for
// unknown ids.
type Store interface {
	Create(ctx context.Context, a *Acta) error
	FindByID(ctx context.Context, id domain.ActaID) (*Acta, error)
	FindBySolicitud(ctx context.Context, solicitudID domain.SolicitudID) (*Acta, error)
	Update(ctx context.Context, a *Acta) error
	ListByEstado(ctx context.Context, estado Estado) ([]*Acta, error)
}
