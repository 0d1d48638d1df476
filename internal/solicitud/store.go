package solicitud

import (
	"context"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// Store persists solicitudes. Implementations return sentinel.ErrNotFound for
// unknown ids and sentinel.ErrConflict for duplicate expediente numbers.
type Store interface {
	Create(ctx context.Context, s *Solicitud) error
	FindByID(ctx context.Context, id domain.SolicitudID) (*Solicitud, error)
	Update(ctx context.Context, s *Solicitud) error
	ListByEstado(ctx context.Context, estado Estado) ([]*Solicitud, error)
}
