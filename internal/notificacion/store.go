package notificacion

import (
	"context"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
)

// Store persists notification events so delivery state survives restarts and
// the operator queue can list permanent failures.
type Store interface {
	Save(ctx context.Context, evento *Evento) error
	Update(ctx context.Context, evento *Evento) error
	FindByID(ctx context.Context, id domain.NotificacionID) (*Evento, error)
	ListByEstado(ctx context.Context, estado Estado) ([]*Evento, error)
}
