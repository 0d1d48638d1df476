package auditoria

import "context"

// Store persists audit entries. Append-only: no update or delete methods, by
// construction rather than by convention.
type Store interface {
	Append(ctx context.Context, entry Entry) error
	// ListByEntidad returns the complete trail for one entity, oldest first.
	ListByEntidad(ctx context.Context, entidad, entidadID string) ([]Entry, error)
}
