package solicitud

import (
	"context"
	"sync"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/platform/sentinel"
)

// InMemoryStore backs development and unit tests. Copies in, copies out.
type InMemoryStore struct {
	mu          sync.RWMutex
	solicitudes map[domain.SolicitudID]*Solicitud
	expedientes map[string]struct{}
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		solicitudes: make(map[domain.SolicitudID]*Solicitud),
		expedientes: make(map[string]struct{}),
	}
}

func (s *InMemoryStore) Create(_ context.Context, solicitud *Solicitud) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.solicitudes[solicitud.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.expedientes[solicitud.NumeroExpediente]; exists {
		return sentinel.ErrConflict
	}
	clone := *solicitud
	s.solicitudes[solicitud.ID] = &clone
	s.expedientes[solicitud.NumeroExpediente] = struct{}{}
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.SolicitudID) (*Solicitud, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.solicitudes[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (s *InMemoryStore) Update(_ context.Context, solicitud *Solicitud) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.solicitudes[solicitud.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *solicitud
	s.solicitudes[solicitud.ID] = &clone
	return nil
}

func (s *InMemoryStore) ListByEstado(_ context.Context, estado Estado) ([]*Solicitud, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Solicitud
	for _, stored := range s.solicitudes {
		if stored.Estado == estado {
			clone := *stored
			out = append(out, &clone)
		}
	}
	return out, nil
}
