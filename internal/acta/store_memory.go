package acta

import (
	"context"
	"sort"
	"sync"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu          sync.RWMutex
	actas       map[domain.ActaID]*Acta
	bySolicitud map[domain.SolicitudID]domain.ActaID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		actas:       make(map[domain.ActaID]*Acta),
		bySolicitud: make(map[domain.SolicitudID]domain.ActaID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, a *Acta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.actas[a.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.bySolicitud[a.SolicitudID]; exists {
		return sentinel.ErrConflict
	}
	clone := *a
	s.actas[a.ID] = &clone
	s.bySolicitud[a.SolicitudID] = a.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.ActaID) (*Acta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.actas[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (s *InMemoryStore) FindBySolicitud(_ context.Context, solicitudID domain.SolicitudID) (*Acta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySolicitud[solicitudID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.actas[id]
	return &clone, nil
}

func (s *InMemoryStore) Update(_ context.Context, a *Acta) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.actas[a.ID]; !exists {
		return sentinel.ErrNotFound
	}
	clone := *a
	s.actas[a.ID] = &clone
	return nil
}

func (s *InMemoryStore) ListByEstado(_ context.Context, estado Estado) ([]*Acta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Acta
	for _, stored := range s.actas {
		if stored.Estado == estado {
			clone := *stored
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FechaCreacion.Before(out[j].FechaCreacion)
	})
	return out, nil
}
