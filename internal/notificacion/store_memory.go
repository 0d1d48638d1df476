package notificacion

import (
	"context"
	"sort"
	"sync"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	eventos map[domain.NotificacionID]*Evento
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{eventos: make(map[domain.NotificacionID]*Evento)}
}

func (s *InMemoryStore) Save(_ context.Context, evento *Evento) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.eventos[evento.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *evento
	s.eventos[evento.ID] = &clone
	return nil
}

func (s *InMemoryStore) Update(_ context.Context, evento *Evento) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.eventos[evento.ID]; !exists {
		return sentinel.ErrNotFound
	}
	clone := *evento
	s.eventos[evento.ID] = &clone
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.NotificacionID) (*Evento, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.eventos[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (s *InMemoryStore) ListByEstado(_ context.Context, estado Estado) ([]*Evento, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Evento
	for _, stored := range s.eventos {
		if stored.Estado == estado {
			clone := *stored
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FechaEncolado.Before(out[j].FechaEncolado)
	})
	return out, nil
}
