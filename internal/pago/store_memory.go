package pago

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/dewauriarte/SIGCERH-sub005/pkg/domain"
	"github.com/dewauriarte/SIGCERH-sub005/pkg/platform/sentinel"
)

type InMemoryStore struct {
	mu      sync.RWMutex
	pagos   map[domain.PagoID]*Pago
	byOrden map[string]domain.PagoID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		pagos:   make(map[domain.PagoID]*Pago),
		byOrden: make(map[string]domain.PagoID),
	}
}

func (s *InMemoryStore) Create(_ context.Context, p *Pago) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pagos[p.ID]; exists {
		return sentinel.ErrConflict
	}
	if _, exists := s.byOrden[p.NumeroOrden]; exists {
		return sentinel.ErrConflict
	}
	clone := *p
	s.pagos[p.ID] = &clone
	s.byOrden[p.NumeroOrden] = p.ID
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id domain.PagoID) (*Pago, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.pagos[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (s *InMemoryStore) FindByNumeroOrden(_ context.Context, numeroOrden string) (*Pago, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byOrden[numeroOrden]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.pagos[id]
	return &clone, nil
}

func (s *InMemoryStore) Update(_ context.Context, p *Pago) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.pagos[p.ID]; !exists {
		return sentinel.ErrNotFound
	}
	clone := *p
	s.pagos[p.ID] = &clone
	return nil
}

type InMemoryWebhookStore struct {
	mu      sync.RWMutex
	eventos map[domain.WebhookID]*WebhookEvento
}

func NewInMemoryWebhookStore() *InMemoryWebhookStore {
	return &InMemoryWebhookStore{eventos: make(map[domain.WebhookID]*WebhookEvento)}
}

func (s *InMemoryWebhookStore) Create(_ context.Context, e *WebhookEvento) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.eventos[e.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *e
	s.eventos[e.ID] = &clone
	return nil
}

func (s *InMemoryWebhookStore) FindByID(_ context.Context, id domain.WebhookID) (*WebhookEvento, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored, ok := s.eventos[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *stored
	return &clone, nil
}

func (s *InMemoryWebhookStore) MarkProcessed(_ context.Context, id domain.WebhookID, procErr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.eventos[id]
	if !ok {
		return sentinel.ErrNotFound
	}
	now := time.Now()
	stored.Procesado = true
	stored.ErrorProceso = procErr
	stored.FechaProceso = &now
	return nil
}

func (s *InMemoryWebhookStore) ListUnprocessed(_ context.Context, limit int) ([]*WebhookEvento, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*WebhookEvento
	for _, stored := range s.eventos {
		if !stored.Procesado {
			clone := *stored
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].FechaRecepcion.Before(out[j].FechaRecepcion)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
