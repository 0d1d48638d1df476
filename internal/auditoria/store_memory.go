package auditoria

import (
	"context"
	"sync"
)

// InMemoryStore keeps entries in arrival order. Appends require no cross-entry
// coordination beyond the slice lock.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []Entry
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, entry Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) ListByEntidad(_ context.Context, entidad, entidadID string) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Entry
	for _, e := range s.entries {
		if e.Entidad == entidad && e.EntidadID == entidadID {
			out = append(out, e)
		}
	}
	return out, nil
}

// Len reports the total number of entries. For tests.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
