package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryStore keeps offerings in memory for local runs and tests.
type MemoryStore struct {
	mu        sync.RWMutex
	offerings map[string][]Offering
}

// NewMemoryStore creates an empty in-memory catalog.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{offerings: make(map[string][]Offering)}
}

// Put adds or replaces an offering. Missing ids are generated.
func (s *MemoryStore) Put(o Offering) Offering {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.offerings[o.TenantID]
	for i := range list {
		if list[i].ID == o.ID {
			list[i] = o
			return o
		}
	}
	s.offerings[o.TenantID] = append(list, o)
	return o
}

func (s *MemoryStore) ListActive(_ context.Context, tenantID string) ([]Offering, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Offering
	for _, o := range s.offerings[tenantID] {
		if o.IsActive {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Position != out[j].Position {
			return out[i].Position < out[j].Position
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, tenantID string, id uuid.UUID) (*Offering, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, o := range s.offerings[tenantID] {
		if o.ID == id {
			found := o
			return &found, nil
		}
	}
	return nil, ErrNotFound
}
