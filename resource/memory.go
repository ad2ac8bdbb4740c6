package resource

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory Store for tests and single-node use.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*Resource
	byURL map[string]string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		byID:  make(map[string]*Resource),
		byURL: make(map[string]string),
	}
}

// Create implements Store.
func (s *MemoryStore) Create(ctx context.Context, r *Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byURL[r.URL]; exists {
		return ErrAlreadyExists
	}
	s.byID[r.ID] = r.Clone()
	s.byURL[r.URL] = r.ID
	return nil
}

// GetByID implements Store.
func (s *MemoryStore) GetByID(ctx context.Context, id string) (*Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	return r.Clone(), nil
}

// GetByURL implements Store.
func (s *MemoryStore) GetByURL(ctx context.Context, url string) (*Resource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byURL[url]
	if !ok {
		return nil, ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

// Update implements Store.
func (s *MemoryStore) Update(ctx context.Context, r *Resource) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.byID[r.ID]
	if !ok {
		return ErrNotFound
	}
	if prev.URL != r.URL {
		delete(s.byURL, prev.URL)
		s.byURL[r.URL] = r.ID
	}
	s.byID[r.ID] = r.Clone()
	return nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.byID[id]
	if !ok {
		return ErrNotFound
	}
	delete(s.byURL, r.URL)
	delete(s.byID, id)
	return nil
}
