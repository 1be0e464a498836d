// Package checkpoint persists pipeline run state so suspended or interrupted
// runs can resume with full context.
package checkpoint

import (
	"context"
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when no checkpoint exists for a run.
var ErrNotFound = errors.New("checkpoint not found")

// Store persists run state keyed by run ID. Save replaces any prior
// checkpoint for the same run.
type Store interface {
	Save(ctx context.Context, runID string, state map[string]any) error
	Load(ctx context.Context, runID string) (map[string]any, error)
	Delete(ctx context.Context, runID string) error
	List(ctx context.Context) ([]string, error)
}

// MemoryStore is an in-memory Store for tests and dry runs.
type MemoryStore struct {
	states map[string]map[string]any
	mu     sync.RWMutex
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[string]map[string]any)}
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, runID string, state map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[runID] = state
	return nil
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context, runID string) (map[string]any, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[runID]
	if !ok {
		return nil, ErrNotFound
	}
	return state, nil
}

// Delete implements Store.
func (s *MemoryStore) Delete(ctx context.Context, runID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, runID)
	return nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ids := make([]string, 0, len(s.states))
	for id := range s.states {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

var _ Store = (*MemoryStore)(nil)
