package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/mercadomaster/economy-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
//
// Documents are kept encoded so every load decodes a fresh copy, the same
// path a database round trip takes.
type MemoryStore struct {
	mu      sync.RWMutex
	docs    map[string][]byte
	journal map[string][]model.Transaction // oldest first
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		docs:    make(map[string][]byte),
		journal: make(map[string][]model.Transaction),
	}
}

func (s *MemoryStore) LoadState(_ context.Context, profileID string) (model.UserState, error) {
	s.mu.RLock()
	data, ok := s.docs[profileID]
	s.mu.RUnlock()

	if !ok {
		return model.UserState{}, ErrNotFound
	}
	return model.DecodeState(data)
}

func (s *MemoryStore) SaveState(_ context.Context, profileID string, state model.UserState, journal ...model.Transaction) error {
	data, err := model.EncodeState(state)
	if err != nil {
		return fmt.Errorf("save state %s: %w", profileID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.docs[profileID] = data
	s.journal[profileID] = append(s.journal[profileID], journal...)
	return nil
}

func (s *MemoryStore) ListTransactions(_ context.Context, profileID string, limit int) ([]model.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.journal[profileID]
	n := len(entries)
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]model.Transaction, 0, n)
	for i := len(entries) - 1; i >= 0 && len(result) < n; i-- {
		result = append(result, entries[i])
	}
	return result, nil
}
