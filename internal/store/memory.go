package store

import (
	"context"
	"sync"
)

// MemoryStore is an in-memory answer store used in tests and single-node dev
// runs where Redis is not available.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]map[int]int
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[int]int)}
}

// Load returns a copy of the mapping at key; missing keys yield an empty map.
func (s *MemoryStore) Load(_ context.Context, key string) (map[int]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int]int, len(s.records[key]))
	for idx, opt := range s.records[key] {
		out[idx] = opt
	}
	return out, nil
}

// Save replaces the mapping at key with a copy of answers.
func (s *MemoryStore) Save(_ context.Context, key string, answers map[int]int) error {
	cp := make(map[int]int, len(answers))
	for idx, opt := range answers {
		cp[idx] = opt
	}
	s.mu.Lock()
	s.records[key] = cp
	s.mu.Unlock()
	return nil
}

// Clear deletes the mapping at key.
func (s *MemoryStore) Clear(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.records, key)
	s.mu.Unlock()
	return nil
}
