package store

import (
	"sync"
)

// MemoryStore keeps the execution history in memory. Useful for tests and
// one-off sessions.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*ExecutionRecord
	order   []string
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*ExecutionRecord)}
}

func (s *MemoryStore) SaveExecution(rec *ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.ID]; !exists {
		s.order = append(s.order, rec.ID)
	}
	clone := *rec
	clone.Counts = make(map[string]int, len(rec.Counts))
	for k, v := range rec.Counts {
		clone.Counts[k] = v
	}
	s.records[rec.ID] = &clone
	return nil
}

func (s *MemoryStore) GetExecution(id string) (*ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *rec
	return &clone, nil
}

func (s *MemoryStore) ListExecutions(limit int) ([]*ExecutionRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*ExecutionRecord{}
	for i := len(s.order) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		clone := *s.records[s.order[i]]
		out = append(out, &clone)
	}
	return out, nil
}

func (s *MemoryStore) Close() error { return nil }
