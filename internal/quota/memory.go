package quota

import (
	"context"
	"sync"
)

// MemoryStore keeps counts in process memory. Counts are lost on restart.
type MemoryStore struct {
	mu     sync.Mutex
	counts map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{counts: make(map[string]int)}
}

func (s *MemoryStore) Get(_ context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[sessionID], nil
}

func (s *MemoryStore) TryIncrement(_ context.Context, sessionID string, limit int) (int, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := s.counts[sessionID]
	if count >= limit {
		return count, false, nil
	}
	count++
	s.counts[sessionID] = count
	return count, true, nil
}

func (s *MemoryStore) Name() string {
	return KindMemory
}
