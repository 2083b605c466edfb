package repository

import (
	"context"
	"slices"
	"sync"
)

// MemoryStore держит снимки в памяти процесса.
type MemoryStore struct {
	mu        sync.RWMutex
	snapshots map[string][]byte
	requests  []AssistantRequest
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{snapshots: make(map[string][]byte)}
}

func (s *MemoryStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	payload, ok := s.snapshots[key]
	if !ok {
		return nil, ErrNotFound
	}
	return slices.Clone(payload), nil
}

func (s *MemoryStore) Save(_ context.Context, key string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.snapshots[key] = slices.Clone(payload)
	return nil
}

func (s *MemoryStore) LogRequest(_ context.Context, entry AssistantRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.requests = append(s.requests, entry)
	return nil
}

// Requests возвращает копию журнала запросов.
func (s *MemoryStore) Requests() []AssistantRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return slices.Clone(s.requests)
}
