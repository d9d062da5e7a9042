package handoff

import (
	"context"
	"sync"
)

// MemoryStore is a process-local Store. Values are deep-copied in and out.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]Handoff
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]Handoff)}
}

func (m *MemoryStore) Load(_ context.Context, scope string) (Handoff, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.values[scope].clone(), nil
}

func (m *MemoryStore) Save(_ context.Context, scope string, h Handoff) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[scope] = h.clone()
	return nil
}

func (m *MemoryStore) Clear(_ context.Context, scope string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, scope)
	return nil
}
