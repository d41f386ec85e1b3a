package cartstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"storefront/internal/domain"
)

// MemoryStore keeps carts in process memory. Lines are stored serialized so
// callers never share slices with the store.
type MemoryStore struct {
	mu    sync.RWMutex
	carts map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{carts: make(map[string][]byte)}
}

func (m *MemoryStore) Load(_ context.Context, sessionID string) ([]domain.CartLine, error) {
	m.mu.RLock()
	data, ok := m.carts[cacheKey(sessionID)]
	m.mu.RUnlock()
	if !ok {
		return []domain.CartLine{}, nil
	}

	lines := []domain.CartLine{}
	if err := json.Unmarshal(data, &lines); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return lines, nil
}

func (m *MemoryStore) Save(_ context.Context, sessionID string, lines []domain.CartLine) error {
	if lines == nil {
		lines = []domain.CartLine{}
	}
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	m.mu.Lock()
	m.carts[cacheKey(sessionID)] = data
	m.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.carts, cacheKey(sessionID))
	m.mu.Unlock()
	return nil
}

// putRaw stores bytes verbatim; tests use it to simulate corrupted data
func (m *MemoryStore) putRaw(sessionID string, data []byte) {
	m.mu.Lock()
	m.carts[cacheKey(sessionID)] = data
	m.mu.Unlock()
}
