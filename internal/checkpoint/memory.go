package checkpoint

import (
	"context"
	"sync"
)

// MemoryStore keeps the cursor in process memory only. It is lost on restart.
type MemoryStore struct {
	mu    sync.Mutex
	size  uint64
	saved bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(ctx context.Context) (uint64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.size, m.saved, nil
}

func (m *MemoryStore) Save(ctx context.Context, size uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size = size
	m.saved = true
	return nil
}

func (m *MemoryStore) Close() error { return nil }
