package kvstore

import (
	"context"
	"sync"

	"github.com/mhpenta/imagine"
)

// Memory is an in-process KeyValueStore. Its contents live only as long as
// the value itself.
type Memory struct {
	slots map[string]string
	mu    sync.RWMutex
}

var _ imagine.KeyValueStore = (*Memory)(nil)

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{slots: make(map[string]string)}
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.slots[key]
	return v, ok, nil
}

func (m *Memory) Set(ctx context.Context, key string, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.slots[key] = value
	return nil
}
