package storage

import (
	"context"
	"sync"
)

// Memory keeps collections in a map. It is meant for tests and --backend=memory.
type Memory struct {
	mu     sync.RWMutex
	values map[string][]byte
	saves  int // applied write calls
}

// NewMemory returns an empty in-memory backend
func NewMemory() *Memory {
	return &Memory{values: make(map[string][]byte)}
}

func (m *Memory) Load(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.values[key]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

func (m *Memory) Save(ctx context.Context, key string, value []byte) error {
	return m.SaveAll(ctx, map[string][]byte{key: value})
}

func (m *Memory) SaveAll(ctx context.Context, values map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for k, v := range values {
		m.values[k] = append([]byte(nil), v...)
	}
	m.saves++
	return nil
}

func (m *Memory) Close() error { return nil }
