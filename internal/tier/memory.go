package tier

import (
	"context"
	"fmt"
	"sync"
)

// Memory is a process-local Store. It backs tests and hosts without a filesystem.
type Memory struct {
	mu    sync.RWMutex
	name  string
	items map[string][]byte
	quota quota
}

func NewMemory(name string, quotaBytes int64) *Memory {
	return &Memory{
		name:  name,
		items: make(map[string][]byte),
		quota: quota{limit: quotaBytes},
	}
}

func (m *Memory) Name() string { return m.name }

func (m *Memory) Read(_ context.Context, key string) ([]byte, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	m.mu.RLock()
	data, ok := m.items[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, true, nil
}

func (m *Memory) Write(_ context.Context, key string, data []byte) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	oldSize := int64(len(m.items[key]))
	newSize := int64(len(data))
	if !m.quota.admit(oldSize, newSize) {
		return fmt.Errorf("%s: write %q (%d bytes): %w", m.name, key, newSize, ErrQuotaExceeded)
	}

	buf := make([]byte, len(data))
	copy(buf, data)
	m.items[key] = buf
	m.quota.apply(oldSize, newSize)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	m.mu.Lock()
	if old, ok := m.items[key]; ok {
		delete(m.items, key)
		m.quota.apply(int64(len(old)), 0)
	}
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored keys.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory) Destroy() error {
	m.mu.Lock()
	clear(m.items)
	m.quota.used = 0
	m.mu.Unlock()
	return nil
}

func (m *Memory) Close() error { return nil }

var (
	_ Store     = (*Memory)(nil)
	_ Destroyer = (*Memory)(nil)
)
