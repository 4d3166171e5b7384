package browser

import (
	"github.com/pthm/hxnav/lib/port"
)

// MemoryStorage is an in-memory sessionStorage.
type MemoryStorage struct {
	items map[string]string
}

var _ port.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage returns an empty storage.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{items: make(map[string]string)}
}

func (m *MemoryStorage) GetItem(key string) (string, bool) {
	v, ok := m.items[key]
	return v, ok
}

func (m *MemoryStorage) SetItem(key, value string) error {
	m.items[key] = value
	return nil
}

func (m *MemoryStorage) RemoveItem(key string) {
	delete(m.items, key)
}

// Len returns the number of stored items.
func (m *MemoryStorage) Len() int {
	return len(m.items)
}
