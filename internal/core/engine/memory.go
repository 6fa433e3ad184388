package engine

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryLedgerStore keeps ledgers in process memory.
type MemoryLedgerStore struct {
	mu      sync.RWMutex
	ledgers map[string]string
}

// NewMemoryLedgerStore returns an empty in-memory store.
func NewMemoryLedgerStore() *MemoryLedgerStore {
	return &MemoryLedgerStore{ledgers: make(map[string]string)}
}

// GetLedger implements LedgerStore.
func (m *MemoryLedgerStore) GetLedger(ctx context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	raw, ok := m.ledgers[key]
	return raw, ok, nil
}

// PutLedger implements LedgerStore.
func (m *MemoryLedgerStore) PutLedger(ctx context.Context, key, raw string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ledgers == nil {
		m.ledgers = make(map[string]string)
	}
	m.ledgers[key] = raw
	return nil
}

// Keys lists stored keys with the given prefix in sorted order.
func (m *MemoryLedgerStore) Keys(prefix string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.ledgers))
	for key := range m.ledgers {
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

// Delete removes one key and reports whether it existed.
func (m *MemoryLedgerStore) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.ledgers[key]
	delete(m.ledgers, key)
	return ok
}
