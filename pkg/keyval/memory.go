package keyval

import (
	"sort"
	"strings"
	"sync"
)

// Memory is an in-memory Store for tests and ephemeral use. It mirrors the
// Badger-backed semantics: atomic per-key writes, missing keys are not
// errors, iteration is in ascending key order.
type Memory struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{items: make(map[string][]byte)}
}

func (m *Memory) Put(namespace string, key, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	m.items[string(namespaceKey(namespace, key))] = stored
	return nil
}

func (m *Memory) Get(namespace string, key []byte) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	value, ok := m.items[string(namespaceKey(namespace, key))]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

func (m *Memory) Iterate(namespace string, fn func(key, value []byte) error) error {
	m.mu.RLock()
	prefix := string(namespaceKey(namespace, nil))
	keys := make([]string, 0)
	for k := range m.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	type pair struct{ key, value []byte }
	pairs := make([]pair, 0, len(keys))
	for _, k := range keys {
		value := m.items[k]
		out := make([]byte, len(value))
		copy(out, value)
		pairs = append(pairs, pair{key: []byte(k[len(prefix):]), value: out})
	}
	m.mu.RUnlock()

	for _, p := range pairs {
		if err := fn(p.key, p.value); err != nil {
			return err
		}
	}
	return nil
}

// Len returns the number of stored entries across all namespaces.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory) Close() error {
	return nil
}
