package store

import (
	"encoding/json"
	"sync"
)

// Keys for the two persisted blobs. Disliked items are deliberately keyed
// independently of the session so the block list survives logout.
const (
	KeySession  = "session"
	KeyDisliked = "disliked_items"
)

// Store is a named-blob key-value store. Reads and writes are atomic at the
// JSON-document granularity; there are no partial-field updates.
type Store interface {
	// Get returns the stored document and whether the key exists.
	Get(key string) (json.RawMessage, bool, error)
	Set(key string, value json.RawMessage) error
	Remove(key string) error
}

// Memory is the in-process Store used by tests and as a fallback when no
// database path is configured.
type Memory struct {
	mu   sync.RWMutex
	data map[string]json.RawMessage
}

func NewMemory() *Memory {
	return &Memory{data: make(map[string]json.RawMessage)}
}

func (m *Memory) Get(key string) (json.RawMessage, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make(json.RawMessage, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (m *Memory) Set(key string, value json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make(json.RawMessage, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *Memory) Remove(key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}
