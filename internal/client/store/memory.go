package store

import "sync"

// MemoryStore is an in-process Store. It is useful in tests and for
// throwaway sessions that must not touch disk.
type MemoryStore struct {
	mu       sync.Mutex
	token    []byte
	userData []byte
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns the held record.
func (m *MemoryStore) Load() (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return decode(m.token, m.userData)
}

// Save replaces the held record.
func (m *MemoryStore) Save(r Record) error {
	token, userData, err := encode(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token = []byte(token)
	m.userData = userData
	return nil
}

// Clear drops the held record.
func (m *MemoryStore) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.userData = nil, nil
	return nil
}

// SetRaw sets the persisted values directly, bypassing the both-or-neither
// rule. A nil value means the key is absent. It exists so callers can model
// storage written by other clients.
func (m *MemoryStore) SetRaw(token, userData []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.token, m.userData = token, userData
}

// Raw returns the persisted values as stored.
func (m *MemoryStore) Raw() (token, userData []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.token, m.userData
}
