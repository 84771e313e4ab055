package policystore

import (
	"sync"

	"grab-go/internal/grab"
)

// MemoryStore is an in-memory implementation of the PolicyStore interface.
// It keeps the encoded cache file bytes rather than the record itself, so
// reads go through the same decoding as the on-disk backends.
// This implementation is safe for concurrent use.
type MemoryStore struct {
	name string
	data []byte
	mu   sync.RWMutex
}

// NewMemoryStore creates a new empty in-memory store with the given name.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{name: name}
}

// Read returns the stored record, or nil if nothing has been written.
func (m *MemoryStore) Read() (*grab.CacheRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return nil, nil
	}
	return grab.DecodeCacheRecord(m.data)
}

// Write replaces the stored record.
func (m *MemoryStore) Write(record *grab.CacheRecord) error {
	data, err := grab.EncodeCacheRecord(record)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = data
	return nil
}

// SetRaw replaces the stored bytes verbatim. Tests use it to plant corrupt caches.
func (m *MemoryStore) SetRaw(data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = append([]byte(nil), data...)
}

// Location returns a pseudo-path naming the store.
func (m *MemoryStore) Location() string {
	return "memory://" + m.name
}

// Compile-time check that MemoryStore implements grab.PolicyStore interface
var _ grab.PolicyStore = (*MemoryStore)(nil)
