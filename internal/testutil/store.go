package testutil

import (
	"errors"

	"grab-go/internal/grab"
	"grab-go/internal/policystore"
)

// ErrDiskFull is returned by FailingStore writes.
var ErrDiskFull = errors.New("write: no space left on device")

// NewTestStore creates a new in-memory policy store for testing.
func NewTestStore() *policystore.MemoryStore {
	return policystore.NewMemoryStore("test-store")
}

// FailingStore wraps a store and rejects every write, simulating a full disk.
// Reads go to the wrapped store.
type FailingStore struct {
	grab.PolicyStore
	Writes int
}

// NewFailingStore wraps inner so that writes always fail.
func NewFailingStore(inner grab.PolicyStore) *FailingStore {
	return &FailingStore{PolicyStore: inner}
}

func (s *FailingStore) Write(*grab.CacheRecord) error {
	s.Writes++
	return ErrDiskFull
}

var _ grab.PolicyStore = (*FailingStore)(nil)
