package grab

import "errors"

// ErrCacheCorrupt is wrapped by PolicyStore.Read when a stored record exists
// but cannot be decoded. Callers treat it exactly like a missing record.
var ErrCacheCorrupt = errors.New("policy cache is corrupt")

// PolicyStore persists the last policy confirmed over the network.
// Several processes may share one store; writes are last-write-wins.
type PolicyStore interface {
	// Read returns the stored record, or nil with no error when nothing has
	// been stored yet.
	Read() (*CacheRecord, error)

	// Write replaces the stored record. A failed write must leave the
	// previous record readable or leave the store empty; it never leaves a
	// partially written record behind.
	Write(record *CacheRecord) error

	// Location describes where records are kept, for diagnostics.
	Location() string
}
