package policystore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"grab-go/internal/grab"
)

// CacheFileName is the name of the policy cache inside the cache directory.
const CacheFileName = "version-cache.json"

// FileSystemStore keeps the policy cache as a single JSON file:
//
//	<dir>/
//	  version-cache.json
//
// Writes go to a temp file in the same directory and are renamed into place,
// so concurrent readers see either the old or the new record.
type FileSystemStore struct {
	dir  string
	path string
}

// NewFileSystemStore creates a store in dir, creating the directory if needed.
func NewFileSystemStore(dir string) (*FileSystemStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &FileSystemStore{
		dir:  dir,
		path: filepath.Join(dir, CacheFileName),
	}, nil
}

// Read loads and decodes the cache file. A missing file is not an error.
// The file is never deleted, even when it cannot be decoded.
func (s *FileSystemStore) Read() (*grab.CacheRecord, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading cache file: %w", err)
	}

	rec, err := grab.DecodeCacheRecord(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", s.path, err)
	}
	return rec, nil
}

// Write encodes the record and atomically replaces the cache file.
func (s *FileSystemStore) Write(record *grab.CacheRecord) error {
	data, err := grab.EncodeCacheRecord(record)
	if err != nil {
		return err
	}
	return s.writeFile(data)
}

// Location returns the cache file path.
func (s *FileSystemStore) Location() string {
	return s.path
}

// writeFile writes data to the cache path using atomic write (temp file + rename).
func (s *FileSystemStore) writeFile(data []byte) error {
	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Clean up temp file on failure
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}

	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to sync temp file: %w", err)
	}

	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, s.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Compile-time check that FileSystemStore implements grab.PolicyStore interface
var _ grab.PolicyStore = (*FileSystemStore)(nil)
