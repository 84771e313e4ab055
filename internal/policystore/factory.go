package policystore

import (
	"fmt"
	"os"
	"path/filepath"

	"grab-go/internal/config"
	"grab-go/internal/grab"
)

// SQLiteFileName is the database name used by the sqlite cache type.
const SQLiteFileName = "version-cache.db"

// NewPolicyStoreFromConfig creates a PolicyStore implementation based on the cache config type.
func NewPolicyStoreFromConfig(cfg config.CacheConfig) (grab.PolicyStore, error) {
	switch cfg.Type {
	case "file", "":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("file cache requires dir to be set")
		}
		return NewFileSystemStore(cfg.Dir)
	case "sqlite":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("sqlite cache requires dir to be set")
		}
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create cache directory: %w", err)
		}
		return NewSQLiteStore(filepath.Join(cfg.Dir, SQLiteFileName))
	case "memory":
		return NewMemoryStore("cache"), nil
	default:
		return nil, fmt.Errorf("unknown cache type: %s", cfg.Type)
	}
}
