package policystore

import (
	"database/sql"
	"errors"
	"fmt"

	"grab-go/internal/grab"
	"grab-go/internal/policystore/migrations"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStore keeps the policy cache in a single-row SQLite table. Several
// processes can share the database file; SQLite serializes their writes.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// NewSQLiteStore opens (or creates) the database at path and migrates it.
// path can be a file path or ":memory:".
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.MigrateUp(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating policy cache: %w", err)
	}

	return &SQLiteStore{db: db, path: path}, nil
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if path == ":memory:" {
		// Every pooled connection would get its own empty in-memory database.
		db.SetMaxOpenConns(1)
	}

	// Other instances of the app may hold the write lock briefly.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

// Read returns the cached record, or nil if the table is empty.
func (s *SQLiteStore) Read() (*grab.CacheRecord, error) {
	var data []byte
	err := s.db.QueryRow("SELECT record FROM policy_cache WHERE id = 1").Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading policy cache: %w", err)
	}
	return grab.DecodeCacheRecord(data)
}

// Write upserts the single cache row in one statement.
func (s *SQLiteStore) Write(record *grab.CacheRecord) error {
	data, err := grab.EncodeCacheRecord(record)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO policy_cache (id, record, fetched_at) VALUES (1, ?, ?)
		ON CONFLICT(id) DO UPDATE SET record = excluded.record, fetched_at = excluded.fetched_at`,
		data, record.FetchedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("writing policy cache: %w", err)
	}
	return nil
}

// Location returns the database path.
func (s *SQLiteStore) Location() string {
	return s.path
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Compile-time check that SQLiteStore implements grab.PolicyStore interface
var _ grab.PolicyStore = (*SQLiteStore)(nil)
