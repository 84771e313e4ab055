package policystore

import (
	"errors"
	"path/filepath"
	"testing"

	"grab-go/internal/grab"
)

func TestSQLiteStore(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer store.Close()

	exerciseStore(t, store)

	var rows int
	if err := store.db.QueryRow("SELECT COUNT(*) FROM policy_cache").Scan(&rows); err != nil {
		t.Fatal(err)
	}
	if rows != 1 {
		t.Errorf("policy_cache has %d rows, want 1", rows)
	}
}

func TestSQLiteStore_SharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), SQLiteFileName)

	writer, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	defer writer.Close()

	reader, err := NewSQLiteStore(path)
	if err != nil {
		t.Fatalf("second NewSQLiteStore() error = %v", err)
	}
	defer reader.Close()

	if err := writer.Write(testRecord("1.4.0")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	rec, err := reader.Read()
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if rec == nil || rec.Policy.LatestVersion != "1.4.0" {
		t.Errorf("Read() = %+v, want record written by the other handle", rec)
	}
	if reader.Location() != path {
		t.Errorf("Location() = %q, want %q", reader.Location(), path)
	}
}

func TestSQLiteStore_CorruptRow(t *testing.T) {
	store, err := NewSQLiteStore(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if _, err := store.db.Exec("INSERT INTO policy_cache (id, record, fetched_at) VALUES (1, ?, 0)", []byte("garbage")); err != nil {
		t.Fatal(err)
	}

	if _, err := store.Read(); !errors.Is(err, grab.ErrCacheCorrupt) {
		t.Errorf("Read() error = %v, want ErrCacheCorrupt", err)
	}
}
