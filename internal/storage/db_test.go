package storage

import (
	"path/filepath"
	"testing"
)

func TestOpen_SchemaVersion(t *testing.T) {
	db := openTestDB(t)

	version, err := SchemaVersion(db)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if want := latestSchemaVersion(); version != want {
		t.Errorf("schema version = %d, want %d", version, want)
	}
}

func TestOpen_ReopenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if _, err := db.AppendEntry("s1", "user", "hello"); err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = Open(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer db.Close()

	entries, err := db.Entries("s1")
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("expected 1 entry after reopen, got %d", len(entries))
	}
}
