package storage

import (
	"errors"
	"path/filepath"
	"testing"

	"skein/internal/transcript"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestAppendAndListEntries(t *testing.T) {
	db := openTestDB(t)

	for _, content := range []string{"first", "second", "third"} {
		if _, err := db.AppendEntry("s1", transcript.RoleUser, content); err != nil {
			t.Fatalf("AppendEntry failed: %v", err)
		}
	}
	if _, err := db.AppendEntry("s2", transcript.RoleAssistant, "other session"); err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}

	entries, err := db.Entries("s1")
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(entries))
	}
	if entries[0].Content != "first" || entries[2].Content != "third" {
		t.Error("entries must be ordered oldest to newest")
	}
	if entries[0].SummaryRetention != 0 {
		t.Error("fresh entry must have no summary retention")
	}
}

func TestEntries_EmptySession(t *testing.T) {
	db := openTestDB(t)

	entries, err := db.Entries("nothing")
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("got %d entries, want 0", len(entries))
	}
}

func TestAttachSummary(t *testing.T) {
	db := openTestDB(t)

	e, err := db.AppendEntry("s1", transcript.RoleUser, "a long conversation turn")
	if err != nil {
		t.Fatalf("AppendEntry failed: %v", err)
	}

	if err := db.AttachSummary(e.ID, "short summary", 0.4); err != nil {
		t.Fatalf("AttachSummary failed: %v", err)
	}

	entries, _ := db.Entries("s1")
	got := entries[0]
	if got.Summary != "short summary" || got.SummaryRetention != 0.4 {
		t.Errorf("summary not persisted: %+v", got)
	}
	if got.Content != "a long conversation turn" {
		t.Error("original content must never change")
	}
	if got.Text() != "short summary" {
		t.Errorf("Text() = %q, want the summary", got.Text())
	}
}

func TestAttachSummary_Missing(t *testing.T) {
	db := openTestDB(t)

	err := db.AttachSummary("no-such-id", "summary", 0.4)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("got %v, want ErrNotFound", err)
	}
}

func TestSessionIDs(t *testing.T) {
	db := openTestDB(t)

	db.AppendEntry("beta", transcript.RoleUser, "x")
	db.AppendEntry("alpha", transcript.RoleUser, "x")
	db.AppendEntry("alpha", transcript.RoleUser, "y")

	ids, err := db.SessionIDs()
	if err != nil {
		t.Fatalf("SessionIDs failed: %v", err)
	}
	if len(ids) != 2 || ids[0] != "alpha" || ids[1] != "beta" {
		t.Errorf("got %v, want [alpha beta]", ids)
	}
}
