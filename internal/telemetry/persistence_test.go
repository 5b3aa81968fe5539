package telemetry

import (
	"path/filepath"
	"testing"
	"time"

	"skein/internal/compressor"
	"skein/internal/storage"
)

func openTestDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open storage: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestPersistence_SurvivesRestart(t *testing.T) {
	db := openTestDB(t)

	r1 := New(db, Config{})
	for i := 0; i < 3; i++ {
		res := sampleResult("s1", compressor.StatusSuccess)
		res.ChunkIndex = i
		r1.Record(res)
	}

	// A fresh recorder over the same store sees the persisted entries.
	r2 := New(db, Config{})
	logs := r2.Logs("s1")
	if len(logs) != 3 {
		t.Fatalf("reloaded %d entries, want 3", len(logs))
	}
	for i, e := range logs {
		if e.ChunkIndex != i {
			t.Errorf("entry %d has chunk index %d, want chronological order", i, e.ChunkIndex)
		}
	}
	if logs[0].Duration != 250*time.Millisecond {
		t.Errorf("duration not preserved: %v", logs[0].Duration)
	}
}

func TestPersistence_LoadHonorsCapacity(t *testing.T) {
	db := openTestDB(t)

	r1 := New(db, Config{})
	for i := 0; i < 10; i++ {
		res := sampleResult("s1", compressor.StatusSuccess)
		res.ChunkIndex = i
		r1.Record(res)
	}

	r2 := New(db, Config{Capacity: 4})
	logs := r2.Logs("s1")
	if len(logs) != 4 {
		t.Fatalf("reloaded %d entries, want capacity", len(logs))
	}
	// The newest entries win.
	if logs[0].ChunkIndex != 6 || logs[3].ChunkIndex != 9 {
		t.Errorf("unexpected window: first=%d last=%d", logs[0].ChunkIndex, logs[3].ChunkIndex)
	}
}

func TestPersistence_ClearRemovesRows(t *testing.T) {
	db := openTestDB(t)

	r1 := New(db, Config{})
	r1.Record(sampleResult("s1", compressor.StatusSuccess))
	r1.Record(sampleResult("s2", compressor.StatusSuccess))
	r1.Clear("s1")

	r2 := New(db, Config{})
	if len(r2.Logs("s1")) != 0 {
		t.Error("cleared session must not reload")
	}
	if len(r2.Logs("s2")) != 1 {
		t.Error("other session must survive the clear")
	}
}

func TestPersistence_LogsBetween(t *testing.T) {
	db := openTestDB(t)
	r := New(db, Config{})

	before := time.Now().Add(-time.Minute)
	r.Record(sampleResult("s1", compressor.StatusSuccess))
	r.Record(sampleResult("s1", compressor.StatusFallback))
	r.Record(sampleResult("s2", compressor.StatusSuccess))
	after := time.Now().Add(time.Minute)

	logs, err := r.LogsBetween("s1", before, after)
	if err != nil {
		t.Fatalf("LogsBetween failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("got %d entries, want 2", len(logs))
	}

	// A window that predates every record matches nothing.
	logs, err = r.LogsBetween("s1", before.Add(-time.Hour), before)
	if err != nil {
		t.Fatalf("LogsBetween failed: %v", err)
	}
	if len(logs) != 0 {
		t.Errorf("got %d entries for an empty window, want 0", len(logs))
	}
}
