package storage

import (
	"fmt"
	"testing"
	"time"
)

func sampleLog(id, sessionID string, createdAt time.Time) *DebugLog {
	return &DebugLog{
		ID:           id,
		SessionID:    sessionID,
		Zone:         "midTerm",
		ChunkIndex:   0,
		ChunkTotal:   1,
		Backend:      "openai",
		Status:       "success",
		InputTokens:  100,
		OutputTokens: 40,
		DurationMS:   250,
		InputPreview: "preview",
		CreatedAt:    createdAt,
	}
}

func TestBulkAppendAndRecent(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().Add(-time.Minute)
	var logs []*DebugLog
	for i := 0; i < 5; i++ {
		logs = append(logs, sampleLog(fmt.Sprintf("id%d", i), "s1", base.Add(time.Duration(i)*time.Second)))
	}
	if err := db.BulkAppendDebugLogs(logs); err != nil {
		t.Fatalf("BulkAppendDebugLogs failed: %v", err)
	}

	recent, err := db.RecentDebugLogs(3)
	if err != nil {
		t.Fatalf("RecentDebugLogs failed: %v", err)
	}
	if len(recent) != 3 {
		t.Fatalf("got %d rows, want 3", len(recent))
	}
	// Newest 3 in chronological order.
	if recent[0].ID != "id2" || recent[2].ID != "id4" {
		t.Errorf("unexpected window: %s .. %s", recent[0].ID, recent[2].ID)
	}
	if recent[0].DurationMS != 250 || recent[0].InputPreview != "preview" {
		t.Errorf("row not round-tripped: %+v", recent[0])
	}
}

func TestBulkAppend_Empty(t *testing.T) {
	db := openTestDB(t)
	if err := db.BulkAppendDebugLogs(nil); err != nil {
		t.Errorf("empty batch must be a no-op, got %v", err)
	}
}

func TestDebugLogsByTimeRange(t *testing.T) {
	db := openTestDB(t)

	base := time.Now().Add(-time.Hour)
	db.BulkAppendDebugLogs([]*DebugLog{
		sampleLog("old", "s1", base),
		sampleLog("mid", "s1", base.Add(30*time.Minute)),
		sampleLog("new", "s2", base.Add(50*time.Minute)),
	})

	rows, err := db.DebugLogsByTimeRange("", base.Add(10*time.Minute), base.Add(time.Hour))
	if err != nil {
		t.Fatalf("DebugLogsByTimeRange failed: %v", err)
	}
	if len(rows) != 2 || rows[0].ID != "mid" || rows[1].ID != "new" {
		t.Errorf("unexpected range result: %+v", rows)
	}

	rows, _ = db.DebugLogsByTimeRange("s1", base.Add(-time.Minute), base.Add(time.Hour))
	if len(rows) != 2 {
		t.Errorf("session filter returned %d rows, want 2", len(rows))
	}
}

func TestDeleteDebugLogsOlderThan(t *testing.T) {
	db := openTestDB(t)

	now := time.Now()
	db.BulkAppendDebugLogs([]*DebugLog{
		sampleLog("expired", "s1", now.Add(-8*24*time.Hour)),
		sampleLog("fresh", "s1", now),
	})

	n, err := db.DeleteDebugLogsOlderThan(now.Add(-7 * 24 * time.Hour))
	if err != nil {
		t.Fatalf("DeleteDebugLogsOlderThan failed: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d rows, want 1", n)
	}

	remaining, _ := db.RecentDebugLogs(10)
	if len(remaining) != 1 || remaining[0].ID != "fresh" {
		t.Errorf("unexpected survivors: %+v", remaining)
	}
}

func TestDeleteDebugLogs(t *testing.T) {
	db := openTestDB(t)

	now := time.Now()
	db.BulkAppendDebugLogs([]*DebugLog{
		sampleLog("a", "s1", now),
		sampleLog("b", "s1", now),
		sampleLog("c", "s2", now),
	})

	n, err := db.DeleteDebugLogs("s1")
	if err != nil {
		t.Fatalf("DeleteDebugLogs failed: %v", err)
	}
	if n != 2 {
		t.Errorf("deleted %d rows, want 2", n)
	}

	n, _ = db.DeleteDebugLogs("")
	if n != 1 {
		t.Errorf("delete all removed %d rows, want 1", n)
	}
}
