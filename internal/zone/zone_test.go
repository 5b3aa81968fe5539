package zone

import (
	"fmt"
	"testing"

	"skein/internal/transcript"
)

func makeEntries(counts []int) []*transcript.Entry {
	entries := make([]*transcript.Entry, len(counts))
	for i := range counts {
		entries[i] = &transcript.Entry{
			ID:      fmt.Sprintf("e%d", i),
			Role:    transcript.RoleUser,
			Content: "content",
		}
	}
	return entries
}

func TestPartition_Empty(t *testing.T) {
	if zones := Partition(nil, nil, DefaultConfig()); zones != nil {
		t.Errorf("expected nil zones, got %d", len(zones))
	}
}

func TestPartition_BasicShortCircuit(t *testing.T) {
	counts := []int{1000, 2000, 3000}
	entries := makeEntries(counts)

	zones := Partition(entries, counts, DefaultConfig())
	if len(zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(zones))
	}
	z := zones[0]
	if z.Kind != Basic {
		t.Errorf("expected basic zone, got %s", z.Kind)
	}
	if z.Tokens != 6000 {
		t.Errorf("expected 6000 tokens, got %d", z.Tokens)
	}
	if len(z.Entries) != 3 {
		t.Errorf("expected all entries in basic zone, got %d", len(z.Entries))
	}
	if z.Compressible() {
		t.Error("basic zone must not be compressible")
	}
}

func TestPartition_ExactCeilingIsTiered(t *testing.T) {
	// total == RecentCeiling: the short-transcript rule requires strictly less
	cfg := DefaultConfig()
	counts := []int{cfg.RecentCeiling}
	entries := makeEntries(counts)

	zones := Partition(entries, counts, cfg)
	if len(zones) != 1 || zones[0].Kind != Recent {
		t.Fatalf("expected single recent zone, got %+v", zones)
	}
}

func TestPartition_ThreeTiers(t *testing.T) {
	cfg := Config{
		RecentCeiling:    100,
		MidTermCeiling:   100,
		MidTermRetention: 0.4,
		ArchiveRetention: 0.2,
	}
	// Chronological: oldest first. 10 entries of 30 tokens each, 300 total.
	counts := []int{30, 30, 30, 30, 30, 30, 30, 30, 30, 30}
	entries := makeEntries(counts)

	zones := Partition(entries, counts, cfg)
	if len(zones) != 3 {
		t.Fatalf("expected 3 zones, got %d", len(zones))
	}

	recent, mid, archive := zones[0], zones[1], zones[2]
	if recent.Kind != Recent || mid.Kind != MidTerm || archive.Kind != Archive {
		t.Fatalf("unexpected zone order: %s %s %s", recent.Kind, mid.Kind, archive.Kind)
	}

	// 3 newest entries fit (90 <= 100), the 4th would straddle.
	if len(recent.Entries) != 3 || recent.Tokens != 90 {
		t.Errorf("recent: got %d entries / %d tokens", len(recent.Entries), recent.Tokens)
	}
	if len(mid.Entries) != 3 || mid.Tokens != 90 {
		t.Errorf("midTerm: got %d entries / %d tokens", len(mid.Entries), mid.Tokens)
	}
	if len(archive.Entries) != 4 || archive.Tokens != 120 {
		t.Errorf("archive: got %d entries / %d tokens", len(archive.Entries), archive.Tokens)
	}

	if recent.Retention != 1.0 || mid.Retention != 0.4 || archive.Retention != 0.2 {
		t.Errorf("unexpected retention rates: %v %v %v",
			recent.Retention, mid.Retention, archive.Retention)
	}
}

func TestPartition_StraddlingEntryGoesOlder(t *testing.T) {
	cfg := Config{RecentCeiling: 100, MidTermCeiling: 1000, MidTermRetention: 0.4, ArchiveRetention: 0.2}
	// Newest entry 60, next 60: together 120 > 100, so the older one
	// belongs to the mid-term tier in full.
	counts := []int{60, 60}
	entries := makeEntries(counts)

	zones := Partition(entries, counts, cfg)
	if len(zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(zones))
	}
	if len(zones[0].Entries) != 1 || zones[0].Entries[0].ID != "e1" {
		t.Errorf("recent should hold only the newest entry")
	}
	if len(zones[1].Entries) != 1 || zones[1].Entries[0].ID != "e0" {
		t.Errorf("midTerm should hold the straddling entry in full")
	}
}

func TestPartition_RecentNeverEmpty(t *testing.T) {
	cfg := Config{RecentCeiling: 100, MidTermCeiling: 1000, MidTermRetention: 0.4, ArchiveRetention: 0.2}
	// The newest entry alone exceeds the ceiling.
	counts := []int{50, 200}
	entries := makeEntries(counts)

	zones := Partition(entries, counts, cfg)
	if zones[0].Kind != Recent {
		t.Fatalf("first zone must be recent, got %s", zones[0].Kind)
	}
	if len(zones[0].Entries) != 1 || zones[0].Entries[0].ID != "e1" {
		t.Errorf("recent must hold the newest entry even when oversized")
	}
}

func TestPartition_CoversWithoutOverlap(t *testing.T) {
	cfg := Config{RecentCeiling: 50, MidTermCeiling: 70, MidTermRetention: 0.4, ArchiveRetention: 0.2}
	counts := []int{17, 23, 9, 31, 12, 8, 25, 14, 6, 19}
	entries := makeEntries(counts)

	zones := Partition(entries, counts, cfg)

	seen := make(map[string]int)
	totalEntries := 0
	for _, z := range zones {
		totalEntries += len(z.Entries)
		for _, e := range z.Entries {
			seen[e.ID]++
		}
	}
	if totalEntries != len(entries) {
		t.Errorf("zones cover %d entries, want %d", totalEntries, len(entries))
	}
	for id, n := range seen {
		if n != 1 {
			t.Errorf("entry %s appears in %d zones", id, n)
		}
	}
}

func TestPartition_DefaultConfigLargeTranscript(t *testing.T) {
	// 50 entries of 1000 tokens against the default ceilings: the newest
	// 35000 tokens stay recent, the remaining 15000 land in midterm.
	counts := make([]int, 50)
	for i := range counts {
		counts[i] = 1000
	}
	entries := makeEntries(counts)

	zones := Partition(entries, counts, DefaultConfig())
	if len(zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(zones))
	}

	recent, mid := zones[0], zones[1]
	if recent.Kind != Recent || recent.Tokens != 35000 || len(recent.Entries) != 35 {
		t.Errorf("recent = %s %d tokens %d entries, want recent 35000/35",
			recent.Kind, recent.Tokens, len(recent.Entries))
	}
	if mid.Kind != MidTerm || mid.Tokens != 15000 || len(mid.Entries) != 15 {
		t.Errorf("midterm = %s %d tokens %d entries, want midterm 15000/15",
			mid.Kind, mid.Tokens, len(mid.Entries))
	}
	if mid.Retention != 0.40 {
		t.Errorf("midterm retention = %v, want 0.40", mid.Retention)
	}
	if target := int(float64(mid.Tokens) * mid.Retention); target != 6000 {
		t.Errorf("midterm compression target = %d tokens, want 6000", target)
	}
}
