package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"skein/internal/backend"
	"skein/internal/budget"
	"skein/internal/compressor"
	"skein/internal/retry"
	"skein/internal/storage"
	"skein/internal/tokenizer"
	"skein/internal/transcript"
	"skein/internal/zone"
)

// memStore is an in-memory transcript.Store.
type memStore struct {
	entries []*transcript.Entry
}

func (s *memStore) Entries(sessionID string) ([]*transcript.Entry, error) {
	var out []*transcript.Entry
	for _, e := range s.entries {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (s *memStore) AttachSummary(entryID, summary string, retention float64) error {
	for _, e := range s.entries {
		if e.ID == entryID {
			e.Summary = summary
			e.SummaryRetention = retention
			return nil
		}
	}
	return fmt.Errorf("entry %s not found", entryID)
}

// memKV is an in-memory engine.KV.
type memKV struct {
	mu   sync.Mutex
	data map[string]string
}

func newMemKV() *memKV {
	return &memKV{data: make(map[string]string)}
}

func (k *memKV) KVSet(key, value string, ttl time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.data[key] = value
	return nil
}

func (k *memKV) KVGet(key string) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	v, ok := k.data[key]
	if !ok {
		return "", storage.ErrNotFound
	}
	return v, nil
}

func (k *memKV) KVDelete(key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.data[key]; !ok {
		return storage.ErrNotFound
	}
	delete(k.data, key)
	return nil
}

type stubBackend struct{}

func (s *stubBackend) Name() string { return "stub" }

func (s *stubBackend) Summarize(_ context.Context, req backend.Request) (*backend.Response, error) {
	return &backend.Response{Text: "condensed: key facts preserved here"}, nil
}

func newTestManager(store *memStore, maxTokens int) *Manager {
	return newTestManagerKV(store, nil, maxTokens)
}

func newTestManagerKV(store *memStore, kv KV, maxTokens int) *Manager {
	calc := budget.NewCalculator(tokenizer.NewHeuristic())
	dispatcher := compressor.NewDispatcher([]backend.Summarizer{&stubBackend{}}, nil, compressor.Config{
		ChunkMaxTokens: 1000,
		Concurrency:    2,
		AttemptTimeout: time.Second,
		MinViableChars: 8,
		Retry:          retry.Policy{MaxAttempts: 1, InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1},
	})
	return NewManager(store, calc, dispatcher, kv, Config{
		Model:             "gpt-4o",
		MaxTokensOverride: maxTokens,
		TriggerThreshold:  0.8,
		Zones: zone.Config{
			RecentCeiling:    150,
			MidTermCeiling:   150,
			MidTermRetention: 0.4,
			ArchiveRetention: 0.2,
		},
	})
}

func seedStore(entryCount int) *memStore {
	store := &memStore{}
	base := time.Now().Add(-time.Hour)
	for i := 0; i < entryCount; i++ {
		store.entries = append(store.entries, &transcript.Entry{
			ID:        fmt.Sprintf("e%d", i),
			SessionID: "s1",
			Role:      transcript.RoleUser,
			Content:   strings.Repeat("x", 300),
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}
	return store
}

func TestUsage(t *testing.T) {
	m := newTestManager(seedStore(5), 1000)

	usage, err := m.Usage(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Usage failed: %v", err)
	}
	// 5 entries of (300+2)/3 + 4 tokens each.
	if usage.TotalTokens != 520 {
		t.Errorf("TotalTokens = %d, want 520", usage.TotalTokens)
	}
	if usage.MaxTokens != 1000 {
		t.Errorf("MaxTokens = %d, want override", usage.MaxTokens)
	}
}

func TestRun_BelowThresholdSkips(t *testing.T) {
	store := seedStore(5)
	m := newTestManager(store, 10000)

	report, err := m.Run(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Triggered {
		t.Error("run below threshold must not compress")
	}
	for _, e := range store.entries {
		if e.Summary != "" || e.SummaryRetention != 0 {
			t.Error("entries must be untouched")
		}
	}
}

func TestRun_TriggersAboveThreshold(t *testing.T) {
	store := seedStore(5)
	m := newTestManager(store, 600) // 520/600 = 87%

	report, err := m.Run(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if !report.Triggered {
		t.Fatal("run above threshold must compress")
	}
	if len(report.Results) == 0 {
		t.Fatal("expected compression results")
	}
	if report.After.TotalTokens >= report.Before.TotalTokens {
		t.Errorf("compression must shrink usage: %d -> %d",
			report.Before.TotalTokens, report.After.TotalTokens)
	}
}

func TestCompress_AttachesSummaries(t *testing.T) {
	store := seedStore(5)
	m := newTestManager(store, 600)

	_, err := m.Compress(context.Background(), "s1")
	if err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	// Newest entry stays in the recent tier, raw.
	newest := store.entries[4]
	if newest.SummaryRetention != 0 {
		t.Error("recent entry must not be summarized")
	}

	// Older tiers carry summaries; chunk leads hold the text, the rest are
	// folded with an empty summary at the same retention.
	var withText, folded int
	for _, e := range store.entries[:4] {
		if e.SummaryRetention == 0 {
			t.Errorf("entry %s in a compressible tier left unsummarized", e.ID)
			continue
		}
		if e.Summary != "" {
			withText++
		} else {
			folded++
		}
		if e.Content != strings.Repeat("x", 300) {
			t.Error("original content must never change")
		}
	}
	if withText == 0 {
		t.Error("at least one entry must carry summary text")
	}
	if withText+folded != 4 {
		t.Errorf("covered %d entries, want 4", withText+folded)
	}
}

func TestCompress_Idempotent(t *testing.T) {
	store := seedStore(5)
	m := newTestManager(store, 600)

	if _, err := m.Compress(context.Background(), "s1"); err != nil {
		t.Fatalf("first Compress failed: %v", err)
	}

	snapshot := make(map[string]string)
	for _, e := range store.entries {
		snapshot[e.ID] = e.Summary
	}

	report, err := m.Compress(context.Background(), "s1")
	if err != nil {
		t.Fatalf("second Compress failed: %v", err)
	}
	for _, res := range report.Results {
		t.Errorf("second run produced work: %+v", res)
	}
	for _, e := range store.entries {
		if e.Summary != snapshot[e.ID] {
			t.Errorf("entry %s changed on idempotent re-run", e.ID)
		}
	}
}

func TestCompress_Bookkeeping(t *testing.T) {
	kv := newMemKV()
	m := newTestManagerKV(seedStore(5), kv, 600)

	if _, err := m.Compress(context.Background(), "s1"); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}
	if _, err := m.Compress(context.Background(), "s1"); err != nil {
		t.Fatalf("second Compress failed: %v", err)
	}

	count, err := kv.KVGet("compression_count:s1")
	if err != nil {
		t.Fatalf("count key missing: %v", err)
	}
	if count != "2" {
		t.Errorf("compression count = %s, want 2", count)
	}
	last, err := kv.KVGet("last_compression:s1")
	if err != nil {
		t.Fatalf("last-run key missing: %v", err)
	}
	if _, err := time.Parse(time.RFC3339, last); err != nil {
		t.Errorf("last-run timestamp %q is not RFC 3339: %v", last, err)
	}
}

func TestClearBookkeeping(t *testing.T) {
	kv := newMemKV()
	m := newTestManagerKV(seedStore(5), kv, 600)

	if _, err := m.Compress(context.Background(), "s1"); err != nil {
		t.Fatalf("Compress failed: %v", err)
	}

	m.ClearBookkeeping("s1")

	if _, err := kv.KVGet("compression_count:s1"); err == nil {
		t.Error("compression count must be removed")
	}
	if _, err := kv.KVGet("last_compression:s1"); err == nil {
		t.Error("last-run timestamp must be removed")
	}

	// Clearing an already-clean session is a no-op.
	m.ClearBookkeeping("s1")
}

func TestRun_EmptySession(t *testing.T) {
	m := newTestManager(&memStore{}, 600)

	report, err := m.Run(context.Background(), "empty")
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Triggered {
		t.Error("empty session must not trigger compression")
	}
}
