// Package telemetry records compression attempts in a bounded in-memory ring
// mirrored to durable storage.
package telemetry

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"skein/internal/compressor"
	"skein/internal/storage"
	"skein/pkg/logger"
)

// Defaults.
const (
	DefaultCapacity  = 100
	DefaultRetention = 7 * 24 * time.Hour
	previewMaxChars  = 160
)

// Store is the durable storage boundary. *storage.DB satisfies it; tests may
// substitute an in-memory implementation.
type Store interface {
	BulkAppendDebugLogs(logs []*storage.DebugLog) error
	DebugLogsByTimeRange(sessionID string, from, to time.Time) ([]*storage.DebugLog, error)
	RecentDebugLogs(limit int) ([]*storage.DebugLog, error)
	DeleteDebugLogsOlderThan(cutoff time.Time) (int64, error)
	DeleteDebugLogs(sessionID string) (int64, error)
}

// Entry is one recorded compression attempt with bounded preview snippets.
type Entry struct {
	ID             string        `json:"id"`
	SessionID      string        `json:"session_id"`
	Zone           string        `json:"zone"`
	ChunkIndex     int           `json:"chunk_index"`
	ChunkTotal     int           `json:"chunk_total"`
	Backend        string        `json:"backend"`
	Status         string        `json:"status"`
	FallbackReason string        `json:"fallback_reason,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	InputTokens    int           `json:"input_tokens"`
	OutputTokens   int           `json:"output_tokens"`
	Duration       time.Duration `json:"duration"`
	InputPreview   string        `json:"input_preview,omitempty"`
	OutputPreview  string        `json:"output_preview,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
}

// EventKind distinguishes subscriber notifications.
type EventKind string

const (
	EventRecorded EventKind = "recorded"
	EventCleared  EventKind = "cleared"
)

// Event is delivered synchronously to subscribers after each mutation.
type Event struct {
	Kind      EventKind `json:"kind"`
	Entry     *Entry    `json:"entry,omitempty"`      // set for recorded
	SessionID string    `json:"session_id,omitempty"` // set for cleared, empty = all
}

// Config holds recorder settings.
type Config struct {
	// Capacity caps the in-memory ring; oldest entries are evicted first.
	Capacity int `json:"capacity" mapstructure:"capacity"`
	// Retention is the durable retention window; older rows are purged.
	Retention time.Duration `json:"retention" mapstructure:"retention"`
}

// DefaultConfig returns recorder defaults.
func DefaultConfig() Config {
	return Config{Capacity: DefaultCapacity, Retention: DefaultRetention}
}

// Recorder is the process-wide telemetry service: initialized once at
// application start and kept for the process lifetime. Reads return
// snapshots; writes are serialized by the recorder's mutex.
type Recorder struct {
	mu      sync.RWMutex
	entries []*Entry
	subs    map[int]func(Event)
	nextSub int

	store     Store
	capacity  int
	retention time.Duration
	log       zerolog.Logger
}

// Compile-time check: the recorder consumes dispatcher results.
var _ compressor.Recorder = (*Recorder)(nil)

// New creates a recorder backed by store, loads previously persisted entries
// and purges those older than the retention window. store may be nil for a
// purely in-memory recorder.
func New(store Store, cfg Config) *Recorder {
	if cfg.Capacity <= 0 {
		cfg.Capacity = DefaultCapacity
	}
	if cfg.Retention <= 0 {
		cfg.Retention = DefaultRetention
	}

	r := &Recorder{
		subs:      make(map[int]func(Event)),
		store:     store,
		capacity:  cfg.Capacity,
		retention: cfg.Retention,
		log:       logger.Component("telemetry"),
	}

	if store != nil {
		if n, err := store.DeleteDebugLogsOlderThan(time.Now().Add(-cfg.Retention)); err != nil {
			r.log.Warn().Err(err).Msg("purge on start failed")
		} else if n > 0 {
			r.log.Info().Int64("purged", n).Msg("purged expired debug logs")
		}

		rows, err := store.RecentDebugLogs(cfg.Capacity)
		if err != nil {
			r.log.Warn().Err(err).Msg("load persisted debug logs failed")
		} else {
			for _, row := range rows {
				r.entries = append(r.entries, fromRow(row))
			}
		}
	}

	return r
}

// Record converts a compression result into a debug log entry, appends it to
// the ring, mirrors it to durable storage and notifies subscribers.
// Persistence failures are logged and never block the caller.
func (r *Recorder) Record(result compressor.Result) {
	entry := &Entry{
		ID:             uuid.New().String(),
		SessionID:      result.SessionID,
		Zone:           result.Zone,
		ChunkIndex:     result.ChunkIndex,
		ChunkTotal:     result.ChunkTotal,
		Backend:        result.Backend,
		Status:         string(result.Status),
		FallbackReason: result.FallbackReason,
		ErrorMessage:   result.ErrorMessage,
		InputTokens:    result.InputTokens,
		OutputTokens:   result.OutputTokens,
		Duration:       result.Duration,
		InputPreview:   preview(result.Input),
		OutputPreview:  preview(result.Output),
		CreatedAt:      time.Now(),
	}

	r.mu.Lock()
	r.entries = append(r.entries, entry)
	if len(r.entries) > r.capacity {
		r.entries = r.entries[len(r.entries)-r.capacity:]
	}
	subs := r.snapshotSubs()
	r.mu.Unlock()

	if r.store != nil {
		if err := r.store.BulkAppendDebugLogs([]*storage.DebugLog{toRow(entry)}); err != nil {
			r.log.Warn().Err(err).Str("session_id", entry.SessionID).Msg("persist debug log failed")
		}
	}

	for _, fn := range subs {
		fn(Event{Kind: EventRecorded, Entry: entry})
	}
}

// Logs returns a snapshot of buffered entries, newest last. An empty
// sessionID returns all sessions.
func (r *Recorder) Logs(sessionID string) []*Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, len(r.entries))
	for _, e := range r.entries {
		if sessionID == "" || e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out
}

// LogsBetween returns entries recorded in [from, to], oldest first. Durable
// storage is consulted when available, so entries evicted from the ring are
// still reachable; without a store the ring is filtered in place.
func (r *Recorder) LogsBetween(sessionID string, from, to time.Time) ([]*Entry, error) {
	if r.store != nil {
		rows, err := r.store.DebugLogsByTimeRange(sessionID, from, to)
		if err != nil {
			return nil, err
		}
		out := make([]*Entry, 0, len(rows))
		for _, row := range rows {
			out = append(out, fromRow(row))
		}
		return out, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*Entry
	for _, e := range r.entries {
		if sessionID != "" && e.SessionID != sessionID {
			continue
		}
		if e.CreatedAt.Before(from) || e.CreatedAt.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// Clear removes entries for one session, or everything when sessionID is
// empty, from both the ring and durable storage.
func (r *Recorder) Clear(sessionID string) {
	r.mu.Lock()
	if sessionID == "" {
		r.entries = nil
	} else {
		kept := r.entries[:0]
		for _, e := range r.entries {
			if e.SessionID != sessionID {
				kept = append(kept, e)
			}
		}
		r.entries = kept
	}
	subs := r.snapshotSubs()
	r.mu.Unlock()

	if r.store != nil {
		if _, err := r.store.DeleteDebugLogs(sessionID); err != nil {
			r.log.Warn().Err(err).Msg("clear debug logs failed")
		}
	}

	for _, fn := range subs {
		fn(Event{Kind: EventCleared, SessionID: sessionID})
	}
}

// Purge drops entries older than the retention window from durable storage
// and the ring. Called at service start and periodically by the sweeper.
func (r *Recorder) Purge() (int64, error) {
	cutoff := time.Now().Add(-r.retention)

	r.mu.Lock()
	kept := r.entries[:0]
	for _, e := range r.entries {
		if !e.CreatedAt.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	r.entries = kept
	r.mu.Unlock()

	if r.store == nil {
		return 0, nil
	}
	return r.store.DeleteDebugLogsOlderThan(cutoff)
}

// Subscribe registers a callback invoked synchronously after every mutation.
// The returned function removes the subscription.
func (r *Recorder) Subscribe(fn func(Event)) func() {
	r.mu.Lock()
	id := r.nextSub
	r.nextSub++
	r.subs[id] = fn
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		delete(r.subs, id)
		r.mu.Unlock()
	}
}

func (r *Recorder) snapshotSubs() []func(Event) {
	out := make([]func(Event), 0, len(r.subs))
	for _, fn := range r.subs {
		out = append(out, fn)
	}
	return out
}

func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewMaxChars {
		return text
	}
	return string(runes[:previewMaxChars]) + "…"
}

func toRow(e *Entry) *storage.DebugLog {
	return &storage.DebugLog{
		ID:             e.ID,
		SessionID:      e.SessionID,
		Zone:           e.Zone,
		ChunkIndex:     e.ChunkIndex,
		ChunkTotal:     e.ChunkTotal,
		Backend:        e.Backend,
		Status:         e.Status,
		FallbackReason: e.FallbackReason,
		ErrorMessage:   e.ErrorMessage,
		InputTokens:    e.InputTokens,
		OutputTokens:   e.OutputTokens,
		DurationMS:     e.Duration.Milliseconds(),
		InputPreview:   e.InputPreview,
		OutputPreview:  e.OutputPreview,
		CreatedAt:      e.CreatedAt,
	}
}

func fromRow(row *storage.DebugLog) *Entry {
	return &Entry{
		ID:             row.ID,
		SessionID:      row.SessionID,
		Zone:           row.Zone,
		ChunkIndex:     row.ChunkIndex,
		ChunkTotal:     row.ChunkTotal,
		Backend:        row.Backend,
		Status:         row.Status,
		FallbackReason: row.FallbackReason,
		ErrorMessage:   row.ErrorMessage,
		InputTokens:    row.InputTokens,
		OutputTokens:   row.OutputTokens,
		Duration:       time.Duration(row.DurationMS) * time.Millisecond,
		InputPreview:   row.InputPreview,
		OutputPreview:  row.OutputPreview,
		CreatedAt:      row.CreatedAt,
	}
}
