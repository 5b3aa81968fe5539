// Package engine orchestrates the context-window management pipeline: budget
// check, zone partitioning, compression dispatch and summary attachment.
package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"skein/internal/budget"
	"skein/internal/compressor"
	"skein/internal/storage"
	"skein/internal/transcript"
	"skein/internal/zone"
	"skein/pkg/logger"
)

// Config holds engine settings.
type Config struct {
	// Model resolves the context window via the model registry.
	Model string `json:"model" mapstructure:"model"`

	// MaxTokensOverride, when positive, wins over the registry.
	MaxTokensOverride int `json:"max_tokens_override" mapstructure:"max_tokens_override"`

	// TriggerThreshold is the utilization fraction above which compression
	// runs. Default: 0.8
	TriggerThreshold float64 `json:"trigger_threshold" mapstructure:"trigger_threshold"`

	// Zones holds tier ceilings and retention rates.
	Zones zone.Config `json:"zones" mapstructure:"zones"`
}

// DefaultConfig returns engine defaults.
func DefaultConfig() Config {
	return Config{
		Model:            "gpt-4o-mini",
		TriggerThreshold: 0.8,
		Zones:            zone.DefaultConfig(),
	}
}

// KV is the bookkeeping boundary; *storage.DB satisfies it. May be nil.
type KV interface {
	KVSet(key, value string, ttl time.Duration) error
	KVGet(key string) (string, error)
	KVDelete(key string) error
}

// Report summarizes one engine run.
type Report struct {
	SessionID string              `json:"session_id"`
	Triggered bool                `json:"triggered"`
	Before    budget.Usage        `json:"before"`
	After     budget.Usage        `json:"after,omitempty"`
	Zones     int                 `json:"zones"`
	Results   []compressor.Result `json:"results,omitempty"`
}

// Manager drives the compression pipeline for one transcript store. One
// logical pipeline runs per conversation; callers serialize runs per session.
type Manager struct {
	store      transcript.Store
	calc       *budget.Calculator
	dispatcher *compressor.Dispatcher
	kv         KV
	cfg        Config
	log        zerolog.Logger
}

// NewManager creates an engine manager.
func NewManager(store transcript.Store, calc *budget.Calculator, dispatcher *compressor.Dispatcher, kv KV, cfg Config) *Manager {
	if cfg.TriggerThreshold <= 0 || cfg.TriggerThreshold > 1 {
		cfg.TriggerThreshold = 0.8
	}
	if cfg.Zones.RecentCeiling <= 0 {
		cfg.Zones = zone.DefaultConfig()
	}
	return &Manager{
		store:      store,
		calc:       calc,
		dispatcher: dispatcher,
		kv:         kv,
		cfg:        cfg,
		log:        logger.Component("engine"),
	}
}

// Usage computes current context-window consumption for a session.
func (m *Manager) Usage(ctx context.Context, sessionID string) (budget.Usage, error) {
	entries, err := m.store.Entries(sessionID)
	if err != nil {
		return budget.Usage{}, fmt.Errorf("load entries: %w", err)
	}
	return m.calc.ComputeUsage(ctx, entries, m.cfg.Model, budget.Options{
		MaxTokensOverride: m.cfg.MaxTokensOverride,
	})
}

// NeedsCompression reports whether usage exceeds the trigger threshold.
func (m *Manager) NeedsCompression(usage budget.Usage) bool {
	return usage.UtilizationPct > m.cfg.TriggerThreshold*100
}

// Run checks the budget and compresses when the trigger threshold is
// exceeded. Compression failures degrade to truncated output inside the
// dispatcher; only storage and tokenizer errors surface here.
func (m *Manager) Run(ctx context.Context, sessionID string) (*Report, error) {
	usage, err := m.Usage(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if !m.NeedsCompression(usage) {
		return &Report{SessionID: sessionID, Before: usage}, nil
	}
	return m.Compress(ctx, sessionID)
}

// Compress partitions the transcript and compresses every compressible zone,
// attaching the resulting summaries to the transcript store.
func (m *Manager) Compress(ctx context.Context, sessionID string) (*Report, error) {
	entries, err := m.store.Entries(sessionID)
	if err != nil {
		return nil, fmt.Errorf("load entries: %w", err)
	}

	before, err := m.calc.ComputeUsage(ctx, entries, m.cfg.Model, budget.Options{
		MaxTokensOverride: m.cfg.MaxTokensOverride,
	})
	if err != nil {
		return nil, err
	}

	counts, err := m.calc.CountEntries(ctx, entries, m.cfg.Model)
	if err != nil {
		return nil, fmt.Errorf("count entries: %w", err)
	}

	zones := zone.Partition(entries, counts, m.cfg.Zones)
	report := &Report{
		SessionID: sessionID,
		Triggered: true,
		Before:    before,
		Zones:     len(zones),
	}

	for _, z := range zones {
		if !z.Compressible() {
			continue
		}

		outcomes := m.dispatcher.Compress(ctx, sessionID, z)
		for _, o := range outcomes {
			report.Results = append(report.Results, o.Result)
		}
		if err := m.attach(outcomes, z.Retention); err != nil {
			m.log.Warn().Err(err).
				Str("session_id", sessionID).
				Str("zone", string(z.Kind)).
				Msg("attach summaries failed")
		}

		if ctx.Err() != nil {
			return report, ctx.Err()
		}
	}

	m.bookkeep(sessionID)

	after, err := m.Usage(ctx, sessionID)
	if err == nil {
		report.After = after
	}

	m.log.Info().
		Str("session_id", sessionID).
		Int("zones", report.Zones).
		Int("results", len(report.Results)).
		Int("before_tokens", report.Before.TotalTokens).
		Int("after_tokens", report.After.TotalTokens).
		Msg("compression completed")

	return report, nil
}

// attach writes chunk summaries back onto the transcript. The first entry of
// each chunk carries the summary text; remaining entries of the chunk are
// folded (empty summary at the same retention) so their raw text no longer
// counts against the budget. Raw content is never touched. Aborted chunks
// (empty output) are skipped so a later run retries them.
func (m *Manager) attach(outcomes []compressor.Outcome, retention float64) error {
	summaries := make(map[string]*strings.Builder)
	folded := make(map[string]bool)
	var order []string

	for _, o := range outcomes {
		if o.Result.Output == "" || len(o.Entries) == 0 {
			continue
		}

		leadID := o.Entries[0].ID
		sb, ok := summaries[leadID]
		if !ok {
			sb = &strings.Builder{}
			summaries[leadID] = sb
			order = append(order, leadID)
		}
		if sb.Len() > 0 {
			// Window-split entries produce several chunks for one lead.
			sb.WriteString("\n")
		}
		sb.WriteString(o.Result.Output)

		for _, e := range o.Entries[1:] {
			if _, isLead := summaries[e.ID]; !isLead {
				folded[e.ID] = true
			}
		}
	}

	var errs []error
	for _, id := range order {
		if err := m.store.AttachSummary(id, summaries[id].String(), retention); err != nil {
			errs = append(errs, fmt.Errorf("entry %s: %w", id, err))
		}
	}
	for id := range folded {
		if err := m.store.AttachSummary(id, "", retention); err != nil {
			errs = append(errs, fmt.Errorf("entry %s: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func bookkeepKeys(sessionID string) (countKey, lastKey string) {
	return "compression_count:" + sessionID, "last_compression:" + sessionID
}

// bookkeep tracks per-session compression counts and the last run timestamp.
func (m *Manager) bookkeep(sessionID string) {
	if m.kv == nil {
		return
	}

	countKey, lastKey := bookkeepKeys(sessionID)
	count := 0
	if v, err := m.kv.KVGet(countKey); err == nil {
		count, _ = strconv.Atoi(v)
	}
	if err := m.kv.KVSet(countKey, strconv.Itoa(count+1), 0); err != nil {
		m.log.Warn().Err(err).Msg("bookkeeping write failed")
	}
	if err := m.kv.KVSet(lastKey, time.Now().Format(time.RFC3339), 0); err != nil {
		m.log.Warn().Err(err).Msg("bookkeeping write failed")
	}
}

// ClearBookkeeping removes the per-session counters, typically alongside a
// telemetry clear. Missing keys are not an error.
func (m *Manager) ClearBookkeeping(sessionID string) {
	if m.kv == nil {
		return
	}

	countKey, lastKey := bookkeepKeys(sessionID)
	for _, key := range []string{countKey, lastKey} {
		if err := m.kv.KVDelete(key); err != nil && !errors.Is(err, storage.ErrNotFound) {
			m.log.Warn().Err(err).Str("key", key).Msg("bookkeeping delete failed")
		}
	}
}
