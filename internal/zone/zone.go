// Package zone partitions a transcript into retention tiers.
package zone

import "skein/internal/transcript"

// Kind identifies a retention tier.
type Kind string

// Retention tiers, most recent first. Basic is the fallback for short
// transcripts where no tiering applies.
const (
	Recent  Kind = "recent"
	MidTerm Kind = "midTerm"
	Archive Kind = "archive"
	Basic   Kind = "basic"
)

// Config holds tier ceilings and target retention rates.
type Config struct {
	// RecentCeiling is the token budget of the Recent tier. Transcripts
	// smaller than this are a single Basic zone.
	RecentCeiling int `json:"recent_ceiling" mapstructure:"recent_ceiling"`

	// MidTermCeiling is the token budget of the MidTerm tier.
	MidTermCeiling int `json:"midterm_ceiling" mapstructure:"midterm_ceiling"`

	// Retention rates: fraction of the original size preserved after
	// compression. Recent and Basic are never compressed.
	MidTermRetention float64 `json:"midterm_retention" mapstructure:"midterm_retention"`
	ArchiveRetention float64 `json:"archive_retention" mapstructure:"archive_retention"`
}

// DefaultConfig returns the default tier configuration.
func DefaultConfig() Config {
	return Config{
		RecentCeiling:    35000,
		MidTermCeiling:   40000,
		MidTermRetention: 0.40,
		ArchiveRetention: 0.20,
	}
}

// Zone is one retention bucket: a contiguous run of transcript entries with a
// target retention rate. Entries are in chronological order.
type Zone struct {
	Kind      Kind
	Entries   []*transcript.Entry
	Tokens    int
	Retention float64
}

// Compressible reports whether the zone is subject to compression at all.
func (z *Zone) Compressible() bool {
	return z.Kind == MidTerm || z.Kind == Archive
}

// Partition assigns entries to tiers by walking the transcript newest to
// oldest. counts[i] is the token count of entries[i]; both slices are in
// chronological order. An entry that would straddle a ceiling is assigned to
// the older tier in full; entries are never split here.
//
// Returned zones are ordered most recent to oldest and cover the transcript
// without overlap. A transcript smaller than the Recent ceiling yields a
// single Basic zone.
func Partition(entries []*transcript.Entry, counts []int, cfg Config) []Zone {
	if len(entries) == 0 {
		return nil
	}

	total := 0
	for _, n := range counts {
		total += n
	}

	if total < cfg.RecentCeiling {
		return []Zone{{
			Kind:      Basic,
			Entries:   entries,
			Tokens:    total,
			Retention: 1.0,
		}}
	}

	// Walk newest to oldest collecting tier boundaries. recentStart and
	// midStart are chronological indexes: entries[recentStart:] is Recent,
	// entries[midStart:recentStart] is MidTerm, the rest is Archive.
	recentStart := len(entries)
	recentTokens := 0
	for i := len(entries) - 1; i >= 0; i-- {
		if recentTokens+counts[i] > cfg.RecentCeiling {
			break
		}
		recentTokens += counts[i]
		recentStart = i
	}
	// Recent must hold at least the newest entry, even when that single entry
	// exceeds the ceiling on its own.
	if recentStart == len(entries) {
		recentStart = len(entries) - 1
		recentTokens = counts[len(entries)-1]
	}

	midStart := recentStart
	midTokens := 0
	for i := recentStart - 1; i >= 0; i-- {
		if midTokens+counts[i] > cfg.MidTermCeiling {
			break
		}
		midTokens += counts[i]
		midStart = i
	}

	var zones []Zone
	if recentStart < len(entries) {
		zones = append(zones, Zone{
			Kind:      Recent,
			Entries:   entries[recentStart:],
			Tokens:    recentTokens,
			Retention: 1.0,
		})
	}
	if midStart < recentStart {
		zones = append(zones, Zone{
			Kind:      MidTerm,
			Entries:   entries[midStart:recentStart],
			Tokens:    midTokens,
			Retention: cfg.MidTermRetention,
		})
	}
	if midStart > 0 {
		archiveTokens := 0
		for i := 0; i < midStart; i++ {
			archiveTokens += counts[i]
		}
		zones = append(zones, Zone{
			Kind:      Archive,
			Entries:   entries[:midStart],
			Tokens:    archiveTokens,
			Retention: cfg.ArchiveRetention,
		})
	}

	return zones
}
