// Package insights derives human-readable diagnostics from compression
// telemetry. Pure threshold rules over session statistics.
package insights

import (
	"fmt"
	"time"

	"skein/internal/telemetry"
)

// Thresholds for the diagnostic rules.
const (
	minSuccessRate  = 0.80
	maxFallbackRate = 0.20
	slowAvgDuration = 15 * time.Second
	fastAvgDuration = 3 * time.Second
	minRatio        = 0.25
	maxRatio        = 0.60
)

// tierNotes explain the retention configuration to the reader. Always
// appended after any warnings.
var tierNotes = []string{
	"Tier retention: recent entries are kept verbatim; mid-term entries are compressed to ~40% of their size; archived entries to ~20%.",
	"Short conversations below the recent ceiling are never compressed.",
}

// Messages derives zero or more diagnostic statements from stats, followed by
// static notes about tier retention. Deterministic, no side effects.
func Messages(stats telemetry.Stats) []string {
	var msgs []string

	if stats.Total == 0 {
		msgs = append(msgs, "No compression operations recorded for this conversation yet.")
		return append(msgs, tierNotes...)
	}

	if rate := stats.SuccessRate(); rate < minSuccessRate {
		msgs = append(msgs, fmt.Sprintf(
			"Success rate is %.0f%% (below %.0f%%): check summarization backend health and API credentials.",
			rate*100, minSuccessRate*100))
	}

	if rate := stats.FallbackRate(); rate > maxFallbackRate {
		msgs = append(msgs, fmt.Sprintf(
			"Fallback rate is %.0f%% (above %.0f%%): the primary backend may be safety-filtering or degrading output.",
			rate*100, maxFallbackRate*100))
	}

	switch avg := stats.AvgDuration; {
	case avg > slowAvgDuration:
		msgs = append(msgs, fmt.Sprintf(
			"Average compression takes %.1fs: consider smaller chunk sizes to reduce per-call latency.",
			avg.Seconds()))
	case avg < fastAvgDuration:
		msgs = append(msgs, fmt.Sprintf(
			"Compression is fast (%.1fs average): backend latency is healthy.", avg.Seconds()))
	}

	if ratio := stats.CompressionRatio(); ratio > 0 {
		if ratio < minRatio {
			msgs = append(msgs, fmt.Sprintf(
				"Compression ratio is %.0f%% (below %.0f%%): summaries may be dropping important context.",
				ratio*100, minRatio*100))
		} else if ratio > maxRatio {
			msgs = append(msgs, fmt.Sprintf(
				"Compression ratio is %.0f%% (above %.0f%%): summaries barely shrink the input; check retention targets.",
				ratio*100, maxRatio*100))
		}
	}

	return append(msgs, tierNotes...)
}
