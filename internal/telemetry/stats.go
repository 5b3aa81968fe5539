package telemetry

import "time"

// Stats are derived per-session statistics, recomputed on demand from the
// buffered entries. Never stored.
type Stats struct {
	SessionID         string        `json:"session_id"`
	Total             int           `json:"total"`
	Success           int           `json:"success"`
	Fallback          int           `json:"fallback"`
	Errors            int           `json:"errors"`
	TotalInputTokens  int           `json:"total_input_tokens"`
	TotalOutputTokens int           `json:"total_output_tokens"`
	AvgDuration       time.Duration `json:"avg_duration"`
	LastOperation     time.Time     `json:"last_operation"`
}

// SuccessRate returns the fraction of successful attempts in [0,1].
func (s Stats) SuccessRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Success) / float64(s.Total)
}

// FallbackRate returns the fraction of fallback attempts in [0,1].
func (s Stats) FallbackRate() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Fallback) / float64(s.Total)
}

// CompressionRatio returns output tokens over input tokens in [0,1], or 0
// when nothing was compressed.
func (s Stats) CompressionRatio() float64 {
	if s.TotalInputTokens == 0 {
		return 0
	}
	return float64(s.TotalOutputTokens) / float64(s.TotalInputTokens)
}

// Stats computes statistics over the buffered entries of one session.
func (r *Recorder) Stats(sessionID string) Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := Stats{SessionID: sessionID}
	var totalDuration time.Duration

	for _, e := range r.entries {
		if e.SessionID != sessionID {
			continue
		}
		stats.Total++
		switch e.Status {
		case "success":
			stats.Success++
		case "fallback":
			stats.Fallback++
		case "error":
			stats.Errors++
		}
		stats.TotalInputTokens += e.InputTokens
		stats.TotalOutputTokens += e.OutputTokens
		totalDuration += e.Duration
		if e.CreatedAt.After(stats.LastOperation) {
			stats.LastOperation = e.CreatedAt
		}
	}

	if stats.Total > 0 {
		stats.AvgDuration = totalDuration / time.Duration(stats.Total)
	}
	return stats
}
