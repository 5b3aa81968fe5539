package compressor

import "time"

// Status of a compression attempt. One Result is produced per chunk and
// reflects the outcome of the whole backend chain.
type Status string

const (
	// StatusSuccess: the primary backend produced usable output.
	StatusSuccess Status = "success"
	// StatusFallback: a non-primary backend or the truncation strategy was
	// used. FallbackReason names the triggering condition.
	StatusFallback Status = "fallback"
	// StatusError: every backend failed; the output is truncated text.
	StatusError Status = "error"
)

// Result is the immutable record of one chunk compression attempt.
type Result struct {
	SessionID      string        `json:"session_id"`
	Zone           string        `json:"zone"`
	ChunkIndex     int           `json:"chunk_index"`
	ChunkTotal     int           `json:"chunk_total"`
	Backend        string        `json:"backend"`
	Status         Status        `json:"status"`
	FallbackReason string        `json:"fallback_reason,omitempty"`
	ErrorMessage   string        `json:"error_message,omitempty"`
	InputTokens    int           `json:"input_tokens"`
	OutputTokens   int           `json:"output_tokens"`
	Duration       time.Duration `json:"duration"`

	// Input and Output carry the chunk text; telemetry persists bounded
	// previews only.
	Input  string `json:"-"`
	Output string `json:"-"`
}

// Recorder receives every compression result. Implemented by the telemetry
// recorder; the interface lives here so the dispatcher stays decoupled from
// telemetry internals.
type Recorder interface {
	Record(result Result)
}
