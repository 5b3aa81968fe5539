// Package backend defines the summarization backend interface and types.
package backend

import (
	"context"
	"fmt"
)

// Request is one summarization call: a chunk of zone text plus the target
// retention rate. Constructed per dispatch, never reused.
type Request struct {
	Text          string  `json:"text"`
	RetentionRate float64 `json:"retention_rate"`
	SessionID     string  `json:"session_id"`
	Zone          string  `json:"zone"`
	ChunkIndex    int     `json:"chunk_index"`
	ChunkTotal    int     `json:"chunk_total"`

	// TargetChars is the target output length in characters, computed by the
	// dispatcher as len(Text) × RetentionRate.
	TargetChars int `json:"target_chars"`

	// MaxTokens caps the backend's output generation.
	MaxTokens int `json:"max_tokens"`
}

// Response is a backend's summarization output. Token counts are zero when
// the backend does not report usage; the dispatcher estimates them.
type Response struct {
	Text         string `json:"text"`
	InputTokens  int    `json:"input_tokens"`
	OutputTokens int    `json:"output_tokens"`

	// Filtered is set when the backend flagged the output as safety-filtered.
	Filtered bool `json:"filtered,omitempty"`
}

// Summarizer is implemented by each concrete summarization backend.
type Summarizer interface {
	// Name returns the backend identifier used in telemetry.
	Name() string

	// Summarize compresses a chunk of text to the target retention rate.
	Summarize(ctx context.Context, req Request) (*Response, error)
}

const summarizePrompt = `Condense the following conversation excerpt to roughly %d%% of its length (about %d characters). Preserve key facts, decisions, names and pending questions; drop pleasantries and repetition. Reply with the condensed text only.

Excerpt:
%s`

// Prompt renders the summarization instruction for a request.
func Prompt(req Request) string {
	pct := int(req.RetentionRate * 100)
	if pct < 1 {
		pct = 1
	}
	return fmt.Sprintf(summarizePrompt, pct, req.TargetChars, req.Text)
}
