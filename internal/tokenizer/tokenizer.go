// Package tokenizer defines the token-counting boundary.
package tokenizer

import "context"

// Counter counts tokens for a piece of text under a specific model. Counting
// may be remote and slow; implementations must be safe for concurrent use and
// must not mutate the input.
type Counter interface {
	Count(ctx context.Context, text, model string) (int, error)
}

// entryOverhead approximates the per-message framing cost (role, separators).
const entryOverhead = 4

// Heuristic estimates token counts without a model-specific vocabulary.
// Approximately 3 characters per token, which works reasonably well for mixed
// English/CJK content.
type Heuristic struct{}

// NewHeuristic returns the default heuristic counter.
func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Count implements Counter. The model argument is ignored; the estimate is
// vocabulary-independent.
func (h *Heuristic) Count(_ context.Context, text, _ string) (int, error) {
	if len(text) == 0 {
		return 0, nil
	}
	return (len(text)+2)/3 + entryOverhead, nil
}

// CountText estimates tokens for bare text without entry framing overhead.
func (h *Heuristic) CountText(text string) int {
	if len(text) == 0 {
		return 0
	}
	return (len(text) + 2) / 3
}
