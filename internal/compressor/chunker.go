package compressor

import (
	"strings"

	"skein/internal/transcript"
)

// chunk is a bounded slice of zone text: one or more whole entries, or one
// window of an entry too large to fit a single chunk.
type chunk struct {
	index   int
	entries []*transcript.Entry
	text    string
	tokens  int
}

// splitZone breaks a zone's entries into chunks along entry boundaries,
// respecting maxTokens per chunk. Entries already summarized at or below the
// target retention are skipped (idempotence). A single entry exceeding the
// chunk budget is window-split on its own.
func (d *Dispatcher) splitZone(entries []*transcript.Entry, retention float64, maxTokens int) []chunk {
	var chunks []chunk
	var current []*transcript.Entry
	currentTokens := 0

	flush := func() {
		if len(current) == 0 {
			return
		}
		chunks = append(chunks, chunk{
			entries: current,
			text:    joinEntries(current),
			tokens:  currentTokens,
		})
		current = nil
		currentTokens = 0
	}

	for _, entry := range entries {
		if entry.Summarized(retention) {
			flush()
			continue
		}

		tokens := d.counter.CountText(entry.Text())
		if tokens > maxTokens {
			// Oversized entry: flush what we have, then window-split it.
			flush()
			chunks = append(chunks, d.windowSplit(entry, maxTokens)...)
			continue
		}

		if currentTokens+tokens > maxTokens && len(current) > 0 {
			flush()
		}
		current = append(current, entry)
		currentTokens += tokens
	}
	flush()

	for i := range chunks {
		chunks[i].index = i
	}
	return chunks
}

// windowSplit cuts one oversized entry into fixed-size character windows.
// Used only when a single entry exceeds the chunk budget; entry-boundary
// chunking is the default.
func (d *Dispatcher) windowSplit(entry *transcript.Entry, maxTokens int) []chunk {
	// Heuristic inverse: ~3 chars per token.
	windowChars := maxTokens * 3
	if windowChars <= 0 {
		windowChars = 1
	}

	text := entry.Text()
	runes := []rune(text)

	var chunks []chunk
	for start := 0; start < len(runes); start += windowChars {
		end := start + windowChars
		if end > len(runes) {
			end = len(runes)
		}
		window := string(runes[start:end])
		chunks = append(chunks, chunk{
			entries: []*transcript.Entry{entry},
			text:    window,
			tokens:  d.counter.CountText(window),
		})
	}
	return chunks
}

// joinEntries renders whole entries into one summarization input.
func joinEntries(entries []*transcript.Entry) string {
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("[")
		sb.WriteString(e.Role)
		sb.WriteString("]: ")
		sb.WriteString(e.Text())
	}
	return sb.String()
}
