package backend

import (
	"context"
	"strings"
	"unicode/utf8"
)

// Truncate is the terminal fallback: it deterministically keeps the first
// TargetChars characters of the input. It never fails, guaranteeing that a
// compression operation always terminates with some usable text.
type Truncate struct{}

// NewTruncate returns the truncation strategy.
func NewTruncate() *Truncate {
	return &Truncate{}
}

// Name implements Summarizer.
func (t *Truncate) Name() string {
	return "truncate"
}

// Summarize implements Summarizer.
func (t *Truncate) Summarize(_ context.Context, req Request) (*Response, error) {
	target := req.TargetChars
	if target <= 0 {
		target = 1
	}

	return &Response{Text: truncateText(req.Text, target)}, nil
}

// truncateText cuts text to at most limit characters, backing up to the last
// whitespace within the kept range when one is reasonably close, and never
// splitting a multi-byte rune.
func truncateText(text string, limit int) string {
	if utf8.RuneCountInString(text) <= limit {
		return text
	}

	runes := []rune(text)
	cut := limit
	// Prefer a word boundary in the last tenth of the kept range.
	for i := limit; i > limit-limit/10-1 && i > 0; i-- {
		if isSpace(runes[i-1]) {
			cut = i - 1
			break
		}
	}

	return strings.TrimRight(string(runes[:cut]), " \t\n")
}

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}
