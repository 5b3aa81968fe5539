package tokenizer

import (
	"context"
	"strings"
	"testing"
)

func TestHeuristicCount(t *testing.T) {
	h := NewHeuristic()

	tests := []struct {
		name string
		text string
		want int
	}{
		{"empty", "", 0},
		{"one char", "a", 1 + entryOverhead},
		{"three chars", "abc", 1 + entryOverhead},
		{"four chars", "abcd", 2 + entryOverhead},
		{"round text", strings.Repeat("x", 300), 100 + entryOverhead},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Count(context.Background(), tt.text, "gpt-4o")
			if err != nil {
				t.Fatalf("Count failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Count(%q) = %d, want %d", tt.text, got, tt.want)
			}
		})
	}
}

func TestHeuristicCountText(t *testing.T) {
	h := NewHeuristic()

	if got := h.CountText(""); got != 0 {
		t.Errorf("CountText(\"\") = %d, want 0", got)
	}
	if got := h.CountText("abcdef"); got != 2 {
		t.Errorf("CountText = %d, want 2", got)
	}
	// CJK text counts bytes, roughly one token per character.
	if got := h.CountText("你好"); got != 2 {
		t.Errorf("CountText CJK = %d, want 2", got)
	}
}
