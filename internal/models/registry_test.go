package models

import "testing"

func TestContextWindow(t *testing.T) {
	tests := []struct {
		name  string
		model string
		want  int
	}{
		{"exact match", "gpt-4o", 128000},
		{"dated snapshot", "gpt-4o-2024-08-06", 128000},
		{"tagged variant", "llama3.2:3b", 131072},
		{"unknown model", "some-new-model", DefaultContextWindow},
		{"prefix without boundary", "gpt-4ox", DefaultContextWindow},
		{"empty model", "", DefaultContextWindow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ContextWindow(tt.model); got != tt.want {
				t.Errorf("ContextWindow(%q) = %d, want %d", tt.model, got, tt.want)
			}
		})
	}
}

func TestKnown(t *testing.T) {
	if !Known("claude-sonnet-4") {
		t.Error("registered model must be known")
	}
	if !Known("claude-sonnet-4-20250514") {
		t.Error("dated snapshot must be known")
	}
	if Known("unregistered-model") {
		t.Error("unregistered model must not be known")
	}
}
