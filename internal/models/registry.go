// Package models holds the model registry: per-model context window sizes.
package models

// DefaultContextWindow is used for models the registry does not know about.
const DefaultContextWindow = 32768

// contextWindows maps model identifiers to their maximum context size in
// tokens. Prefix matching handles dated snapshot names.
var contextWindows = map[string]int{
	"gpt-4o":            128000,
	"gpt-4o-mini":       128000,
	"gpt-4.1":           1047576,
	"gpt-4.1-mini":      1047576,
	"claude-sonnet-4":   200000,
	"claude-haiku-4":    200000,
	"gemini-2.5-pro":    1048576,
	"gemini-2.5-flash":  1048576,
	"llama3.1":          131072,
	"llama3.2":          131072,
	"qwen2.5":           32768,
	"deepseek-r1":       65536,
	"glm-4-plus":        128000,
	"glm-4-flash":       128000,
	"mistral-small":     32768,
}

// ContextWindow returns the maximum context size for a model, falling back to
// DefaultContextWindow for unknown models.
func ContextWindow(model string) int {
	if n, ok := contextWindows[model]; ok {
		return n
	}
	// Dated snapshots like "gpt-4o-2024-08-06" share the base model's window.
	for prefix, n := range contextWindows {
		if len(model) > len(prefix) && model[:len(prefix)] == prefix &&
			(model[len(prefix)] == '-' || model[len(prefix)] == ':') {
			return n
		}
	}
	return DefaultContextWindow
}

// Known reports whether the model has a registered context window.
func Known(model string) bool {
	if _, ok := contextWindows[model]; ok {
		return true
	}
	for prefix := range contextWindows {
		if len(model) > len(prefix) && model[:len(prefix)] == prefix &&
			(model[len(prefix)] == '-' || model[len(prefix)] == ':') {
			return true
		}
	}
	return false
}
