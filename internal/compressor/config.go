package compressor

import (
	"time"

	"skein/internal/retry"
)

// Config holds dispatcher settings.
type Config struct {
	// ChunkMaxTokens is the maximum tokens per summarization chunk.
	// Default: 4000
	ChunkMaxTokens int `json:"chunk_max_tokens" mapstructure:"chunk_max_tokens"`

	// Concurrency bounds simultaneous backend calls within one zone.
	// Default: 3
	Concurrency int `json:"concurrency" mapstructure:"concurrency"`

	// AttemptTimeout is enforced per backend attempt, independently of any
	// backend's own timeout. Default: 30s
	AttemptTimeout time.Duration `json:"attempt_timeout" mapstructure:"attempt_timeout"`

	// MinViableChars is the minimum output length below which a response is
	// treated as degraded. Default: 32
	MinViableChars int `json:"min_viable_chars" mapstructure:"min_viable_chars"`

	// Retry is the per-backend retry policy for transient failures.
	Retry retry.Policy `json:"retry" mapstructure:"retry"`
}

// DefaultConfig returns dispatcher defaults.
func DefaultConfig() Config {
	return Config{
		ChunkMaxTokens: 4000,
		Concurrency:    3,
		AttemptTimeout: 30 * time.Second,
		MinViableChars: 32,
		Retry:          retry.DefaultPolicy(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.ChunkMaxTokens <= 0 {
		c.ChunkMaxTokens = d.ChunkMaxTokens
	}
	if c.Concurrency <= 0 {
		c.Concurrency = d.Concurrency
	}
	if c.AttemptTimeout <= 0 {
		c.AttemptTimeout = d.AttemptTimeout
	}
	if c.MinViableChars <= 0 {
		c.MinViableChars = d.MinViableChars
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry = d.Retry
	}
	return c
}
