// Package config loads skein configuration from YAML files and SKEIN_
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"skein/internal/compressor"
	"skein/internal/engine"
	"skein/internal/retry"
	"skein/internal/telemetry"
	"skein/internal/zone"
	"skein/pkg/logger"
)

// Config is the root configuration.
type Config struct {
	Log        logger.Config     `json:"log" mapstructure:"log"`
	Storage    StorageConfig     `json:"storage" mapstructure:"storage"`
	Engine     engine.Config     `json:"engine" mapstructure:"engine"`
	Backends   BackendsConfig    `json:"backends" mapstructure:"backends"`
	Compressor compressor.Config `json:"compressor" mapstructure:"compressor"`
	Telemetry  telemetry.Config  `json:"telemetry" mapstructure:"telemetry"`
	Gateway    GatewayConfig     `json:"gateway" mapstructure:"gateway"`
	Sweeper    SweeperConfig     `json:"sweeper" mapstructure:"sweeper"`
}

// StorageConfig locates the sqlite database.
type StorageConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// BackendsConfig describes the summarization chain. Chain entries name
// backends in priority order; truncation is always the implicit terminal
// fallback and never appears in the chain.
type BackendsConfig struct {
	Chain  []string     `json:"chain" mapstructure:"chain"`
	OpenAI OpenAIConfig `json:"openai" mapstructure:"openai"`
	Ollama OllamaConfig `json:"ollama" mapstructure:"ollama"`
}

// OpenAIConfig configures the OpenAI-compatible backend.
type OpenAIConfig struct {
	APIKey   string        `json:"api_key" mapstructure:"api_key"`
	Endpoint string        `json:"endpoint" mapstructure:"endpoint"`
	Model    string        `json:"model" mapstructure:"model"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// OllamaConfig configures the local Ollama backend.
type OllamaConfig struct {
	Endpoint string        `json:"endpoint" mapstructure:"endpoint"`
	Model    string        `json:"model" mapstructure:"model"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// GatewayConfig configures the debug HTTP gateway.
type GatewayConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Addr    string `json:"addr" mapstructure:"addr"`
}

// SweeperConfig configures periodic maintenance.
type SweeperConfig struct {
	// Schedule is a cron spec for telemetry purge and KV cleanup.
	Schedule string `json:"schedule" mapstructure:"schedule"`
}

// DefaultConfigDir returns ~/.skein.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".skein"
	}
	return filepath.Join(home, ".skein")
}

// DefaultConfigPath returns the default config file location.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultDataPath returns the default sqlite database location.
func DefaultDataPath() string {
	return filepath.Join(DefaultConfigDir(), "skein.db")
}

// ExpandPath resolves a leading ~ against the user's home directory.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}
	return path
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.file", "")

	v.SetDefault("storage.path", DefaultDataPath())

	v.SetDefault("engine.model", "gpt-4o-mini")
	v.SetDefault("engine.max_tokens_override", 0)
	v.SetDefault("engine.trigger_threshold", 0.8)
	zones := zone.DefaultConfig()
	v.SetDefault("engine.zones.recent_ceiling", zones.RecentCeiling)
	v.SetDefault("engine.zones.midterm_ceiling", zones.MidTermCeiling)
	v.SetDefault("engine.zones.midterm_retention", zones.MidTermRetention)
	v.SetDefault("engine.zones.archive_retention", zones.ArchiveRetention)

	v.SetDefault("backends.chain", []string{"openai", "ollama"})
	v.SetDefault("backends.openai.endpoint", "https://api.openai.com/v1")
	v.SetDefault("backends.openai.model", "gpt-4o-mini")
	v.SetDefault("backends.openai.timeout", 30*time.Second)
	v.SetDefault("backends.ollama.endpoint", "http://localhost:11434")
	v.SetDefault("backends.ollama.model", "llama3.2")
	v.SetDefault("backends.ollama.timeout", 60*time.Second)

	v.SetDefault("compressor.chunk_max_tokens", 4000)
	v.SetDefault("compressor.concurrency", 3)
	v.SetDefault("compressor.attempt_timeout", 30*time.Second)
	v.SetDefault("compressor.min_viable_chars", 32)
	policy := retry.DefaultPolicy()
	v.SetDefault("compressor.retry.max_attempts", policy.MaxAttempts)
	v.SetDefault("compressor.retry.initial_delay", policy.InitialDelay)
	v.SetDefault("compressor.retry.max_delay", policy.MaxDelay)
	v.SetDefault("compressor.retry.multiplier", policy.Multiplier)

	v.SetDefault("telemetry.capacity", telemetry.DefaultCapacity)
	v.SetDefault("telemetry.retention", telemetry.DefaultRetention)

	v.SetDefault("gateway.enabled", true)
	v.SetDefault("gateway.addr", "127.0.0.1:7533")

	v.SetDefault("sweeper.schedule", "@hourly")
}

// Load reads configuration from path. A missing file is not an error; the
// defaults and environment take over. Pass "" to use the default location.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("SKEIN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path == "" {
		path = DefaultConfigPath()
	}
	path = ExpandPath(path)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		if _, statErr := os.Stat(path); statErr == nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	cfg.Storage.Path = ExpandPath(cfg.Storage.Path)
	cfg.Log.File = ExpandPath(cfg.Log.File)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations that cannot produce a working chain.
func (c *Config) Validate() error {
	for _, name := range c.Backends.Chain {
		switch name {
		case "openai":
			if c.Backends.OpenAI.APIKey == "" {
				return fmt.Errorf("backend %q in chain but backends.openai.api_key is empty (set SKEIN_BACKENDS_OPENAI_API_KEY)", name)
			}
		case "ollama":
		default:
			return fmt.Errorf("unknown backend %q in chain", name)
		}
	}
	if c.Engine.TriggerThreshold <= 0 || c.Engine.TriggerThreshold > 1 {
		return fmt.Errorf("engine.trigger_threshold must be in (0, 1], got %v", c.Engine.TriggerThreshold)
	}
	return nil
}
