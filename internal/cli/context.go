package cli

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"skein/internal/backend"
	"skein/internal/backend/ollama"
	"skein/internal/backend/openai"
	"skein/internal/budget"
	"skein/internal/compressor"
	"skein/internal/config"
	"skein/internal/engine"
	"skein/internal/storage"
	"skein/internal/telemetry"
	"skein/internal/tokenizer"
	"skein/pkg/logger"
)

// CLIContext carries loaded configuration and lazily opened resources
// through a command invocation.
type CLIContext struct {
	Config     *config.Config
	ConfigPath string
	Logger     *zerolog.Logger

	storageOnce sync.Once
	storage     *storage.DB
	storageErr  error

	recorderOnce sync.Once
	recorder     *telemetry.Recorder
}

// NewCLIContext creates a CLI context.
func NewCLIContext(cfg *config.Config, configPath string, log *zerolog.Logger) *CLIContext {
	return &CLIContext{
		Config:     cfg,
		ConfigPath: configPath,
		Logger:     log,
	}
}

// GetStorage opens the database on first use.
func (c *CLIContext) GetStorage() (*storage.DB, error) {
	c.storageOnce.Do(func() {
		c.storage, c.storageErr = storage.Open(c.Config.Storage.Path)
	})
	return c.storage, c.storageErr
}

// GetRecorder returns the telemetry recorder, creating it on first use.
func (c *CLIContext) GetRecorder() (*telemetry.Recorder, error) {
	db, err := c.GetStorage()
	if err != nil {
		return nil, err
	}
	c.recorderOnce.Do(func() {
		c.recorder = telemetry.New(db, c.Config.Telemetry)
	})
	return c.recorder, nil
}

// BuildChain constructs the summarization chain from configuration.
func (c *CLIContext) BuildChain() ([]backend.Summarizer, error) {
	var chain []backend.Summarizer
	for _, name := range c.Config.Backends.Chain {
		switch name {
		case "openai":
			cfg := c.Config.Backends.OpenAI
			client, err := openai.New(openai.Config{
				APIKey:   cfg.APIKey,
				Endpoint: cfg.Endpoint,
				Model:    cfg.Model,
				Timeout:  cfg.Timeout,
			})
			if err != nil {
				return nil, err
			}
			chain = append(chain, client)
		case "ollama":
			cfg := c.Config.Backends.Ollama
			chain = append(chain, ollama.New(ollama.Config{
				Endpoint: cfg.Endpoint,
				Model:    cfg.Model,
				Timeout:  cfg.Timeout,
			}))
		default:
			return nil, fmt.Errorf("unknown backend %q in chain", name)
		}
	}
	return chain, nil
}

// BuildEngine wires storage, tokenizer, chain, dispatcher and recorder into
// an engine manager.
func (c *CLIContext) BuildEngine() (*engine.Manager, error) {
	db, err := c.GetStorage()
	if err != nil {
		return nil, err
	}
	recorder, err := c.GetRecorder()
	if err != nil {
		return nil, err
	}
	chain, err := c.BuildChain()
	if err != nil {
		return nil, err
	}

	calc := budget.NewCalculator(tokenizer.NewHeuristic())
	dispatcher := compressor.NewDispatcher(chain, recorder, c.Config.Compressor)
	return engine.NewManager(db, calc, dispatcher, db, c.Config.Engine), nil
}

// Close releases resources opened during the invocation.
func (c *CLIContext) Close() error {
	if c.storage != nil {
		return c.storage.Close()
	}
	return nil
}

// Log returns the invocation logger.
func (c *CLIContext) Log() *zerolog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return logger.Get()
}
