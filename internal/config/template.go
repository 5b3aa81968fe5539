package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileSkeleton mirrors the subset of Config worth surfacing in a starter
// file. Field order here is the order rendered to disk.
type fileSkeleton struct {
	Log struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"log"`
	Storage struct {
		Path string `yaml:"path"`
	} `yaml:"storage"`
	Engine struct {
		Model            string  `yaml:"model"`
		TriggerThreshold float64 `yaml:"trigger_threshold"`
	} `yaml:"engine"`
	Backends struct {
		Chain  []string `yaml:"chain"`
		OpenAI struct {
			APIKey string `yaml:"api_key"`
			Model  string `yaml:"model"`
		} `yaml:"openai"`
		Ollama struct {
			Endpoint string `yaml:"endpoint"`
			Model    string `yaml:"model"`
		} `yaml:"ollama"`
	} `yaml:"backends"`
	Gateway struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"gateway"`
}

func defaultSkeleton() fileSkeleton {
	var f fileSkeleton
	f.Log.Level = "info"
	f.Log.Format = "console"
	f.Storage.Path = DefaultDataPath()
	f.Engine.Model = "gpt-4o-mini"
	f.Engine.TriggerThreshold = 0.8
	f.Backends.Chain = []string{"openai", "ollama"}
	f.Backends.OpenAI.Model = "gpt-4o-mini"
	f.Backends.Ollama.Endpoint = "http://localhost:11434"
	f.Backends.Ollama.Model = "llama3.2"
	f.Gateway.Enabled = true
	f.Gateway.Addr = "127.0.0.1:7533"
	return f
}

// WriteDefault writes a starter config file at path, refusing to overwrite
// an existing one. Pass "" for the default location.
func WriteDefault(path string) error {
	if path == "" {
		path = DefaultConfigPath()
	}
	path = ExpandPath(path)

	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	skeleton := defaultSkeleton()
	data, err := yaml.Marshal(&skeleton)
	if err != nil {
		return fmt.Errorf("render config: %w", err)
	}
	return os.WriteFile(path, data, 0o600)
}
