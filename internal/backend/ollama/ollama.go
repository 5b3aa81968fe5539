// Package ollama implements the Summarizer interface against a local Ollama
// server's /api/generate endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"skein/internal/backend"
	"skein/pkg/logger"
)

// Compile-time interface check.
var _ backend.Summarizer = (*Client)(nil)

// Defaults.
const (
	DefaultEndpoint  = "http://localhost:11434"
	DefaultModel     = "llama3.2"
	DefaultTimeout   = 60 * time.Second
	DefaultKeepAlive = "5m"
)

// Config holds settings for the Ollama backend.
type Config struct {
	Endpoint  string        `json:"endpoint" mapstructure:"endpoint"`
	Model     string        `json:"model" mapstructure:"model"`
	Timeout   time.Duration `json:"timeout" mapstructure:"timeout"`
	KeepAlive string        `json:"keep_alive" mapstructure:"keep_alive"`
}

// Client is a summarization backend using a local Ollama server.
type Client struct {
	endpoint   string
	model      string
	keepAlive  string
	httpClient *http.Client
}

// New creates the backend. Ollama needs no credentials.
func New(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.KeepAlive == "" {
		cfg.KeepAlive = DefaultKeepAlive
	}

	return &Client{
		endpoint:  cfg.Endpoint,
		model:     cfg.Model,
		keepAlive: cfg.KeepAlive,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Name implements backend.Summarizer.
func (c *Client) Name() string {
	return "ollama"
}

type generateRequest struct {
	Model     string         `json:"model"`
	Prompt    string         `json:"prompt"`
	Stream    bool           `json:"stream"`
	KeepAlive string         `json:"keep_alive,omitempty"`
	Options   map[string]any `json:"options,omitempty"`
}

type generateResponse struct {
	Response        string `json:"response"`
	Done            bool   `json:"done"`
	PromptEvalCount int    `json:"prompt_eval_count"`
	EvalCount       int    `json:"eval_count"`
	Error           string `json:"error,omitempty"`
}

// Summarize implements backend.Summarizer.
func (c *Client) Summarize(ctx context.Context, req backend.Request) (*backend.Response, error) {
	genReq := generateRequest{
		Model:     c.model,
		Prompt:    backend.Prompt(req),
		Stream:    false,
		KeepAlive: c.keepAlive,
	}
	if req.MaxTokens > 0 {
		genReq.Options = map[string]any{"num_predict": req.MaxTokens}
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return nil, backend.NewError(backend.CodeInvalidRequest, err.Error(), c.Name(), false)
	}

	logger.Debug().Str("model", c.model).
		Str("zone", req.Zone).
		Int("chunk", req.ChunkIndex).
		Msg("ollama summarize request")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return nil, backend.NewError(backend.CodeInvalidRequest, err.Error(), c.Name(), false)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, backend.NewError(backend.CodeTimeout, err.Error(), c.Name(), true)
		}
		type timeouter interface{ Timeout() bool }
		var te timeouter
		if errors.As(err, &te) && te.Timeout() {
			return nil, backend.NewError(backend.CodeTimeout, err.Error(), c.Name(), true)
		}
		return nil, backend.NewError(backend.CodeNetworkError, err.Error(), c.Name(), true)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, backend.NewError(backend.CodeNetworkError, fmt.Sprintf("read response: %v", err), c.Name(), true)
	}

	if resp.StatusCode != http.StatusOK {
		msg := string(respBody)
		if len(msg) > 300 {
			msg = msg[:300]
		}
		if resp.StatusCode == http.StatusNotFound {
			return nil, backend.NewError(backend.CodeInvalidRequest,
				fmt.Sprintf("model %q not found: %s", c.model, msg), c.Name(), false)
		}
		if resp.StatusCode >= 500 {
			return nil, backend.NewError(backend.CodeServiceUnavailable, msg, c.Name(), true)
		}
		return nil, backend.NewError(backend.CodeUnknown, fmt.Sprintf("HTTP %d: %s", resp.StatusCode, msg), c.Name(), false)
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return nil, backend.NewError(backend.CodeUnknown, fmt.Sprintf("invalid response: %v", err), c.Name(), false)
	}
	if genResp.Error != "" {
		return nil, backend.NewError(backend.CodeUnknown, genResp.Error, c.Name(), false)
	}

	return &backend.Response{
		Text:         genResp.Response,
		InputTokens:  genResp.PromptEvalCount,
		OutputTokens: genResp.EvalCount,
	}, nil
}
