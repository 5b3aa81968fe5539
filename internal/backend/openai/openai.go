// Package openai implements the Summarizer interface against an
// OpenAI-compatible chat completions API.
package openai

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
	DefaultEndpoint = "https://api.openai.com/v1"
	DefaultModel    = "gpt-4o-mini"
	DefaultTimeout  = 30 * time.Second
)

// Config holds settings for the OpenAI-compatible backend.
type Config struct {
	APIKey   string        `json:"api_key" mapstructure:"api_key"`
	Endpoint string        `json:"endpoint" mapstructure:"endpoint"`
	Model    string        `json:"model" mapstructure:"model"`
	Timeout  time.Duration `json:"timeout" mapstructure:"timeout"`
}

// Client is a summarization backend speaking the chat completions protocol.
type Client struct {
	apiKey     string
	endpoint   string
	model      string
	httpClient *http.Client
}

// New creates the backend. A missing API key is a configuration error.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("openai: api_key is required")
	}
	if cfg.Endpoint == "" {
		cfg.Endpoint = DefaultEndpoint
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Client{
		apiKey:   cfg.APIKey,
		endpoint: cfg.Endpoint,
		model:    cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}, nil
}

// Name implements backend.Summarizer.
func (c *Client) Name() string {
	return "openai"
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Summarize implements backend.Summarizer.
func (c *Client) Summarize(ctx context.Context, req backend.Request) (*backend.Response, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "user", Content: backend.Prompt(req)},
		},
		MaxTokens: req.MaxTokens,
	})
	if err != nil {
		return nil, backend.NewError(backend.CodeInvalidRequest, err.Error(), c.Name(), false)
	}

	logger.Debug().Str("model", c.model).
		Str("zone", req.Zone).
		Int("chunk", req.ChunkIndex).
		Msg("openai summarize request")

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, backend.NewError(backend.CodeInvalidRequest, err.Error(), c.Name(), false)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, c.classifyTransportError(err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, backend.NewError(backend.CodeNetworkError, fmt.Sprintf("read response: %v", err), c.Name(), true)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, c.classifyStatus(resp.StatusCode, respBody)
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, backend.NewError(backend.CodeUnknown, fmt.Sprintf("invalid response: %v", err), c.Name(), false)
	}
	if chatResp.Error != nil {
		return nil, backend.NewError(backend.CodeUnknown,
			fmt.Sprintf("[%s] %s", chatResp.Error.Type, chatResp.Error.Message), c.Name(), false)
	}
	if len(chatResp.Choices) == 0 {
		return nil, backend.NewError(backend.CodeDegradedOutput, "response has no choices", c.Name(), false)
	}

	choice := chatResp.Choices[0]
	return &backend.Response{
		Text:         choice.Message.Content,
		InputTokens:  chatResp.Usage.PromptTokens,
		OutputTokens: chatResp.Usage.CompletionTokens,
		Filtered:     choice.FinishReason == "content_filter",
	}, nil
}

func (c *Client) classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return backend.NewError(backend.CodeTimeout, err.Error(), c.Name(), true)
	}
	if errors.Is(err, context.Canceled) {
		return backend.NewError(backend.CodeTimeout, "request canceled", c.Name(), false)
	}
	// http.Client.Timeout surfaces as a url.Error with Timeout()=true.
	type timeouter interface{ Timeout() bool }
	var te timeouter
	if errors.As(err, &te) && te.Timeout() {
		return backend.NewError(backend.CodeTimeout, err.Error(), c.Name(), true)
	}
	return backend.NewError(backend.CodeNetworkError, err.Error(), c.Name(), true)
}

func (c *Client) classifyStatus(status int, body []byte) error {
	msg := string(body)
	if len(msg) > 300 {
		msg = msg[:300]
	}

	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return backend.NewError(backend.CodeAuthFailed, msg, c.Name(), false)
	case status == http.StatusTooManyRequests:
		return backend.NewError(backend.CodeRateLimited, msg, c.Name(), true)
	case status >= 500:
		return backend.NewError(backend.CodeServiceUnavailable, msg, c.Name(), true)
	case status == http.StatusBadRequest:
		return backend.NewError(backend.CodeInvalidRequest, msg, c.Name(), false)
	default:
		return backend.NewError(backend.CodeUnknown, fmt.Sprintf("HTTP %d: %s", status, msg), c.Name(), false)
	}
}
