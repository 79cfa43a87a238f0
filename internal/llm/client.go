// Package llm provides the gateway to the upstream language model.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"
)

// ErrTimeout is returned when an upstream call exceeds its deadline. All other
// call failures are transport errors.
var ErrTimeout = errors.New("llm call timed out")

// Client calls an OpenRouter-compatible chat completions API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	model      string

	temperature float64
	timeout     time.Duration
	referer     string
	title       string
}

// Config holds gateway configuration.
type Config struct {
	APIKey      string
	Model       string // e.g., "openai/gpt-4o-mini-search-preview"
	BaseURL     string // Default: https://openrouter.ai/api/v1
	Temperature float64
	Timeout     time.Duration // hard per-call deadline, default 120s
	Referer     string
	Title       string
}

// NewClient creates a new gateway client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai/api/v1"
	}

	if cfg.Model == "" {
		cfg.Model = "openai/gpt-4o-mini-search-preview"
	}

	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.1
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 120 * time.Second
	}

	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		timeout:     timeout,
		referer:     cfg.Referer,
		title:       cfg.Title,
	}, nil
}

// RawResult carries the verbatim model output. No parsing happens here; the
// repair engine owns making sense of the text.
type RawResult struct {
	Text       string
	Model      string
	TokensUsed int
	Duration   time.Duration
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *chatError `json:"error,omitempty"`
}

type chatError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

// Complete sends one system+user exchange and returns the raw model output.
// The call is bounded by the configured deadline; a single attempt, no
// retries. Deadline hits surface as ErrTimeout, everything else as a
// transport error.
func (c *Client) Complete(ctx context.Context, system, user string, maxTokens int) (RawResult, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		MaxTokens:   maxTokens,
		Temperature: c.temperature,
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return RawResult{}, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(jsonBody))
	if err != nil {
		return RawResult{}, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if c.referer != "" {
		req.Header.Set("HTTP-Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return RawResult{}, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		}
		return RawResult{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return RawResult{}, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		}
		return RawResult{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var errResp chatResponse
		if err := json.Unmarshal(body, &errResp); err == nil && errResp.Error != nil {
			return RawResult{}, fmt.Errorf("API error: %s (type: %s)", errResp.Error.Message, errResp.Error.Type)
		}
		return RawResult{}, fmt.Errorf("API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(body, &chatResp); err != nil {
		return RawResult{}, fmt.Errorf("unmarshal response: %w", err)
	}

	if len(chatResp.Choices) == 0 {
		return RawResult{}, fmt.Errorf("API returned no choices")
	}

	model := chatResp.Model
	if model == "" {
		model = c.model
	}

	return RawResult{
		Text:       chatResp.Choices[0].Message.Content,
		Model:      model,
		TokensUsed: chatResp.Usage.TotalTokens,
		Duration:   time.Since(start),
	}, nil
}

// Model returns the model being used.
func (c *Client) Model() string {
	return c.model
}

// MockClient provides a scripted gateway for testing. Responses are consumed
// in call order; an exhausted script returns the last entry.
type MockClient struct {
	Responses []string
	Errs      []error
	Delay     time.Duration

	mu    sync.Mutex
	calls int
}

// NewMockClient creates a mock gateway that replays the given responses.
func NewMockClient(responses ...string) *MockClient {
	return &MockClient{Responses: responses}
}

// Complete returns the next scripted response.
func (c *MockClient) Complete(ctx context.Context, system, user string, maxTokens int) (RawResult, error) {
	c.mu.Lock()
	i := c.calls
	c.calls++
	c.mu.Unlock()

	if c.Delay > 0 {
		select {
		case <-time.After(c.Delay):
		case <-ctx.Done():
			return RawResult{}, fmt.Errorf("%w: %v", ErrTimeout, ctx.Err())
		}
	}

	if len(c.Errs) > 0 {
		idx := i
		if idx >= len(c.Errs) {
			idx = len(c.Errs) - 1
		}
		if err := c.Errs[idx]; err != nil {
			return RawResult{}, err
		}
	}

	if len(c.Responses) == 0 {
		return RawResult{}, fmt.Errorf("mock has no responses")
	}
	idx := i
	if idx >= len(c.Responses) {
		idx = len(c.Responses) - 1
	}

	return RawResult{Text: c.Responses[idx], Model: "mock-model"}, nil
}

// Model returns the mock model name.
func (c *MockClient) Model() string {
	return "mock-model"
}

// Calls returns how many completions the mock has served.
func (c *MockClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// Gateway defines the interface for model completion calls.
type Gateway interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (RawResult, error)
	Model() string
}

// Ensure implementations satisfy interface.
var (
	_ Gateway = (*Client)(nil)
	_ Gateway = (*MockClient)(nil)
)
