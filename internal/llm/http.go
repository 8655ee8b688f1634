package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/starford/secondbrain/internal/prompt"
)

// Options configures an HTTPClient.
type Options struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	MaxRetries  int
	Backoff     time.Duration // fixed delay between attempts
}

// HTTPClient implements Client against an OpenAI-compatible
// /chat/completions endpoint (LM Studio, Ollama, OpenAI proper).
type HTTPClient struct {
	opts   Options
	http   *http.Client
	logger *slog.Logger
}

// NewHTTPClient creates a client. A zero Timeout disables the per-call bound.
func NewHTTPClient(opts Options, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		opts:   opts,
		http:   &http.Client{Timeout: opts.Timeout},
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type chatError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Complete sends the request, retrying retryable failures a bounded number
// of times with a fixed backoff.
func (c *HTTPClient) Complete(ctx context.Context, req prompt.Request) (string, error) {
	var lastErr error
	for attempt := 0; attempt <= c.opts.MaxRetries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("llm: retrying",
				slog.Int("attempt", attempt),
				slog.String("error", lastErr.Error()))
			select {
			case <-time.After(c.opts.Backoff):
			case <-ctx.Done():
				return "", &TransportError{Err: ctx.Err()}
			}
		}

		text, err := c.do(ctx, req)
		if err == nil {
			return text, nil
		}
		lastErr = err
		if !Retryable(err) {
			return "", err
		}
	}
	return "", fmt.Errorf("llm: retries exhausted: %w", lastErr)
}

func (c *HTTPClient) do(ctx context.Context, req prompt.Request) (string, error) {
	payload := chatRequest{
		Model: c.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: req.System},
			{Role: "user", Content: req.User},
		},
		Temperature: c.opts.Temperature,
		MaxTokens:   c.opts.MaxTokens,
		Stream:      false,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("llm: marshal request: %w", err)
	}

	url := strings.TrimRight(c.opts.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.opts.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return "", &TransportError{Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &TransportError{Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		detail := strings.TrimSpace(string(raw))
		var apiErr chatError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			detail = apiErr.Error.Message
		}
		return "", &ModelError{Status: resp.StatusCode, Detail: detail}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &ModelError{Detail: fmt.Sprintf("malformed response body: %v", err)}
	}
	if len(parsed.Choices) == 0 {
		return "", &ModelError{Detail: "response contained no choices"}
	}
	return parsed.Choices[0].Message.Content, nil
}
