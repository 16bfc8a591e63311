// Package llm is the generation collaborator boundary: a single chat-style
// completion call against an OpenAI-compatible endpoint. Callers treat every
// failure as non-fatal and substitute their own fallbacks.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/FranksOps/satchel/internal/metrics"
	"github.com/FranksOps/satchel/pkg/httpclient"
	"github.com/FranksOps/satchel/pkg/ratelimit"
)

// Message is one role-tagged entry of a chat request.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Request describes a single completion call.
type Request struct {
	Model       string
	Messages    []Message
	Temperature float64
	// MaxTokens bounds the response; 0 means no bound.
	MaxTokens int
	// Purpose labels the call in metrics ("summary", "solution", "reflection").
	Purpose string
}

// Client is the minimal generation collaborator surface the pipeline needs.
type Client interface {
	Chat(ctx context.Context, req Request) (string, error)
}

// ErrEmptyCompletion marks a call that succeeded at the transport level but
// produced no usable text. Callers treat it like any other generation failure.
var ErrEmptyCompletion = errors.New("empty completion")

// Config sets up an HTTPClient.
type Config struct {
	// BaseURL of the OpenAI-compatible API, e.g. "https://api.example.com/v1".
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// RequestsPerSecond paces calls; 0 disables pacing.
	RequestsPerSecond float64
	HTTP              *httpclient.Client
}

// HTTPClient calls a chat-completions endpoint over HTTP.
type HTTPClient struct {
	cfg     Config
	http    *httpclient.Client
	limiter *ratelimit.Limiter
	logger  *slog.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient builds the collaborator client.
func NewHTTPClient(cfg Config, logger *slog.Logger) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("llm: base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.HTTP == nil {
		c, err := httpclient.New(httpclient.Config{Timeout: cfg.Timeout})
		if err != nil {
			return nil, fmt.Errorf("failed to create client: %w", err)
		}
		cfg.HTTP = c
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{
		cfg:     cfg,
		http:    cfg.HTTP,
		limiter: ratelimit.NewLimiter(cfg.RequestsPerSecond, 0),
		logger:  logger,
	}, nil
}

// Close releases limiter resources.
func (c *HTTPClient) Close() {
	c.limiter.Stop()
}

type chatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Chat issues one completion call and returns the generated text.
func (c *HTTPClient) Chat(ctx context.Context, req Request) (string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter cancelled: %w", err)
	}

	start := time.Now()
	defer func() {
		metrics.RecordGeneration(req.Purpose, time.Since(start))
	}()

	payload, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.http.Do(ctx, httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("completion call rejected", "model", req.Model, "status", resp.StatusCode)
		return "", fmt.Errorf("completion endpoint returned HTTP %d: %s", resp.StatusCode, snippet(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("completion endpoint error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", ErrEmptyCompletion
	}

	content := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyCompletion
	}
	return content, nil
}

func snippet(body []byte) string {
	const max = 200
	s := strings.TrimSpace(string(body))
	if len(s) > max {
		return s[:max]
	}
	return s
}
