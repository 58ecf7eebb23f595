// Package llm is a minimal chat-completion client for OpenAI-compatible APIs,
// with structured error classification and model-priority fallback.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// DefaultBaseURL is the hosted API endpoint used when none is configured.
const DefaultBaseURL = "https://api.openai.com/v1"

// ErrorKind classifies API failures so callers can decide between retrying,
// advancing to another model, and giving up.
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindTransient
	KindRateLimited
	KindInvalid
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindRateLimited:
		return "rate_limited"
	case KindInvalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// APIError is a failed chat-completion call.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Model      string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("llm api error (%s, status %d, model %s): %s", e.Kind, e.StatusCode, e.Model, e.Message)
}

// classifyStatus maps an HTTP status to an error kind. The mapping is the
// whole policy: no message-substring matching anywhere.
func classifyStatus(code int) ErrorKind {
	switch {
	case code == http.StatusTooManyRequests:
		return KindRateLimited
	case code == http.StatusRequestTimeout, code >= 500:
		return KindTransient
	case code >= 400:
		return KindInvalid
	default:
		return KindUnknown
	}
}

// Message is one chat turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Caller issues one chat completion against one model. Client implements it;
// tests substitute fakes.
type Caller interface {
	Chat(ctx context.Context, model string, messages []Message) (string, error)
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger for request/retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithHTTPClient overrides the HTTP client, mostly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL points the client at a different API host.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// Client talks to an OpenAI-compatible chat-completions endpoint.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// New returns a Client for the given API key.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 90 * time.Second},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
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

// Chat issues one completion request and returns the first choice's content.
func (c *Client) Chat(ctx context.Context, model string, messages []Message) (string, error) {
	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	c.logger.DebugContext(ctx, "sending chat completion", "model", model, "messages", len(messages))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &APIError{Kind: KindTransient, Model: model, Message: err.Error()}
	}
	defer resp.Body.Close() //nolint:errcheck // read-only response body

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &APIError{Kind: KindTransient, StatusCode: resp.StatusCode, Model: model, Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{Kind: classifyStatus(resp.StatusCode), StatusCode: resp.StatusCode, Model: model}
		var parsed chatResponse
		if json.Unmarshal(data, &parsed) == nil && parsed.Error != nil {
			apiErr.Message = parsed.Error.Message
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return "", apiErr
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &APIError{Kind: KindInvalid, StatusCode: resp.StatusCode, Model: model, Message: "malformed completion response"}
	}
	if len(parsed.Choices) == 0 {
		return "", &APIError{Kind: KindInvalid, StatusCode: resp.StatusCode, Model: model, Message: "completion returned no choices"}
	}
	return parsed.Choices[0].Message.Content, nil
}
