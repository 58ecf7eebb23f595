// Package localmodel talks to a locally hosted inference server speaking the
// Ollama API. It implements the same Caller contract as the hosted client so
// backend selection can swap one for the other.
package localmodel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/shadowhorn/shadowhorn/llm"
)

// DefaultBaseURL is where Ollama listens out of the box.
const DefaultBaseURL = "http://localhost:11434"

// DefaultModel is used when configuration names none.
const DefaultModel = "llama3.2"

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the diagnostic logger.
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

// WithBaseURL points the client at a non-default inference server.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// Client is a local inference client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// New returns a Client with defaults suitable for a local Ollama install.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		// Local models are slow on CPU; give them room.
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available probes the server's tag listing with a short deadline. Used by
// backend auto-detection, so a down server must fail fast.
func (c *Client) Available(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "local model server unreachable", "url", c.baseURL, "error", err)
		return false
	}
	defer resp.Body.Close() //nolint:errcheck // probe only
	io.Copy(io.Discard, resp.Body) //nolint:errcheck // drain for connection reuse
	return resp.StatusCode == http.StatusOK
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []llm.Message `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	Message struct {
		Content string `json:"content"`
	} `json:"message"`
	Error string `json:"error"`
}

// Chat issues one non-streaming chat request. Satisfies llm.Caller.
func (c *Client) Chat(ctx context.Context, model string, messages []llm.Message) (string, error) {
	if model == "" {
		model = DefaultModel
	}
	body, err := json.Marshal(chatRequest{Model: model, Messages: messages})
	if err != nil {
		return "", fmt.Errorf("encode local chat request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build local chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	c.logger.DebugContext(ctx, "sending local chat request", "model", model, "messages", len(messages))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &llm.APIError{Kind: llm.KindTransient, Model: model, Message: err.Error()}
	}
	defer resp.Body.Close() //nolint:errcheck // read-only response body

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", &llm.APIError{Kind: llm.KindTransient, StatusCode: resp.StatusCode, Model: model, Message: err.Error()}
	}

	var parsed chatResponse
	if resp.StatusCode != http.StatusOK {
		apiErr := &llm.APIError{StatusCode: resp.StatusCode, Model: model, Message: http.StatusText(resp.StatusCode)}
		if json.Unmarshal(data, &parsed) == nil && parsed.Error != "" {
			apiErr.Message = parsed.Error
		}
		switch {
		case resp.StatusCode >= 500:
			apiErr.Kind = llm.KindTransient
		case resp.StatusCode >= 400:
			apiErr.Kind = llm.KindInvalid
		}
		return "", apiErr
	}

	if err := json.Unmarshal(data, &parsed); err != nil {
		return "", &llm.APIError{Kind: llm.KindInvalid, StatusCode: resp.StatusCode, Model: model, Message: "malformed local response"}
	}
	return parsed.Message.Content, nil
}
