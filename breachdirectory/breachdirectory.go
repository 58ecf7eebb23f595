// Package breachdirectory checks identifiers against the BreachDirectory
// leaked-credential index.
package breachdirectory

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shadowhorn/shadowhorn/httpfetch"
	"github.com/shadowhorn/shadowhorn/profile"
)

const platform = "breachdirectory"

// DefaultBaseURL is the BreachDirectory API gateway.
const DefaultBaseURL = "https://breachdirectory.p.rapidapi.com"

// Match returns true for emails and bare usernames, the lookup keys the
// index accepts.
func Match(identifier string) bool {
	if strings.Contains(identifier, "@") {
		return true
	}
	return identifier != "" && !strings.Contains(identifier, "/")
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache   httpfetch.Cacher
	logger  *slog.Logger
	baseURL string
	apiKey  string
}

// WithCache sets the HTTP response cache.
func WithCache(cache httpfetch.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithAPIKey sets the gateway API key.
func WithAPIKey(key string) Option {
	return func(c *config) { c.apiKey = key }
}

// WithBaseURL overrides the API endpoint, mostly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// Client queries BreachDirectory.
type Client struct {
	httpClient *http.Client
	cache      httpfetch.Cacher
	logger     *slog.Logger
	baseURL    string
	apiKey     string
}

// New creates a BreachDirectory client. An API key is required.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.apiKey == "" {
		return nil, fmt.Errorf("breachdirectory: API key required")
	}

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cfg.cache,
		logger:     cfg.logger,
		baseURL:    cfg.baseURL,
		apiKey:     cfg.apiKey,
	}, nil
}

type lookupResponse struct {
	Found  int `json:"found"`
	Result []struct {
		Sources  []string `json:"sources"`
		Password string   `json:"password"`
		HasPass  bool     `json:"has_password"`
	} `json:"result"`
}

// Fetch looks the identifier up in the breach index.
func (c *Client) Fetch(ctx context.Context, identifier string) (profile.RawDocument, error) {
	doc := profile.RawDocument{
		Platform:    platform,
		Identifier:  identifier,
		CollectedAt: time.Now().UTC(),
	}

	c.logger.InfoContext(ctx, "checking breach index", "identifier", identifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/?func=auto&term="+url.QueryEscape(identifier), http.NoBody)
	if err != nil {
		return doc, err
	}
	req.Header.Set("User-Agent", httpfetch.UserAgent)
	req.Header.Set("X-RapidAPI-Key", c.apiKey)

	body, err := httpfetch.Fetch(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return doc, fmt.Errorf("breach lookup for %s: %w", identifier, err)
	}

	var lookup lookupResponse
	if err := json.Unmarshal(body, &lookup); err != nil {
		return doc, fmt.Errorf("decode breach lookup: %w", err)
	}

	sources := map[string]struct{}{}
	passwordsExposed := false
	for _, hit := range lookup.Result {
		for _, src := range hit.Sources {
			sources[src] = struct{}{}
		}
		if hit.HasPass || hit.Password != "" {
			passwordsExposed = true
		}
	}
	sourceList := make([]any, 0, len(sources))
	for src := range sources {
		sourceList = append(sourceList, src)
	}

	doc.Data = map[string]any{
		"found":             lookup.Found,
		"sources":           sourceList,
		"passwords_exposed": passwordsExposed,
	}
	return doc, nil
}
