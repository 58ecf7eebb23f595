// Package compromise checks identifiers against infostealer and combolist
// intelligence (HudsonRock Cavalier).
package compromise

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

const platform = "compromise"

// DefaultBaseURL is the Cavalier OSINT endpoint.
const DefaultBaseURL = "https://cavalier.hudsonrock.com/api/json/v2"

// Match returns true for emails and bare usernames.
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
}

// WithCache sets the HTTP response cache.
func WithCache(cache httpfetch.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL overrides the API endpoint, mostly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// Client queries infostealer intelligence.
type Client struct {
	httpClient *http.Client
	cache      httpfetch.Cacher
	logger     *slog.Logger
	baseURL    string
}

// New creates a compromise-check client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cfg.cache,
		logger:     cfg.logger,
		baseURL:    cfg.baseURL,
	}, nil
}

type stealerResponse struct {
	Message  string `json:"message"`
	Stealers []struct {
		StealerFamily   string `json:"stealer_family"`
		DateCompromised string `json:"date_compromised"`
	} `json:"stealers"`
}

// Fetch checks the identifier against stealer logs. Emails use the email
// route; anything else the username route.
func (c *Client) Fetch(ctx context.Context, identifier string) (profile.RawDocument, error) {
	doc := profile.RawDocument{
		Platform:    platform,
		Identifier:  identifier,
		CollectedAt: time.Now().UTC(),
	}

	route := "/osint-tools/search-by-username?username="
	if strings.Contains(identifier, "@") {
		route = "/osint-tools/search-by-email?email="
	}

	c.logger.InfoContext(ctx, "checking stealer intelligence", "identifier", identifier)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+route+url.QueryEscape(identifier), http.NoBody)
	if err != nil {
		return doc, err
	}
	req.Header.Set("User-Agent", httpfetch.UserAgent)

	body, err := httpfetch.Fetch(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return doc, fmt.Errorf("compromise check for %s: %w", identifier, err)
	}

	var stealer stealerResponse
	if err := json.Unmarshal(body, &stealer); err != nil {
		return doc, fmt.Errorf("decode compromise check: %w", err)
	}

	status := "CLEAN"
	score := 0
	sources := []any{}
	for _, hit := range stealer.Stealers {
		if hit.StealerFamily != "" {
			sources = append(sources, hit.StealerFamily)
		}
	}
	switch {
	case len(stealer.Stealers) >= 2:
		status = "COMPROMISED"
		score = len(stealer.Stealers) * 10
	case len(stealer.Stealers) == 1:
		status = "AT RISK"
		score = 10
	}

	doc.Data = map[string]any{
		"status":           status,
		"compromise_score": score,
		"sources":          sources,
		"message":          stealer.Message,
	}
	return doc, nil
}
