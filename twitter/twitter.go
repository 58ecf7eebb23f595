// Package twitter collects Twitter/X account data through the v2 API.
package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/shadowhorn/shadowhorn/httpfetch"
	"github.com/shadowhorn/shadowhorn/profile"
)

const platform = "twitter"

// DefaultBaseURL is the Twitter API v2 endpoint.
const DefaultBaseURL = "https://api.twitter.com/2"

// Match returns true if the identifier is a Twitter/X profile URL or @handle.
func Match(identifier string) bool {
	lower := strings.ToLower(identifier)
	return strings.Contains(lower, "twitter.com/") ||
		strings.Contains(lower, "x.com/") ||
		strings.HasPrefix(identifier, "@")
}

// AuthRequired returns true: the v2 API needs a bearer token.
func AuthRequired() bool { return true }

// Option configures a Client.
type Option func(*config)

type config struct {
	cache   httpfetch.Cacher
	logger  *slog.Logger
	baseURL string
	bearer  string
}

// WithCache sets the HTTP response cache.
func WithCache(cache httpfetch.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBearerToken sets the API bearer token.
func WithBearerToken(token string) Option {
	return func(c *config) { c.bearer = token }
}

// WithBaseURL overrides the API endpoint, mostly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// Client collects from the Twitter API.
type Client struct {
	httpClient *http.Client
	cache      httpfetch.Cacher
	logger     *slog.Logger
	baseURL    string
	bearer     string
}

// New creates a Twitter client. A bearer token is required.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.bearer == "" {
		return nil, fmt.Errorf("twitter: bearer token required")
	}

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		cache:      cfg.cache,
		logger:     cfg.logger,
		baseURL:    cfg.baseURL,
		bearer:     cfg.bearer,
	}, nil
}

type userResponse struct {
	Data struct {
		ID          string `json:"id"`
		Username    string `json:"username"`
		Name        string `json:"name"`
		Description string `json:"description"`
		Location    string `json:"location"`
		URL         string `json:"url"`
		CreatedAt   string `json:"created_at"`
	} `json:"data"`
}

type tweetsResponse struct {
	Data []map[string]any `json:"data"`
}

// Fetch collects the user and their recent tweets into one raw document.
func (c *Client) Fetch(ctx context.Context, identifier string) (profile.RawDocument, error) {
	username := extractUsername(identifier)
	doc := profile.RawDocument{
		Platform:    platform,
		Identifier:  identifier,
		CollectedAt: time.Now().UTC(),
	}

	c.logger.InfoContext(ctx, "fetching twitter data", "username", username)

	var user userResponse
	path := "/users/by/username/" + username + "?user.fields=description,location,created_at,url"
	if err := c.get(ctx, path, &user); err != nil {
		return doc, fmt.Errorf("twitter user %s: %w", username, err)
	}
	if user.Data.ID == "" {
		return doc, fmt.Errorf("twitter user %s: %w", username, profile.ErrNotFound)
	}

	var tweets tweetsResponse
	tweetPath := "/users/" + user.Data.ID + "/tweets?max_results=25&tweet.fields=created_at,public_metrics"
	if err := c.get(ctx, tweetPath, &tweets); err != nil {
		c.logger.WarnContext(ctx, "twitter timeline unavailable", "username", username, "error", err)
	}

	tweetList := make([]any, 0, len(tweets.Data))
	for _, tweet := range tweets.Data {
		tweetList = append(tweetList, tweet)
	}

	doc.Data = map[string]any{
		"user": map[string]any{
			"username":    user.Data.Username,
			"name":        user.Data.Name,
			"description": user.Data.Description,
			"location":    user.Data.Location,
			"url":         user.Data.URL,
			"created_at":  user.Data.CreatedAt,
		},
		"tweets": map[string]any{"data": tweetList},
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", httpfetch.UserAgent)
	req.Header.Set("Authorization", "Bearer "+c.bearer)

	body, err := httpfetch.Fetch(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

func extractUsername(identifier string) string {
	if strings.HasPrefix(identifier, "@") {
		return strings.TrimPrefix(identifier, "@")
	}
	lower := strings.ToLower(identifier)
	for _, marker := range []string{"twitter.com/", "x.com/"} {
		if idx := strings.Index(lower, marker); idx >= 0 {
			rest := identifier[idx+len(marker):]
			if end := strings.IndexAny(rest, "/?#"); end >= 0 {
				rest = rest[:end]
			}
			return rest
		}
	}
	return identifier
}
