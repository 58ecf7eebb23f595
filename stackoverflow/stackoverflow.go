// Package stackoverflow collects StackOverflow user data through the
// StackExchange API.
package stackoverflow

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

const platform = "stackoverflow"

// DefaultBaseURL is the StackExchange API endpoint.
const DefaultBaseURL = "https://api.stackexchange.com/2.3"

// Match returns true if the identifier is a StackOverflow profile URL.
func Match(identifier string) bool {
	return strings.Contains(strings.ToLower(identifier), "stackoverflow.com/users/")
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

// Client collects from the StackExchange API.
type Client struct {
	httpClient *http.Client
	cache      httpfetch.Cacher
	logger     *slog.Logger
	baseURL    string
}

// New creates a StackOverflow client.
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

type usersResponse struct {
	Items []map[string]any `json:"items"`
}

type topTagsResponse struct {
	Items []struct {
		TagName string `json:"tag_name"`
	} `json:"items"`
}

// Fetch searches for the user by name and collects the best match plus its
// top tags into one raw document.
func (c *Client) Fetch(ctx context.Context, identifier string) (profile.RawDocument, error) {
	name := extractName(identifier)
	doc := profile.RawDocument{
		Platform:    platform,
		Identifier:  identifier,
		CollectedAt: time.Now().UTC(),
	}

	c.logger.InfoContext(ctx, "fetching stackoverflow data", "name", name)

	var users usersResponse
	query := "/users?inname=" + url.QueryEscape(name) + "&site=stackoverflow&sort=reputation&order=desc&pagesize=5"
	if err := c.get(ctx, query, &users); err != nil {
		return doc, fmt.Errorf("stackoverflow user search %q: %w", name, err)
	}

	if len(users.Items) > 0 {
		if id, ok := users.Items[0]["user_id"].(float64); ok {
			var tags topTagsResponse
			path := fmt.Sprintf("/users/%d/top-tags?site=stackoverflow&pagesize=10", int64(id))
			if err := c.get(ctx, path, &tags); err != nil {
				c.logger.DebugContext(ctx, "stackoverflow top tags unavailable", "user_id", int64(id), "error", err)
			} else {
				tagList := []any{}
				for _, item := range tags.Items {
					tagList = append(tagList, map[string]any{"tag_name": item.TagName})
				}
				users.Items[0]["top_tags"] = tagList
			}
		}
	}

	items := make([]any, 0, len(users.Items))
	for _, item := range users.Items {
		items = append(items, item)
	}
	doc.Data = map[string]any{"users": items}
	return doc, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", httpfetch.UserAgent)

	body, err := httpfetch.Fetch(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

func extractName(identifier string) string {
	lower := strings.ToLower(identifier)
	if idx := strings.Index(lower, "stackoverflow.com/users/"); idx >= 0 {
		rest := identifier[idx+len("stackoverflow.com/users/"):]
		// Profile URLs are /users/<id>/<slug>.
		parts := strings.SplitN(rest, "/", 2)
		if len(parts) == 2 {
			slug := parts[1]
			if end := strings.IndexAny(slug, "/?#"); end >= 0 {
				slug = slug[:end]
			}
			return strings.ReplaceAll(slug, "-", " ")
		}
	}
	return identifier
}
