// Package github collects GitHub account data through the REST API.
package github

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/shadowhorn/shadowhorn/httpfetch"
	"github.com/shadowhorn/shadowhorn/profile"
)

const platform = "github"

// DefaultBaseURL is the public GitHub API endpoint.
const DefaultBaseURL = "https://api.github.com"

var usernameRe = regexp.MustCompile(`^[a-zA-Z0-9](?:[a-zA-Z0-9-]{0,37}[a-zA-Z0-9])?$`)

// Match returns true if the identifier looks like a GitHub username or
// profile URL.
func Match(identifier string) bool {
	if strings.Contains(strings.ToLower(identifier), "github.com/") {
		return true
	}
	return usernameRe.MatchString(identifier)
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache   httpfetch.Cacher
	logger  *slog.Logger
	baseURL string
	token   string
}

// WithCache sets the HTTP response cache.
func WithCache(cache httpfetch.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithToken sets a personal access token, raising the API rate limit.
func WithToken(token string) Option {
	return func(c *config) { c.token = token }
}

// WithBaseURL overrides the API endpoint, mostly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// Client collects from the GitHub API.
type Client struct {
	httpClient *http.Client
	cache      httpfetch.Cacher
	logger     *slog.Logger
	baseURL    string
	token      string
}

// New creates a GitHub client.
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
		token:      cfg.token,
	}, nil
}

type apiUser struct {
	Login     string `json:"login"`
	Name      string `json:"name"`
	Bio       string `json:"bio"`
	Email     string `json:"email"`
	Location  string `json:"location"`
	Blog      string `json:"blog"`
	HTMLURL   string `json:"html_url"`
	CreatedAt string `json:"created_at"`
}

type apiRepo struct {
	Name            string `json:"name"`
	HTMLURL         string `json:"html_url"`
	Description     string `json:"description"`
	Language        string `json:"language"`
	StargazersCount int    `json:"stargazers_count"`
	ForksCount      int    `json:"forks_count"`
	UpdatedAt       string `json:"updated_at"`
}

type apiUserRef struct {
	Login   string `json:"login"`
	HTMLURL string `json:"html_url"`
}

// Fetch collects the user, their repositories, and follower samples into one
// raw document. Missing repos or followers degrade to partial data rather
// than failing the whole platform.
func (c *Client) Fetch(ctx context.Context, identifier string) (profile.RawDocument, error) {
	username := extractUsername(identifier)
	doc := profile.RawDocument{
		Platform:    platform,
		Identifier:  identifier,
		CollectedAt: time.Now().UTC(),
	}

	c.logger.InfoContext(ctx, "fetching github data", "username", username)

	var user apiUser
	if err := c.get(ctx, "/users/"+username, &user); err != nil {
		return doc, fmt.Errorf("github user %s: %w", username, err)
	}

	var repos []apiRepo
	if err := c.get(ctx, "/users/"+username+"/repos?sort=updated&per_page=30", &repos); err != nil {
		c.logger.WarnContext(ctx, "github repos unavailable", "username", username, "error", err)
	}

	var followers, following []apiUserRef
	if err := c.get(ctx, "/users/"+username+"/followers?per_page=10", &followers); err != nil {
		c.logger.DebugContext(ctx, "github followers unavailable", "username", username, "error", err)
	}
	if err := c.get(ctx, "/users/"+username+"/following?per_page=10", &following); err != nil {
		c.logger.DebugContext(ctx, "github following unavailable", "username", username, "error", err)
	}

	doc.Data = map[string]any{
		"data": map[string]any{
			"user":             toMap(user),
			"repos":            toList(repos),
			"followers_sample": toList(followers),
			"following_sample": toList(following),
		},
	}
	return doc, nil
}

func (c *Client) get(ctx context.Context, path string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", httpfetch.UserAgent)
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	body, err := httpfetch.Fetch(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

func extractUsername(identifier string) string {
	lower := strings.ToLower(identifier)
	if idx := strings.Index(lower, "github.com/"); idx >= 0 {
		rest := identifier[idx+len("github.com/"):]
		if end := strings.IndexAny(rest, "/?#"); end >= 0 {
			rest = rest[:end]
		}
		return rest
	}
	return identifier
}

func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{}
	}
	var m map[string]any
	if json.Unmarshal(data, &m) != nil {
		return map[string]any{}
	}
	return m
}

func toList[T any](items []T) []any {
	out := make([]any, 0, len(items))
	for _, item := range items {
		out = append(out, toMap(item))
	}
	return out
}
