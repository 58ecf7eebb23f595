// Package reddit collects Reddit account data through the public JSON API.
package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/shadowhorn/shadowhorn/httpfetch"
	"github.com/shadowhorn/shadowhorn/profile"
)

const platform = "reddit"

// DefaultBaseURL is the public Reddit endpoint.
const DefaultBaseURL = "https://www.reddit.com"

// Match returns true if the identifier looks like a Reddit profile URL or
// u/name reference.
func Match(identifier string) bool {
	lower := strings.ToLower(identifier)
	return strings.Contains(lower, "reddit.com/user/") ||
		strings.Contains(lower, "reddit.com/u/") ||
		strings.HasPrefix(lower, "u/")
}

// Option configures a Client.
type Option func(*config)

type config struct {
	cache   httpfetch.Cacher
	logger  *slog.Logger
	baseURL string
	jar     http.CookieJar
}

// WithCache sets the HTTP response cache.
func WithCache(cache httpfetch.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithBaseURL overrides the endpoint, mostly for tests.
func WithBaseURL(baseURL string) Option {
	return func(c *config) {
		if baseURL != "" {
			c.baseURL = baseURL
		}
	}
}

// WithCookieJar attaches session cookies. Authenticated sessions see fewer
// rate-limit rejections on the public JSON endpoints.
func WithCookieJar(jar http.CookieJar) Option {
	return func(c *config) { c.jar = jar }
}

// Client collects from Reddit.
type Client struct {
	httpClient *http.Client
	cache      httpfetch.Cacher
	logger     *slog.Logger
	baseURL    string
}

// New creates a Reddit client.
func New(_ context.Context, opts ...Option) (*Client, error) {
	cfg := &config{logger: slog.Default(), baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second, Jar: cfg.jar},
		cache:      cfg.cache,
		logger:     cfg.logger,
		baseURL:    cfg.baseURL,
	}, nil
}

type aboutResponse struct {
	Data struct {
		Name       string  `json:"name"`
		CreatedUTC float64 `json:"created_utc"`
	} `json:"data"`
}

type listingResponse struct {
	Data struct {
		Children []struct {
			Data struct {
				Title      string  `json:"title"`
				Subreddit  string  `json:"subreddit"`
				Permalink  string  `json:"permalink"`
				CreatedUTC float64 `json:"created_utc"`
				Ups        int     `json:"ups"`
				Downs      int     `json:"downs"`
			} `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Fetch collects account info and recent submissions into one raw document.
func (c *Client) Fetch(ctx context.Context, identifier string) (profile.RawDocument, error) {
	username := extractUsername(identifier)
	doc := profile.RawDocument{
		Platform:    platform,
		Identifier:  identifier,
		CollectedAt: time.Now().UTC(),
	}

	c.logger.InfoContext(ctx, "fetching reddit data", "username", username)

	var about aboutResponse
	if err := c.get(ctx, "/user/"+username+"/about.json", &about); err != nil {
		return doc, fmt.Errorf("reddit user %s: %w", username, err)
	}

	var submitted listingResponse
	if err := c.get(ctx, "/user/"+username+"/submitted.json?limit=25", &submitted); err != nil {
		c.logger.WarnContext(ctx, "reddit submissions unavailable", "username", username, "error", err)
	}

	posts := []any{}
	subredditCounts := map[string]int{}
	for _, child := range submitted.Data.Children {
		post := child.Data
		posts = append(posts, map[string]any{
			"title":     post.Title,
			"url":       c.baseURL + post.Permalink,
			"timestamp": unixToDate(post.CreatedUTC),
			"upvotes":   post.Ups,
			"downvotes": post.Downs,
		})
		if post.Subreddit != "" {
			subredditCounts[post.Subreddit]++
		}
	}

	doc.Data = map[string]any{
		"user_info": map[string]any{
			"username":              about.Data.Name,
			"account_creation_date": unixToDate(about.Data.CreatedUTC),
		},
		"posts": posts,
		"activity_metrics": map[string]any{
			"most_active_subreddits": rankSubreddits(subredditCounts),
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

	body, err := httpfetch.Fetch(ctx, c.cache, c.httpClient, req, c.logger)
	if err != nil {
		return err
	}
	return json.Unmarshal(body, dst)
}

// rankSubreddits returns [name, count] pairs, busiest first.
func rankSubreddits(counts map[string]int) []any {
	names := make([]string, 0, len(counts))
	for name := range counts {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if counts[names[i]] != counts[names[j]] {
			return counts[names[i]] > counts[names[j]]
		}
		return names[i] < names[j]
	})

	pairs := []any{}
	for _, name := range names {
		pairs = append(pairs, []any{name, counts[name]})
	}
	return pairs
}

func unixToDate(ts float64) string {
	if ts <= 0 {
		return ""
	}
	return time.Unix(int64(ts), 0).UTC().Format("2006-01-02")
}

func extractUsername(identifier string) string {
	lower := strings.ToLower(identifier)
	for _, marker := range []string{"reddit.com/user/", "reddit.com/u/"} {
		if idx := strings.Index(lower, marker); idx >= 0 {
			rest := identifier[idx+len(marker):]
			if end := strings.IndexAny(rest, "/?#"); end >= 0 {
				rest = rest[:end]
			}
			return rest
		}
	}
	return strings.TrimPrefix(strings.TrimPrefix(identifier, "u/"), "/u/")
}
