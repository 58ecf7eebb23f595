// Package shadowhorn provides a unified API for OSINT collection and
// correlation.
//
// Basic usage:
//
//	result, err := shadowhorn.Collect(ctx, "alice")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	p := shadowhorn.Correlate(result.Documents, "alice")
//	fmt.Println(p.Name, p.Summary)
//
// For platforms requiring credentials (Twitter, BreachDirectory):
//
//	result, err := shadowhorn.Collect(ctx, "alice",
//	    shadowhorn.WithTwitterBearerToken(token),
//	    shadowhorn.WithBreachDirectoryKey(key))
//
// Or use the platform packages directly:
//
//	import "github.com/shadowhorn/shadowhorn/github"
//	client, _ := github.New(ctx)
//	doc, _ := client.Fetch(ctx, "alice")
package shadowhorn

import (
	"context"
	"log/slog"

	"github.com/shadowhorn/shadowhorn/auth"
	"github.com/shadowhorn/shadowhorn/breachdirectory"
	"github.com/shadowhorn/shadowhorn/collect"
	"github.com/shadowhorn/shadowhorn/compromise"
	"github.com/shadowhorn/shadowhorn/correlate"
	"github.com/shadowhorn/shadowhorn/github"
	"github.com/shadowhorn/shadowhorn/httpfetch"
	"github.com/shadowhorn/shadowhorn/profile"
	"github.com/shadowhorn/shadowhorn/reddit"
	"github.com/shadowhorn/shadowhorn/stackoverflow"
	"github.com/shadowhorn/shadowhorn/twitter"
)

type (
	// Profile re-exports profile.Profile for convenience.
	Profile = profile.Profile
	// RawDocument re-exports profile.RawDocument for convenience.
	RawDocument = profile.RawDocument
	// Result re-exports collect.Result for convenience.
	Result = collect.Result
)

// Re-export common errors.
var (
	ErrNoData       = profile.ErrNoData
	ErrNoBackend    = profile.ErrNoBackend
	ErrNotFound     = profile.ErrNotFound
	ErrInvalidInput = profile.ErrInvalidInput
)

// Option configures a Collect call.
type Option func(*config)

type config struct {
	cache          httpfetch.Cacher
	logger         *slog.Logger
	githubToken    string
	twitterToken   string
	rapidAPIKey    string
	redditCookies  map[string]string
	browserCookies bool
}

// WithHTTPCache sets the HTTP response cache shared by the collectors.
func WithHTTPCache(cache httpfetch.Cacher) Option {
	return func(c *config) { c.cache = cache }
}

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithGitHubToken raises the GitHub API rate limit.
func WithGitHubToken(token string) Option {
	return func(c *config) { c.githubToken = token }
}

// WithTwitterBearerToken enables the Twitter collector.
func WithTwitterBearerToken(token string) Option {
	return func(c *config) { c.twitterToken = token }
}

// WithBreachDirectoryKey enables the BreachDirectory collector.
func WithBreachDirectoryKey(key string) Option {
	return func(c *config) { c.rapidAPIKey = key }
}

// WithRedditCookies sets explicit Reddit session cookies.
func WithRedditCookies(cookies map[string]string) Option {
	return func(c *config) { c.redditCookies = cookies }
}

// WithBrowserCookies enables reading Reddit session cookies from browser
// stores.
func WithBrowserCookies() Option {
	return func(c *config) { c.browserCookies = true }
}

// Collect fans out every collector the options provide credentials for and
// returns the raw documents plus per-platform errors. A platform failure
// never fails the call.
func Collect(ctx context.Context, identifier string, opts ...Option) (Result, error) {
	runner, err := NewCollector(ctx, opts...)
	if err != nil {
		return Result{}, err
	}
	return runner.Run(ctx, identifier), nil
}

// Correlate merges raw documents into the canonical profile using the
// rule-based engine. Never fails; with no documents the profile says so.
func Correlate(docs []RawDocument, identifier string) *Profile {
	return correlate.Correlate(docs, identifier)
}

// NewCollector builds the fan-out runner used by Collect. GitHub, Reddit,
// Stack Overflow, and the stealer-exposure check always register; Twitter
// and BreachDirectory register only when their credentials are provided.
func NewCollector(ctx context.Context, opts ...Option) (*collect.Runner, error) {
	cfg := &config{logger: slog.Default()}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.cache == nil {
		cfg.cache = httpfetch.NewNull()
	}

	runner := collect.NewRunner(collect.WithLogger(cfg.logger))

	gh, err := github.New(ctx,
		github.WithCache(cfg.cache),
		github.WithLogger(cfg.logger),
		github.WithToken(cfg.githubToken))
	if err != nil {
		return nil, err
	}
	runner.Register("github", gh)

	redditOpts := []reddit.Option{
		reddit.WithCache(cfg.cache),
		reddit.WithLogger(cfg.logger),
	}
	if cookies := cfg.resolveRedditCookies(ctx); len(cookies) > 0 {
		if jar, err := auth.NewCookieJar(auth.Domain("reddit"), cookies); err == nil {
			redditOpts = append(redditOpts, reddit.WithCookieJar(jar))
		}
	}
	rd, err := reddit.New(ctx, redditOpts...)
	if err != nil {
		return nil, err
	}
	runner.Register("reddit", rd)

	so, err := stackoverflow.New(ctx,
		stackoverflow.WithCache(cfg.cache),
		stackoverflow.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	runner.Register("stackoverflow", so)

	cp, err := compromise.New(ctx,
		compromise.WithCache(cfg.cache),
		compromise.WithLogger(cfg.logger))
	if err != nil {
		return nil, err
	}
	runner.Register("compromise", cp)

	if cfg.twitterToken != "" {
		tw, err := twitter.New(ctx,
			twitter.WithCache(cfg.cache),
			twitter.WithLogger(cfg.logger),
			twitter.WithBearerToken(cfg.twitterToken))
		if err != nil {
			return nil, err
		}
		runner.Register("twitter", tw)
	}

	if cfg.rapidAPIKey != "" {
		bd, err := breachdirectory.New(ctx,
			breachdirectory.WithCache(cfg.cache),
			breachdirectory.WithLogger(cfg.logger),
			breachdirectory.WithAPIKey(cfg.rapidAPIKey))
		if err != nil {
			return nil, err
		}
		runner.Register("breachdirectory", bd)
	}

	return runner, nil
}

func (c *config) resolveRedditCookies(ctx context.Context) map[string]string {
	sources := []auth.Source{auth.NewStaticSource(c.redditCookies), auth.EnvSource{}}
	if c.browserCookies {
		sources = append(sources, auth.NewBrowserSource(c.logger))
	}
	cookies, err := auth.ChainSources(ctx, "reddit", sources...)
	if err != nil {
		c.logger.DebugContext(ctx, "no reddit session cookies", "error", err)
		return nil
	}
	return cookies
}
