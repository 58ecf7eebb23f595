package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/shadowhorn/shadowhorn/auth"
	"github.com/shadowhorn/shadowhorn/backend"
	"github.com/shadowhorn/shadowhorn/breachdirectory"
	"github.com/shadowhorn/shadowhorn/cleaner"
	"github.com/shadowhorn/shadowhorn/collect"
	"github.com/shadowhorn/shadowhorn/compromise"
	"github.com/shadowhorn/shadowhorn/deepclean"
	"github.com/shadowhorn/shadowhorn/github"
	"github.com/shadowhorn/shadowhorn/httpfetch"
	"github.com/shadowhorn/shadowhorn/llm"
	"github.com/shadowhorn/shadowhorn/localmodel"
	"github.com/shadowhorn/shadowhorn/reddit"
	"github.com/shadowhorn/shadowhorn/stackoverflow"
	"github.com/shadowhorn/shadowhorn/store"
	"github.com/shadowhorn/shadowhorn/twitter"
)

// defaultModels is the hosted-model fallback chain when none is configured.
var defaultModels = []string{"gpt-4o-mini", "gpt-4o"}

// app holds everything a subcommand needs.
type app struct {
	store  *store.Store
	engine *backend.Engine
	cache  *httpfetch.Cache
	logger *slog.Logger
	models []string
	apiKey string
}

func newApp(ctx context.Context) (*app, error) {
	logger := slog.Default()

	st, err := store.Open(dbPath(), store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	cache := httpfetch.NewNull()
	if !viper.GetBool("no_cache") {
		ttl := viper.GetDuration("cache_ttl")
		if ttl == 0 {
			ttl = 24 * time.Hour
		}
		if c, err := httpfetch.New(ttl); err == nil {
			cache = c
		} else {
			logger.Warn("cache unavailable, fetching uncached", "error", err)
		}
	}

	a := &app{store: st, cache: cache, logger: logger}
	a.apiKey = a.secret(ctx, "openai_api_key", "OPENAI_API_KEY")
	a.models = viper.GetStringSlice("models")
	if len(a.models) == 0 {
		a.models = defaultModels
	}

	engineOpts := []backend.Option{
		backend.WithLogger(logger),
		backend.WithDefaultBackend(viper.GetString("default_backend")),
	}
	if a.apiKey != "" {
		client := llm.New(a.apiKey,
			llm.WithLogger(logger),
			llm.WithBaseURL(viper.GetString("openai_base_url")))
		engineOpts = append(engineOpts, backend.WithRemote(client, a.models))
	}

	localModel := viper.GetString("ollama_model")
	if localModel == "" {
		localModel = localmodel.DefaultModel
	}
	local := localmodel.New(
		localmodel.WithLogger(logger),
		localmodel.WithBaseURL(viper.GetString("ollama_url")))
	engineOpts = append(engineOpts, backend.WithLocal(local, localModel))

	a.engine = backend.New(engineOpts...)
	return a, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

// secret resolves a credential: config/env first, then the settings store.
func (a *app) secret(ctx context.Context, key, envVar string) string {
	if v := viper.GetString(key); v != "" {
		return v
	}
	if v := os.Getenv(envVar); v != "" {
		return v
	}
	if v, err := a.store.Setting(ctx, key); err == nil {
		return v
	}
	return ""
}

// collector builds the fan-out runner with every platform that has enough
// configuration to run.
func (a *app) collector(ctx context.Context) (*collect.Runner, error) {
	runner := collect.NewRunner(
		collect.WithLogger(a.logger),
		collect.WithSaver(a.store))

	gh, err := github.New(ctx,
		github.WithCache(a.cache),
		github.WithLogger(a.logger),
		github.WithToken(a.secret(ctx, "github_token", "GITHUB_TOKEN")))
	if err != nil {
		return nil, err
	}
	runner.Register("github", gh)

	redditOpts := []reddit.Option{
		reddit.WithCache(a.cache),
		reddit.WithLogger(a.logger),
	}
	if cookies, err := auth.ChainSources(ctx, "reddit",
		auth.EnvSource{}, auth.NewBrowserSource(a.logger)); err == nil && len(cookies) > 0 {
		if jar, err := auth.NewCookieJar(auth.Domain("reddit"), cookies); err == nil {
			a.logger.Debug("using reddit session cookies", "count", len(cookies))
			redditOpts = append(redditOpts, reddit.WithCookieJar(jar))
		}
	}
	rd, err := reddit.New(ctx, redditOpts...)
	if err != nil {
		return nil, err
	}
	runner.Register("reddit", rd)

	so, err := stackoverflow.New(ctx,
		stackoverflow.WithCache(a.cache),
		stackoverflow.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	runner.Register("stackoverflow", so)

	token := a.secret(ctx, "twitter_bearer_token", "TWITTER_BEARER_TOKEN")
	switch {
	case token != "":
		tw, err := twitter.New(ctx,
			twitter.WithCache(a.cache),
			twitter.WithLogger(a.logger),
			twitter.WithBearerToken(token))
		if err != nil {
			return nil, err
		}
		runner.Register("twitter", tw)
	case twitter.AuthRequired():
		a.logger.Debug("twitter collector disabled: no bearer token")
	}

	if key := a.secret(ctx, "rapidapi_key", "RAPIDAPI_KEY"); key != "" {
		bd, err := breachdirectory.New(ctx,
			breachdirectory.WithCache(a.cache),
			breachdirectory.WithLogger(a.logger),
			breachdirectory.WithAPIKey(key))
		if err != nil {
			return nil, err
		}
		runner.Register("breachdirectory", bd)
	} else {
		a.logger.Debug("breachdirectory collector disabled: no RapidAPI key")
	}

	cp, err := compromise.New(ctx,
		compromise.WithCache(a.cache),
		compromise.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}
	runner.Register("compromise", cp)

	return runner, nil
}

// deepCleaner builds a deep-clean runner. Requires a hosted-model API key.
func (a *app) deepCleaner() (*deepclean.Runner, error) {
	if a.apiKey == "" {
		return nil, fmt.Errorf("deep clean needs a hosted model; set SHADOWHORN_OPENAI_API_KEY or store the openai_api_key setting")
	}
	client := llm.New(a.apiKey,
		llm.WithLogger(a.logger),
		llm.WithBaseURL(viper.GetString("openai_base_url")))
	cl := cleaner.New(client, a.models, cleaner.WithLogger(a.logger))
	return deepclean.New(a.store, cl, deepclean.WithLogger(a.logger)), nil
}

func dbPath() string {
	if path := viper.GetString("db"); path != "" {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "shadowhorn.db"
	}
	dir := filepath.Join(home, ".local", "share", "shadowhorn")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return "shadowhorn.db"
	}
	return filepath.Join(dir, "shadowhorn.db")
}
