// Package backend selects and runs a correlation backend: the rule-based
// engine, a hosted model, or a locally hosted model. Model output always
// passes through schema coercion, so every backend produces the same shape.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shadowhorn/shadowhorn/correlate"
	"github.com/shadowhorn/shadowhorn/llm"
	"github.com/shadowhorn/shadowhorn/localmodel"
	"github.com/shadowhorn/shadowhorn/profile"
)

// Backend names as they appear in configuration and stored results.
const (
	NameRuleBased = "rule_based"
	NameOpenAI    = "openai"
	NameLocal     = "local"
	NameAuto      = "auto"
)

// Correlation modes.
const (
	ModeFast = "fast" // rule-based, no model
	ModeDeep = "deep" // model over raw collector documents
	ModeSelf = "self" // caller-supplied analysis prompt
)

// ParseError reports model output that no parser could turn into a JSON
// object. Raw carries a snippet for diagnostics.
type ParseError struct {
	Model string
	Raw   string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("model %s returned unparseable output: %v", e.Model, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Option configures an Engine.
type Option func(*Engine)

// WithRemote wires a hosted model client and its ordered fallback models.
func WithRemote(caller llm.Caller, models []string) Option {
	return func(e *Engine) {
		e.remote = caller
		e.models = models
	}
}

// WithLocal wires a local inference client and the model it should run.
func WithLocal(client *localmodel.Client, model string) Option {
	return func(e *Engine) {
		e.local = client
		e.localModel = model
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDefaultBackend sets the configured default used when no explicit
// preference is given.
func WithDefaultBackend(name string) Option {
	return func(e *Engine) {
		if name != "" {
			e.configured = name
		}
	}
}

// Engine holds the available backends and runs correlation through them.
type Engine struct {
	remote     llm.Caller
	local      *localmodel.Client
	models     []string
	localModel string
	configured string
	logger     *slog.Logger
}

// New returns an Engine. With no options only the rule-based backend exists.
func New(opts ...Option) *Engine {
	e := &Engine{
		configured: NameAuto,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Choose resolves which model backend to use. Priority: the caller's explicit
// preference, then the configured default when it is not "auto", then
// auto-detection (local first since it is free, hosted second). Returns
// profile.ErrNoBackend when nothing is usable.
func (e *Engine) Choose(ctx context.Context, preferred string) (string, error) {
	if preferred != "" && preferred != NameAuto {
		if err := e.usable(ctx, preferred); err != nil {
			return "", err
		}
		return preferred, nil
	}
	if e.configured != "" && e.configured != NameAuto {
		if err := e.usable(ctx, e.configured); err != nil {
			return "", err
		}
		return e.configured, nil
	}

	if e.local != nil && e.local.Available(ctx) {
		return NameLocal, nil
	}
	if e.remote != nil {
		return NameOpenAI, nil
	}
	return "", profile.ErrNoBackend
}

func (e *Engine) usable(ctx context.Context, name string) error {
	switch name {
	case NameOpenAI:
		if e.remote == nil {
			return fmt.Errorf("%w: openai backend has no API key", profile.ErrNoBackend)
		}
	case NameLocal:
		if e.local == nil || !e.local.Available(ctx) {
			return fmt.Errorf("%w: local model server is not reachable", profile.ErrNoBackend)
		}
	case NameRuleBased:
		// Always usable.
	default:
		return fmt.Errorf("%w: unknown backend %q", profile.ErrInvalidInput, name)
	}
	return nil
}

// Correlate runs one correlation over raw documents. Fast mode never touches
// a model. Deep and self modes resolve a backend, call the model, and coerce
// its output into the canonical schema.
func (e *Engine) Correlate(ctx context.Context, docs []profile.RawDocument, identifier, mode, preferred, prompt string) (*profile.Profile, error) {
	switch mode {
	case "", ModeFast:
		return correlate.Correlate(docs, identifier), nil
	case ModeDeep, ModeSelf:
	default:
		return nil, fmt.Errorf("%w: unknown mode %q", profile.ErrInvalidInput, mode)
	}

	if mode == ModeSelf {
		if err := validateSelfPrompt(prompt); err != nil {
			return nil, err
		}
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%w for %s", profile.ErrNoData, identifier)
	}

	name, err := e.Choose(ctx, preferred)
	if err != nil {
		return nil, err
	}

	e.logger.InfoContext(ctx, "running model correlation",
		"identifier", identifier, "mode", mode, "backend", name, "documents", len(docs))

	switch name {
	case NameLocal:
		return e.runLocal(ctx, docs, identifier, prompt), nil
	case NameOpenAI:
		messages, err := buildMessages(docs, identifier, mode, prompt)
		if err != nil {
			return nil, err
		}
		return e.runRemote(ctx, messages)
	case NameRuleBased:
		return correlate.Correlate(docs, identifier), nil
	default:
		return nil, profile.ErrNoBackend
	}
}

func (e *Engine) runRemote(ctx context.Context, messages []llm.Message) (*profile.Profile, error) {
	res, err := llm.Fallback(ctx, e.remote, e.models, messages, e.logger)
	if err != nil {
		return nil, err
	}

	obj, err := llm.ParseObject(res.Text)
	if err != nil {
		return nil, &ParseError{Model: res.Model, Raw: snippet(res.Text), Err: err}
	}

	p := profile.Coerce(obj)
	p.BackendUsed = NameOpenAI
	p.ModelUsed = res.Model
	p.FallbackFrom = res.FallbackFrom
	return p, nil
}

// runLocal correlates rule-based and asks the local model only for the
// narrative llm_analysis field. Narrative failures are swallowed: structured
// correlation never depends on a local model call succeeding.
func (e *Engine) runLocal(ctx context.Context, docs []profile.RawDocument, identifier, prompt string) *profile.Profile {
	p := correlate.Correlate(docs, identifier)
	p.BackendUsed = NameLocal
	p.ModelUsed = e.localModel

	messages := narrativeMessages(p, prompt)
	text, err := e.local.Chat(ctx, e.localModel, messages)
	if err != nil {
		e.logger.WarnContext(ctx, "narrative generation failed, keeping rule-based result",
			"model", e.localModel, "error", err)
		return p
	}
	p.LLMAnalysis = strings.TrimSpace(text)
	return p
}

// Narrate runs a free-text generation for report briefs. The local model is
// preferred when reachable since narrative quality needs are modest; hosted
// models are the fallback.
func (e *Engine) Narrate(ctx context.Context, system, user string) (string, error) {
	messages := []llm.Message{
		{Role: "system", Content: system},
		{Role: "user", Content: user},
	}
	if e.local != nil && e.local.Available(ctx) {
		e.logger.DebugContext(ctx, "narrating with local model", "model", e.localModel)
		return e.local.Chat(ctx, e.localModel, messages)
	}
	if e.remote != nil {
		res, err := llm.Fallback(ctx, e.remote, e.models, messages, e.logger)
		if err != nil {
			return "", err
		}
		return res.Text, nil
	}
	return "", profile.ErrNoBackend
}

// selfPromptKeywords gate self mode: the prompt has to be about the OSINT
// analysis at hand, not a general chat request.
var selfPromptKeywords = []string{
	"osint", "profile", "analyz", "analys", "correlat", "investig",
	"recon", "intel", "social", "username", "email", "breach",
	"footprint", "identity", "risk",
}

func validateSelfPrompt(prompt string) error {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return fmt.Errorf("%w: self mode requires a prompt", profile.ErrInvalidInput)
	}
	lower := strings.ToLower(trimmed)
	for _, kw := range selfPromptKeywords {
		if strings.Contains(lower, kw) {
			return nil
		}
	}
	return fmt.Errorf("%w: self-mode prompt must relate to OSINT analysis", profile.ErrInvalidInput)
}

func snippet(text string) string {
	const limit = 500
	if len(text) > limit {
		return text[:limit]
	}
	return text
}

func marshalDocs(docs []profile.RawDocument) (string, error) {
	grouped := map[string]any{}
	for _, doc := range docs {
		grouped[doc.Platform] = doc.Data
	}
	data, err := json.MarshalIndent(grouped, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode collected data: %w", err)
	}
	return string(data), nil
}
