// Package cleaner runs model-assisted extraction of raw collector documents
// into fixed per-platform schemas. Cleaning never fails the caller: a model
// failure produces an error record that preserves the raw input.
package cleaner

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/shadowhorn/shadowhorn/llm"
	"github.com/shadowhorn/shadowhorn/profile"
)

// maxRawChars caps how much raw JSON goes into a cleaning prompt. Collector
// output for active accounts can run to megabytes; past this point extra
// input only costs tokens.
const maxRawChars = 15000

// Option configures a Cleaner.
type Option func(*Cleaner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Cleaner) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithBackendName labels produced records with the backend that cleaned them.
func WithBackendName(name string) Option {
	return func(c *Cleaner) {
		if name != "" {
			c.backendName = name
		}
	}
}

// Cleaner extracts structured records from raw documents through a model.
type Cleaner struct {
	caller      llm.Caller
	models      []string
	backendName string
	logger      *slog.Logger
}

// New returns a Cleaner that calls the given model chain.
func New(caller llm.Caller, models []string, opts ...Option) *Cleaner {
	c := &Cleaner{
		caller:      caller,
		models:      models,
		backendName: "openai",
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Clean extracts one document. The returned record is always usable: on any
// failure its Data holds an "error" key plus the truncated raw input, which
// correlation knows to skip.
func (c *Cleaner) Clean(ctx context.Context, doc profile.RawDocument) profile.CleanedRecord {
	record := profile.CleanedRecord{
		Platform:   doc.Platform,
		Identifier: doc.Identifier,
		CleanedAt:  time.Now().UTC(),
		Backend:    c.backendName,
	}

	raw, err := json.Marshal(doc.Data)
	if err != nil {
		record.Data = errorData("unencodable raw document", "")
		return record
	}
	truncated := truncateRaw(string(raw))

	messages := buildCleaningMessages(doc.Platform, doc.Identifier, truncated)

	// First model whose output parses wins. Unparseable output advances to
	// the next model, same as a call failure.
	var lastFailure string
	for _, model := range c.models {
		res, err := llm.Fallback(ctx, c.caller, []string{model}, messages, c.logger)
		if err != nil {
			c.logger.WarnContext(ctx, "cleaning model failed",
				"platform", doc.Platform, "identifier", doc.Identifier, "model", model, "error", err)
			lastFailure = err.Error()
			continue
		}

		obj, err := llm.ParseObject(res.Text)
		if err != nil {
			c.logger.WarnContext(ctx, "cleaning output unparseable, advancing",
				"platform", doc.Platform, "model", model, "error", err)
			lastFailure = "unparseable model output: " + err.Error()
			continue
		}

		record.Data = obj
		record.Backend = c.backendName + ":" + model
		return record
	}

	if lastFailure == "" {
		lastFailure = "no cleaning models configured"
	}
	record.Data = errorData(lastFailure, truncated)
	return record
}

func errorData(message, raw string) map[string]any {
	data := map[string]any{"error": message}
	if raw != "" {
		data["raw"] = raw
	}
	return data
}

func truncateRaw(raw string) string {
	if len(raw) <= maxRawChars {
		return raw
	}
	return raw[:maxRawChars]
}
