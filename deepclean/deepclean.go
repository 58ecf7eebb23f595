// Package deepclean orchestrates the full clean-then-correlate pipeline:
// every stored raw document is put through model-assisted cleaning, the
// cleaned records are correlated, and progress is streamed to the caller as
// it happens.
package deepclean

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shadowhorn/shadowhorn/cleaner"
	"github.com/shadowhorn/shadowhorn/correlate"
	"github.com/shadowhorn/shadowhorn/profile"
	"github.com/shadowhorn/shadowhorn/store"
)

// Progress event types, in the order a run emits them.
const (
	EventInit        = "init"
	EventLoading     = "loading"
	EventCleaning    = "cleaning"
	EventCleaned     = "cleaned"
	EventError       = "error"
	EventCorrelating = "correlating"
	EventComplete    = "complete"
)

// Event is one progress update from a run.
type Event struct {
	Type     string           `json:"type"`
	RunID    string           `json:"run_id"`
	Platform string           `json:"platform,omitempty"`
	Message  string           `json:"message,omitempty"`
	Profile  *profile.Profile `json:"profile,omitempty"`
}

// collectionPlatforms is every platform a collection run can store raw
// documents under.
var collectionPlatforms = []string{
	"breachdirectory", "compromise", "github", "reddit", "stackoverflow", "twitter",
}

// NoDataError reports that a run had nothing to work with, naming every
// platform it checked.
type NoDataError struct {
	Identifier string
	Platforms  []string
}

func (e *NoDataError) Error() string {
	checked := "none"
	if len(e.Platforms) > 0 {
		checked = strings.Join(e.Platforms, ", ")
	}
	return fmt.Sprintf("no usable OSINT data for %s (platforms checked: %s)", e.Identifier, checked)
}

func (e *NoDataError) Unwrap() error { return profile.ErrNoData }

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner executes deep-clean runs against one store and cleaner.
type Runner struct {
	store   *store.Store
	cleaner *cleaner.Cleaner
	logger  *slog.Logger
}

// New returns a Runner.
func New(st *store.Store, cl *cleaner.Cleaner, opts ...Option) *Runner {
	r := &Runner{store: st, cleaner: cl, logger: slog.Default()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run cleans and correlates everything stored for an identifier. Progress
// events go to the events channel when one is provided; a nil channel
// disables streaming. The correlation result is stored under mode
// "deep_clean" and also returned.
func (r *Runner) Run(ctx context.Context, identifier string, events chan<- Event) (*profile.Profile, error) {
	runID := uuid.NewString()
	started := time.Now().UTC()
	logger := r.logger.With("run_id", runID, "identifier", identifier)

	emit := func(ev Event) {
		ev.RunID = runID
		if events == nil {
			return
		}
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	emit(Event{Type: EventInit, Message: "deep clean starting"})
	logger.InfoContext(ctx, "deep clean starting")

	emit(Event{Type: EventLoading, Message: "loading collected documents"})
	docs, err := r.store.RawDocuments(ctx, identifier)
	if err != nil {
		emit(Event{Type: EventError, Message: err.Error()})
		return nil, fmt.Errorf("load raw documents: %w", err)
	}
	if len(docs) == 0 {
		noData := &NoDataError{Identifier: identifier, Platforms: collectionPlatforms}
		emit(Event{Type: EventError, Message: noData.Error()})
		return nil, noData
	}

	var cleanedOK, cleanedFailed []string
	var records []profile.CleanedRecord
	for _, doc := range docs {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		emit(Event{Type: EventCleaning, Platform: doc.Platform})

		rec := r.cleaner.Clean(ctx, doc)
		if err := r.store.SaveCleanedRecord(ctx, rec); err != nil {
			logger.WarnContext(ctx, "saving cleaned record failed", "platform", doc.Platform, "error", err)
		}
		records = append(records, rec)

		if rec.Failed() {
			cleanedFailed = append(cleanedFailed, doc.Platform)
			emit(Event{Type: EventError, Platform: doc.Platform, Message: failureMessage(rec)})
			continue
		}
		cleanedOK = append(cleanedOK, doc.Platform)
		emit(Event{Type: EventCleaned, Platform: doc.Platform})
	}

	if len(cleanedOK) == 0 {
		noData := &NoDataError{Identifier: identifier, Platforms: cleanedFailed}
		emit(Event{Type: EventError, Message: noData.Error()})
		return nil, noData
	}

	emit(Event{Type: EventCorrelating, Message: fmt.Sprintf("correlating %d cleaned platforms", len(cleanedOK))})
	p := correlate.CorrelateCleaned(records, identifier)
	p.BackendUsed = "deep_clean"
	p.DeepCleanMeta = map[string]any{
		"run_id":              runID,
		"platforms_processed": len(docs),
		"platforms_cleaned":   cleanedOK,
		"platforms_failed":    cleanedFailed,
		"cleaned_at":          started.Format(time.RFC3339),
		"duration_seconds":    time.Since(started).Seconds(),
	}
	p = profile.Normalize(p)

	doc := profile.CorrelationDocument{
		Identifier:  identifier,
		Mode:        "deep_clean",
		CollectedAt: time.Now().UTC(),
		Result:      p,
	}
	if err := r.store.SaveCorrelation(ctx, doc); err != nil {
		logger.WarnContext(ctx, "saving correlation failed", "error", err)
	}

	emit(Event{Type: EventComplete, Profile: p})
	logger.InfoContext(ctx, "deep clean complete",
		"cleaned", len(cleanedOK), "failed", len(cleanedFailed),
		"duration", time.Since(started))
	return p, nil
}

func failureMessage(rec profile.CleanedRecord) string {
	if msg, ok := rec.Data["error"].(string); ok {
		return msg
	}
	return "cleaning failed"
}
