// Package collect fans out platform collectors for a single identifier and
// persists whatever comes back. One slow or broken platform never aborts the
// batch; its slot carries an error marker instead.
package collect

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/shadowhorn/shadowhorn/profile"
)

// Collector fetches one platform's raw data for an identifier.
type Collector interface {
	Fetch(ctx context.Context, identifier string) (profile.RawDocument, error)
}

// Saver persists raw documents. *store.Store satisfies this.
type Saver interface {
	SaveRawDocument(ctx context.Context, doc profile.RawDocument) error
}

// Result is the outcome of one collection run. Every registered platform
// appears either in Documents or in Errors, never both.
type Result struct {
	Documents []profile.RawDocument
	Errors    map[string]string
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithSaver persists each successful document as it arrives.
func WithSaver(saver Saver) Option {
	return func(r *Runner) { r.saver = saver }
}

// WithTimeout bounds each individual collector fetch.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// Runner holds a set of registered collectors.
type Runner struct {
	collectors map[string]Collector
	saver      Saver
	logger     *slog.Logger
	timeout    time.Duration
}

// NewRunner creates a Runner with no collectors registered.
func NewRunner(opts ...Option) *Runner {
	r := &Runner{
		collectors: map[string]Collector{},
		logger:     slog.Default(),
		timeout:    60 * time.Second,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a collector under a platform name, replacing any prior one.
func (r *Runner) Register(platform string, c Collector) {
	r.collectors[platform] = c
}

// Platforms returns the registered platform names, sorted.
func (r *Runner) Platforms() []string {
	names := make([]string, 0, len(r.collectors))
	for name := range r.collectors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Run fetches from every registered collector concurrently. Collector
// failures land in Result.Errors keyed by platform; persistence failures are
// logged but do not fail the run.
func (r *Runner) Run(ctx context.Context, identifier string) Result {
	result := Result{Errors: map[string]string{}}
	if identifier == "" {
		return result
	}

	r.logger.InfoContext(ctx, "starting collection",
		"identifier", identifier, "platforms", len(r.collectors))

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for platform, collector := range r.collectors {
		wg.Add(1)
		go func() {
			defer wg.Done()

			fetchCtx, cancel := context.WithTimeout(ctx, r.timeout)
			defer cancel()

			doc, err := collector.Fetch(fetchCtx, identifier)
			if err != nil {
				r.logger.WarnContext(ctx, "collector failed",
					"platform", platform, "identifier", identifier, "error", err)
				mu.Lock()
				result.Errors[platform] = err.Error()
				mu.Unlock()
				return
			}

			doc.Platform = platform
			if doc.Identifier == "" {
				doc.Identifier = identifier
			}
			if doc.CollectedAt.IsZero() {
				doc.CollectedAt = time.Now().UTC()
			}

			if r.saver != nil {
				if err := r.saver.SaveRawDocument(ctx, doc); err != nil {
					r.logger.WarnContext(ctx, "failed to persist raw document",
						"platform", platform, "identifier", identifier, "error", err)
				}
			}

			mu.Lock()
			result.Documents = append(result.Documents, doc)
			mu.Unlock()
		}()
	}
	wg.Wait()

	// Stable order for callers and tests.
	sort.Slice(result.Documents, func(i, j int) bool {
		return result.Documents[i].Platform < result.Documents[j].Platform
	})

	r.logger.InfoContext(ctx, "collection finished",
		"identifier", identifier,
		"collected", len(result.Documents),
		"failed", len(result.Errors))
	return result
}
