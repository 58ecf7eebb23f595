package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
)

const (
	transientAttempts = 3
	transientDelay    = 800 * time.Millisecond
)

// Result is a successful completion from the fallback chain.
type Result struct {
	Text         string
	Model        string
	FallbackFrom string // first-choice model, set only when a later model served
}

// Fallback walks an ordered model list until one completes. Transient
// failures are retried in place with exponential backoff; everything else,
// rate limiting included, advances to the next model immediately.
func Fallback(ctx context.Context, caller Caller, models []string, messages []Message, logger *slog.Logger) (Result, error) {
	if len(models) == 0 {
		return Result{}, errors.New("no models configured")
	}
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for _, model := range models {
		text, err := retry.DoWithData(
			func() (string, error) {
				return caller.Chat(ctx, model, messages)
			},
			retry.Context(ctx),
			retry.Attempts(transientAttempts),
			retry.Delay(transientDelay),
			retry.DelayType(retry.BackOffDelay), // 0.8s, then 1.6s
			retry.RetryIf(isTransient),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				logger.DebugContext(ctx, "retrying model call", "model", model, "attempt", n+1, "error", err)
			}),
		)
		if err == nil {
			result := Result{Text: text, Model: model}
			if model != models[0] {
				result.FallbackFrom = models[0]
			}
			return result, nil
		}

		lastErr = err
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		var apiErr *APIError
		switch {
		case errors.As(err, &apiErr) && apiErr.Kind == KindRateLimited:
			logger.WarnContext(ctx, "model rate limited, advancing", "model", model)
		case errors.As(err, &apiErr) && apiErr.Kind == KindInvalid:
			logger.WarnContext(ctx, "model rejected request, advancing", "model", model, "error", err)
		default:
			logger.WarnContext(ctx, "model exhausted retries, advancing", "model", model, "error", err)
		}
	}

	return Result{}, fmt.Errorf("all models failed (tried %s): %w", strings.Join(models, ", "), lastErr)
}

func isTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind == KindTransient
	}
	return false
}
