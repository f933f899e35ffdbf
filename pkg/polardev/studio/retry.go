// Package studio – retry.go implements the shared bounded-retry policy
// consumed by both the conversational and system-creation calls.
package studio

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// retryPolicy holds the knobs of one bounded retry loop: attempt count,
// linear backoff step, and the extra pause taken on a rate-limit response.
type retryPolicy struct {
	maxAttempts    int
	backoffStep    time.Duration
	rateLimitPause time.Duration
}

// run invokes call up to maxAttempts times. Between attempts it sleeps
// backoffStep*(attempt+1), so delays strictly increase. A rate-limited
// attempt additionally pauses rateLimitPause first. Returns the last error
// when every attempt fails; context cancellation aborts immediately.
func (p retryPolicy) run(ctx context.Context, logger *slog.Logger, call func(attempt int) (string, error)) (string, error) {
	var lastErr error

	for attempt := 0; attempt < p.maxAttempts; attempt++ {
		out, err := call(attempt)
		if err == nil {
			return out, nil
		}
		lastErr = err

		kind := kindOf(err)
		logger.Warn("generation attempt failed",
			"attempt", attempt+1,
			"max_attempts", p.maxAttempts,
			"kind", kind.String(),
			"error", err,
		)

		if kind == errRateLimit && p.rateLimitPause > 0 {
			pause := p.rateLimitPause
			// Honor Retry-After when the server sent one.
			var apierr *apiError
			if errors.As(err, &apierr) && apierr.retryAfterSec > 0 {
				if ra := time.Duration(apierr.retryAfterSec) * time.Second; ra > pause {
					pause = ra
				}
			}
			if err := sleepCtx(ctx, pause); err != nil {
				return "", err
			}
		}

		if attempt < p.maxAttempts-1 {
			wait := p.backoffStep * time.Duration(attempt+1)
			if err := sleepCtx(ctx, wait); err != nil {
				return "", err
			}
		}
	}

	return "", lastErr
}

// sleepCtx waits for d or until the context is done.
func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
