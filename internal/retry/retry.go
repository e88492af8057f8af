// Package retry implements the shared backoff policy used by the fetch and
// publish clients. Delays grow as base * 2^attempt; after the final attempt
// the last error propagates to the caller, which decides whether the failure
// is item-fatal, source-fatal, or ignorable.
package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"crosspost/internal/logging"
)

// Policy describes a bounded exponential backoff.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration

	// sleep is swapped out in tests to observe delays without waiting.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewPolicy builds a policy with sane floors applied.
func NewPolicy(maxAttempts int, baseDelay time.Duration) Policy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay < 0 {
		baseDelay = 0
	}
	return Policy{MaxAttempts: maxAttempts, BaseDelay: baseDelay, sleep: SleepWithContext}
}

// Do runs op until it succeeds, returns a non-retryable error, or exhausts
// the attempt budget. Each failed attempt is logged at warn level.
func (p Policy) Do(ctx context.Context, logger *slog.Logger, label string, op func() error) error {
	if logger == nil {
		logger = logging.NewNop()
	}
	sleep := p.sleep
	if sleep == nil {
		sleep = SleepWithContext
	}

	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) {
			return lastErr
		}
		if attempt == p.MaxAttempts {
			break
		}
		delay := p.BaseDelay * time.Duration(1<<uint(attempt))
		logger.Warn("operation failed, retrying",
			logging.String("operation", label),
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", p.MaxAttempts),
			logging.Duration("backoff", delay),
			logging.Error(lastErr),
		)
		if err := sleep(ctx, delay); err != nil {
			return err
		}
	}
	return fmt.Errorf("%s: attempts exhausted: %w", label, lastErr)
}

// SleepWithContext waits for d or until the context is canceled.
func SleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// StatusError carries an HTTP-style status from an external API so callers
// can distinguish retryable from terminal failures.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Body)
}

// IsRetryable reports whether err is worth another attempt: rate limits,
// server errors, and transport-level failures qualify; other client errors
// do not.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status == 429 || statusErr.Status >= 500
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	// Treat unclassified failures (connection resets surfaced as url.Error
	// without a net.Error, etc.) as retryable.
	return true
}
