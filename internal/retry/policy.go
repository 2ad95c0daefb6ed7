// Package retry wraps single operations with bounded exponential backoff.
// Retryable failures (rate limits, timeouts, 5xx) are retried up to
// MaxRetries times; auth and validation failures short-circuit immediately.
package retry

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/novaocr/novaocr/internal/provider"
)

// Policy configures backoff behavior. The zero value is usable but never
// retries. Policies are stateless between invocations; every Do call gets a
// fresh attempt counter.
type Policy struct {
	MaxRetries  int     // additional attempts after the first (>= 0)
	BackoffBase float64 // delay before attempt k is BackoffBase^(k-1) seconds (> 1)

	Logger *slog.Logger

	// Sleep waits for the backoff delay, honoring ctx. Overridable in tests.
	Sleep func(ctx context.Context, d time.Duration) error
}

// ExhaustedError wraps the final failure after the retry budget is spent,
// tagged with the number of attempts made.
type ExhaustedError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// Do executes fn, retrying retryable failures with exponential backoff.
// It returns the number of attempts made and the final error, if any:
//   - retryable error after budget exhaustion -> *ExhaustedError
//   - non-retryable error -> returned as-is after a single attempt
//   - ctx cancellation during a backoff wait -> ctx.Err()
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) (int, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	attempts := 0
	for {
		attempts++
		err := fn(ctx)
		if err == nil {
			if attempts > 1 {
				logger.Info("retry.recovered", "op", op, "attempts", attempts)
			}
			return attempts, nil
		}

		if !provider.IsRetryable(err) {
			logger.Error("retry.non_retryable", "op", op, "attempt", attempts, "error", err)
			return attempts, err
		}

		// attempts-1 retries consumed so far
		if attempts > p.MaxRetries {
			logger.Error("retry.exhausted", "op", op, "attempts", attempts, "error", err)
			return attempts, &ExhaustedError{Op: op, Attempts: attempts, Err: err}
		}

		delay := p.delay(attempts - 1)
		logger.Warn("retry.backoff",
			"op", op,
			"attempt", attempts,
			"max_attempts", p.MaxRetries+1,
			"delay", delay.String(),
			"error", err,
		)
		if serr := sleep(ctx, delay); serr != nil {
			return attempts, serr
		}
	}
}

// delay computes BackoffBase^attempt seconds (attempt starting at 0).
func (p Policy) delay(attempt int) time.Duration {
	base := p.BackoffBase
	if base <= 1 {
		base = 2
	}
	return time.Duration(math.Pow(base, float64(attempt)) * float64(time.Second))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
