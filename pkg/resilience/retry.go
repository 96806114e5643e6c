package resilience

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"
)

// Backoff bounds Retry. Delays double from Initial up to Max with up to 10%
// jitter either way.
type Backoff struct {
	Attempts int
	Initial  time.Duration
	Max      time.Duration
}

func DefaultBackoff() Backoff {
	return Backoff{Attempts: 3, Initial: 200 * time.Millisecond, Max: 2 * time.Second}
}

// Retry calls fn until it succeeds, the attempts run out or ctx is done.
// The last error is wrapped in the result.
func Retry(ctx context.Context, name string, b Backoff, fn func(context.Context) error) error {
	if b.Attempts <= 0 {
		b.Attempts = 1
	}
	logger := slog.Default().With("component", "retry", "operation", name)
	delay := b.Initial
	var err error
	for attempt := 1; ; attempt++ {
		if err = fn(ctx); err == nil {
			if attempt > 1 {
				logger.Info("succeeded after retry", "attempt", attempt)
			}
			return nil
		}
		if attempt == b.Attempts {
			break
		}
		wait := jitter(delay)
		logger.Warn("attempt failed, retrying", "attempt", attempt, "next_delay", wait, "error", err)
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return fmt.Errorf("%s: %w", name, ctx.Err())
		case <-t.C:
		}
		if delay *= 2; b.Max > 0 && delay > b.Max {
			delay = b.Max
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", name, b.Attempts, err)
}

func jitter(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	spread := int64(d) / 10
	if spread == 0 {
		return d
	}
	return d + time.Duration(rand.Int64N(2*spread+1)-spread)
}
