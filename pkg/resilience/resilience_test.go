package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errDown = errors.New("connection refused")

func TestBreakerOpensAndRecovers(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewBreaker("redis", 2, time.Minute)
	b.now = func() time.Time { return now }

	calls := 0
	fail := func() error { calls++; return errDown }
	ok := func() error { calls++; return nil }

	assert.ErrorIs(t, b.Do(fail), errDown)
	assert.Equal(t, Closed, b.State())
	assert.ErrorIs(t, b.Do(fail), errDown)
	assert.Equal(t, Open, b.State())

	assert.ErrorIs(t, b.Do(ok), ErrOpen)
	assert.Equal(t, 2, calls, "open breaker must not call through")

	now = now.Add(time.Minute)
	require.NoError(t, b.Do(ok))
	assert.Equal(t, Closed, b.State())
}

func TestBreakerFailedProbeReopens(t *testing.T) {
	now := time.Unix(0, 0)
	b := NewBreaker("redis", 1, time.Second)
	b.now = func() time.Time { return now }

	_ = b.Do(func() error { return errDown })
	now = now.Add(time.Second)
	assert.ErrorIs(t, b.Do(func() error { return errDown }), errDown)
	assert.Equal(t, Open, b.State())
	assert.ErrorIs(t, b.Do(func() error { return nil }), ErrOpen)
}

func TestBreakerSuccessResetsFailures(t *testing.T) {
	b := NewBreaker("redis", 2, time.Minute)
	_ = b.Do(func() error { return errDown })
	_ = b.Do(func() error { return nil })
	_ = b.Do(func() error { return errDown })
	assert.Equal(t, Closed, b.State())
}

func TestRetry(t *testing.T) {
	ctx := context.Background()
	fast := Backoff{Attempts: 3, Initial: time.Millisecond, Max: 2 * time.Millisecond}

	calls := 0
	err := Retry(ctx, "publish", fast, func(context.Context) error {
		calls++
		if calls < 3 {
			return errDown
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)

	calls = 0
	err = Retry(ctx, "publish", fast, func(context.Context) error {
		calls++
		return errDown
	})
	assert.ErrorIs(t, err, errDown)
	assert.Equal(t, 3, calls)
}

func TestRetryStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := Retry(ctx, "publish", Backoff{Attempts: 5, Initial: time.Hour}, func(context.Context) error {
		calls++
		cancel()
		return errDown
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}
