package unifiedllm

import (
	"context"
	"math"
	"math/rand"
	"time"
)

// RetryPolicy configures retry behavior with exponential backoff.
type RetryPolicy struct {
	MaxRetries        int           // retry attempts, not counting the initial call
	BaseDelay         time.Duration // delay before the first retry
	MaxDelay          time.Duration // cap on a single delay; zero means uncapped
	BackoffMultiplier float64
	Jitter            bool

	// OnRetry is called before each backoff wait.
	OnRetry func(err *ClassifiedError, attempt Attempt)

	// Sleep waits for d or until ctx is done. Nil uses a timer.
	Sleep func(ctx context.Context, d time.Duration) error
}

// Attempt describes one retry of an operation. Number starts at 0 for the
// initial call.
type Attempt struct {
	Endpoint Endpoint
	Number   int
	Delay    time.Duration
}

// DefaultRetryPolicy returns three retries starting at one second and
// doubling on each attempt.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:        3,
		BaseDelay:         time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Delay calculates the delay before retry n (0-indexed).
func (p RetryPolicy) Delay(n int) time.Duration {
	mult := p.BackoffMultiplier
	if mult <= 0 {
		mult = 2.0
	}
	delay := float64(p.BaseDelay) * math.Pow(mult, float64(n))
	if p.MaxDelay > 0 {
		delay = math.Min(delay, float64(p.MaxDelay))
	}
	if p.Jitter {
		// +/- 50% jitter
		delay = delay * (0.5 + rand.Float64())
	}
	return time.Duration(delay)
}

func (p RetryPolicy) wait(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Retry executes fn under policy. Failures are classified after every call
// and only retryable ones are retried; the returned error is always a
// *ClassifiedError.
func Retry[T any](ctx context.Context, policy RetryPolicy, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	for n := 0; ; n++ {
		if err := ctx.Err(); err != nil {
			return zero, Classify(err)
		}

		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}

		ce := Classify(err)
		if !ce.Retryable || n >= policy.MaxRetries {
			return zero, ce
		}

		delay := policy.Delay(n)
		if policy.OnRetry != nil {
			policy.OnRetry(ce, Attempt{Number: n + 1, Delay: delay})
		}

		if err := policy.wait(ctx, delay); err != nil {
			return zero, Classify(err)
		}
	}
}
