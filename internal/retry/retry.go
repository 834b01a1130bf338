// Package retry provides a reusable backoff policy for remote calls that may
// be throttled by the RPC provider. Only errors classified as rate limiting
// are retried; everything else propagates on first failure.
package retry

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Policy parameterizes a retried remote call: attempt ceiling, backoff shape
// and the predicate deciding which failures are worth another attempt.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxJitter   time.Duration
	Retryable   func(error) bool

	// Sleep is swappable for tests; nil means real wall-clock sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultPolicy matches the provider-throttle handling used across the engine.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 4,
		BaseDelay:   400 * time.Millisecond,
		MaxJitter:   200 * time.Millisecond,
		Retryable:   IsRateLimit,
	}
}

// Do runs op, retrying with exponential backoff while the failure is
// retryable and attempts remain. The last error is returned untouched so
// callers can classify it.
func (p Policy) Do(ctx context.Context, op func() error) error {
	retryable := p.Retryable
	if retryable == nil {
		retryable = IsRateLimit
	}
	sleep := p.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var err error
	for attempt := 0; attempt < p.MaxAttempts; attempt++ {
		err = op()
		if err == nil {
			return nil
		}
		if !retryable(err) || attempt == p.MaxAttempts-1 {
			return err
		}

		// delay = base * 2^attempt + jitter
		delay := p.BaseDelay << uint(attempt)
		if p.MaxJitter > 0 {
			delay += time.Duration(rand.Int63n(int64(p.MaxJitter)))
		}
		if serr := sleep(ctx, delay); serr != nil {
			return serr
		}
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// IsRateLimit reports whether err looks like a provider throttle (HTTP 429 or
// a rate-limit message from the RPC node).
func IsRateLimit(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "rate") ||
		strings.Contains(msg, "too many requests")
}
