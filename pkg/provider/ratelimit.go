package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrRateLimitExceeded reports that a call stayed rate limited past the
// configured retry budget.
var ErrRateLimitExceeded = errors.New("rate limit retries exhausted")

// RateLimiter wraps a single provider call with bounded exponential
// backoff on transient rate-limit responses. It is stateless across
// calls.
type RateLimiter struct {
	// MaxRetries bounds how many times a rate-limited call is retried.
	MaxRetries int

	// MaxWait caps the backoff interval. Zero means uncapped.
	MaxWait time.Duration

	// BaseWait is the first backoff interval; it doubles per retry.
	// Defaults to one second.
	BaseWait time.Duration
}

// NewRateLimiter creates a limiter with the given retry budget and wait
// cap.
func NewRateLimiter(maxRetries int, maxWait time.Duration) *RateLimiter {
	return &RateLimiter{MaxRetries: maxRetries, MaxWait: maxWait, BaseWait: time.Second}
}

// Do invokes call, absorbing StatusRateLimited responses up to
// MaxRetries. Quota exhaustion and hard failures are returned
// immediately; they are never retried here.
func (rl *RateLimiter) Do(ctx context.Context, providerName, model string, call func(context.Context) Result) (string, error) {
	wait := rl.BaseWait
	if wait <= 0 {
		wait = time.Second
	}

	for attempt := 0; ; attempt++ {
		res := call(ctx)
		switch res.Status {
		case StatusOK:
			return res.Output, nil

		case StatusQuotaExhausted:
			return "", &QuotaError{Provider: providerName, Model: model, Reason: res.Message}

		case StatusFailed:
			return "", fmt.Errorf("%s (%s) call failed: %s", providerName, model, res.Message)

		case StatusRateLimited:
			if attempt >= rl.MaxRetries {
				return "", fmt.Errorf("%s (%s) still rate limited after %d retries: %w",
					providerName, model, rl.MaxRetries, ErrRateLimitExceeded)
			}
			d := wait
			if rl.MaxWait > 0 && d > rl.MaxWait {
				d = rl.MaxWait
			}
			logrus.WithFields(logrus.Fields{
				"provider": providerName,
				"model":    model,
				"attempt":  attempt + 1,
				"wait":     d.String(),
			}).Debug("rate limited, backing off")

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(d):
			}
			wait *= 2

		default:
			return "", fmt.Errorf("unexpected provider status %v", res.Status)
		}
	}
}
