package provider

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"
)

// Invoker ties routing, rate limiting and quota detection into the
// single call surface stage runners use.
type Invoker struct {
	client  Client
	router  *Router
	limiter *RateLimiter
	log     *logrus.Entry
}

// NewInvoker wires a client, router and rate limiter together.
func NewInvoker(client Client, router *Router, limiter *RateLimiter) *Invoker {
	return &Invoker{
		client:  client,
		router:  router,
		limiter: limiter,
		log:     logrus.WithField("component", "provider"),
	}
}

// Do resolves the task class and performs the call. The fallback model is
// attempted only after the default has exhausted its own retry budget.
// Quota exhaustion is returned immediately and never retried against
// another model.
func (iv *Invoker) Do(ctx context.Context, class, prompt string) (string, error) {
	models, err := iv.router.Candidates(class)
	if err != nil {
		return "", err
	}

	var lastErr error
	for _, model := range models {
		iv.log.WithFields(logrus.Fields{"class": class, "model": model}).Debug("invoking provider")

		out, err := iv.limiter.Do(ctx, iv.client.Name(), model, func(ctx context.Context) Result {
			return iv.client.Complete(ctx, model, prompt)
		})
		if err == nil {
			return out, nil
		}
		if errors.Is(err, ErrRateLimitExceeded) {
			iv.log.WithFields(logrus.Fields{"class": class, "model": model}).
				Warn("model exhausted its retry budget, trying next candidate")
			lastErr = err
			continue
		}
		return "", err
	}
	return "", lastErr
}
