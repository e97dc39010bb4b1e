// Package provider routes and executes calls against external
// generative-work providers. Provider outcomes are modeled as explicit
// result variants rather than raised errors so the retry and pause
// policy stays visible at every call site.
package provider

import "context"

// Status classifies the outcome of a single provider call.
type Status int

const (
	// StatusOK means the call succeeded and Output is valid.
	StatusOK Status = iota

	// StatusRateLimited is a transient "try again later" signal.
	StatusRateLimited

	// StatusQuotaExhausted means no budget remains. Retrying cannot
	// succeed without operator action.
	StatusQuotaExhausted

	// StatusFailed covers every other provider-side failure.
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusRateLimited:
		return "rate_limited"
	case StatusQuotaExhausted:
		return "quota_exhausted"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Result is the outcome of a single provider call.
type Result struct {
	Status Status
	Output string
	// Message carries provider-reported detail for non-OK statuses.
	Message string
}

// Client performs one call against a concrete provider model.
type Client interface {
	// Name identifies the provider for logs and alerts.
	Name() string

	// Complete sends a prompt to the given model and classifies the
	// response. Transport failures are reported as StatusFailed.
	Complete(ctx context.Context, model, prompt string) Result
}
