package provider

import (
	"errors"
	"fmt"
)

// QuotaError reports unrecoverable quota exhaustion. It is categorically
// different from a transient rate limit: no amount of waiting will make
// the call succeed without operator action, so callers must pause rather
// than retry.
type QuotaError struct {
	Provider string
	Model    string
	Reason   string
}

func (e *QuotaError) Error() string {
	return fmt.Sprintf("quota exhausted on %s (%s): %s", e.Provider, e.Model, e.Reason)
}

// AsQuota unwraps err as a QuotaError if it is one.
func AsQuota(err error) (*QuotaError, bool) {
	var qe *QuotaError
	if errors.As(err, &qe) {
		return qe, true
	}
	return nil, false
}
