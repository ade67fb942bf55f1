// Tiggy Advisor - Conversational Course Recommendation Engine
// Copyright 2026 Tiggy Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tiggyapp/advisor

package genai

import (
	"errors"
	"fmt"
)

// Fatal upstream errors. These are never retried: retrying cannot fix
// a bad credential or an exhausted quota, and each retry burns budget.
var (
	// ErrUpstreamAuth signals rejected credentials (401/403).
	ErrUpstreamAuth = errors.New("generation service rejected credentials")

	// ErrQuotaExceeded signals an exhausted billing quota.
	ErrQuotaExceeded = errors.New("generation service quota exceeded")
)

// ErrServiceDegraded is returned when the circuit breaker is open and
// calls are short-circuited without reaching the upstream.
var ErrServiceDegraded = errors.New("generation service degraded")

// transientError marks a failure worth retrying. reason feeds the retry
// metric: "timeout", "rate_limited" or "server_error".
type transientError struct {
	reason string
	err    error
}

func (e *transientError) Error() string {
	return fmt.Sprintf("transient %s: %v", e.reason, e.err)
}

func (e *transientError) Unwrap() error {
	return e.err
}

// isTransient reports whether err should be retried, and the reason
// label for metrics.
func isTransient(err error) (string, bool) {
	var te *transientError
	if errors.As(err, &te) {
		return te.reason, true
	}
	return "", false
}

// isFatal reports whether err is a deterministic client-side failure
// that retries and the circuit breaker should ignore.
func isFatal(err error) bool {
	return errors.Is(err, ErrUpstreamAuth) || errors.Is(err, ErrQuotaExceeded)
}
