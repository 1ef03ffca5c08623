package llm

import (
	"context"
	"errors"
	"strings"
)

// ErrorClass partitions external-service failures by retry eligibility.
type ErrorClass int

const (
	// ClassTransient errors are retry-eligible: timeouts, rate limits,
	// service-side 5xx conditions.
	ClassTransient ErrorClass = iota
	// ClassPermanent errors are not retried: auth failures, malformed
	// requests. Surfaced immediately per fingerprint.
	ClassPermanent
)

// Classify determines whether an external-service error is worth retrying.
// The Anthropic SDK surfaces HTTP status information in error text, so
// matching follows the same string heuristics the status codes imply.
func Classify(err error) ErrorClass {
	if err == nil {
		return ClassTransient
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return ClassTransient
	}
	if errors.Is(err, context.Canceled) {
		return ClassPermanent
	}

	errStr := strings.ToLower(err.Error())

	// Auth and request-shape failures never succeed on retry
	for _, marker := range []string{"401", "403", "invalid_api_key", "authentication", "permission", "invalid_request", "400"} {
		if strings.Contains(errStr, marker) {
			return ClassPermanent
		}
	}

	// Rate limits, overload, and server-side failures are retryable
	for _, marker := range []string{"429", "rate limit", "overloaded", "529", "500", "502", "503", "timeout", "deadline", "connection"} {
		if strings.Contains(errStr, marker) {
			return ClassTransient
		}
	}

	// Unknown failures default to transient so a flaky service degrades to
	// a reported failure after the attempt ceiling instead of before it.
	return ClassTransient
}

// IsRateLimitError checks if an error is a provider rate limit response.
func IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "overloaded")
}
