// Copyright 2026 Caisho
// SPDX-License-Identifier: Apache-2.0

package smartthings

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
)

// APIError represents a structured error response from the SmartThings
// API. Callers can use errors.As to extract the structured information:
//
//	var apiErr *APIError
//	if errors.As(err, &apiErr) {
//	    if apiErr.StatusCode == http.StatusTooManyRequests { ... }
//	}
type APIError struct {
	// StatusCode is the HTTP status code of the response.
	StatusCode int `json:"-"`
	// RequestID is the API's correlation ID for the failed request.
	RequestID string `json:"requestId"`
	// Code is the API error code (e.g. "UnauthorizedError").
	Code string `json:"code"`
	// Message is the human-readable error description from the server.
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("smartthings: HTTP %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("smartthings: %s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// RetriesExhaustedError reports that fetching a single page consumed
// the entire retry budget. Last holds the final attempt's error, so
// callers can still distinguish rate limiting from connection failure
// through errors.As.
type RetriesExhaustedError struct {
	// Attempts is the total number of requests issued for the page.
	Attempts int
	// Last is the error from the final attempt.
	Last error
}

func (e *RetriesExhaustedError) Error() string {
	return fmt.Sprintf("smartthings: page fetch failed after %d attempts: %v", e.Attempts, e.Last)
}

func (e *RetriesExhaustedError) Unwrap() error { return e.Last }

// ErrMalformedPage marks an unparseable page payload. A skipped page
// would corrupt the chronological completeness of the extraction, so
// the whole run aborts instead.
var ErrMalformedPage = errors.New("smartthings: malformed history page")

// IsAuthError reports whether err is a 401 or 403 response. Auth
// failures are never retried: waiting does not mint a valid token.
func IsAuthError(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusUnauthorized ||
			apiErr.StatusCode == http.StatusForbidden
	}
	return false
}

// IsRateLimited reports whether err is (or wraps) a 429 response.
func IsRateLimited(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

// IsRetryable reports whether err is worth retrying: a 429 rate limit,
// a 5xx server error, or a transport failure (timeout, connection
// reset, DNS failure). Client errors (4xx except 429) indicate a
// permanent problem and are returned immediately. Context cancellation
// is never retryable.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusTooManyRequests {
			return true
		}
		return apiErr.StatusCode >= 500
	}

	// Transport-level failure. A per-request timeout surfaces here as
	// a *url.Error wrapping context.DeadlineExceeded; the fetch loop
	// separately checks the parent context so that cancellation of the
	// whole extraction stops retries.
	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
