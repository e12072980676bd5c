// Package reddit provides an HTTP client for the Reddit OAuth API with
// automatic retry, rate limiting, and error classification.
package reddit

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, reddit.ErrNotFound) to check.
var (
	ErrBadRequest   = errors.New("reddit: bad request")
	ErrUnauthorized = errors.New("reddit: unauthorized")
	ErrForbidden    = errors.New("reddit: forbidden")
	ErrNotFound     = errors.New("reddit: not found")
	ErrThrottled    = errors.New("reddit: throttled")
	ErrServerError  = errors.New("reddit: server error")
)

// ErrNetwork wraps transport failures that survived every retry.
var ErrNetwork = errors.New("reddit: network error")

// ErrTokenExpired is returned by StaticTokenSource once the implicit-grant
// token has expired. Implicit grants carry no refresh token.
var ErrTokenExpired = errors.New("reddit: access token expired")

// APIError wraps a sentinel error with the HTTP status code and the
// response body for debugging.
type APIError struct {
	StatusCode int
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return ErrThrottled
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

// IsTransient reports whether err is worth retrying later: network failures,
// throttling, request timeouts, and server errors. Everything else (invalid
// id, missing permission) is permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, ErrNetwork) || errors.Is(err, ErrThrottled) || errors.Is(err, ErrServerError) {
		return true
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return isRetryable(apiErr.StatusCode)
	}

	return false
}

// IsAuthFailure reports whether err means the credential itself is no longer
// usable, so every subsequent call would fail the same way.
func IsAuthFailure(err error) bool {
	return errors.Is(err, ErrUnauthorized) || errors.Is(err, ErrTokenExpired)
}
