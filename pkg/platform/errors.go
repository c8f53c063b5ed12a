package platform

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// APIError represents a general platform API error.
// It includes the platform name, HTTP status code, and underlying error.
type APIError struct {
	// Platform is the name of the platform that returned the error
	Platform string

	// StatusCode is the HTTP status code (0 if not applicable)
	StatusCode int

	// Message is the error message
	Message string

	// Cause is the underlying error (if any)
	Cause error
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("platform %q error (status %d): %s", e.Platform, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("platform %q error: %s", e.Platform, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *APIError) Unwrap() error {
	return e.Cause
}

// AuthError represents an authentication failure.
// This occurs when the platform rejects the credentials (HTTP 401 or 403)
// or when the session could not be established at all.
type AuthError struct {
	// Platform is the name of the platform that rejected authentication
	Platform string

	// Message is the error message from the platform
	Message string

	// Cause is the underlying transport error (if any)
	Cause error
}

// Error implements the error interface.
func (e *AuthError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("platform %q authentication failed: %s: %v", e.Platform, e.Message, e.Cause)
	}
	return fmt.Sprintf("platform %q authentication failed: %s", e.Platform, e.Message)
}

// Unwrap returns the underlying error for error chain support.
func (e *AuthError) Unwrap() error {
	return e.Cause
}

// RateLimitError represents a rate limit exceeded error (HTTP 429).
// It includes the retry-after duration if provided by the platform.
type RateLimitError struct {
	// Platform is the name of the platform that rate limited the request
	Platform string

	// RetryAfter is the duration to wait before retrying (if provided)
	RetryAfter time.Duration

	// Message is the error message from the platform
	Message string
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("platform %q rate limit exceeded (retry after %s): %s",
			e.Platform, e.RetryAfter, e.Message)
	}
	return fmt.Sprintf("platform %q rate limit exceeded: %s", e.Platform, e.Message)
}

// TimeoutError represents a request timeout.
type TimeoutError struct {
	// Platform is the name of the platform where the timeout occurred
	Platform string

	// Timeout is the configured timeout duration
	Timeout time.Duration
}

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("platform %q request timeout after %s", e.Platform, e.Timeout)
}

// ParseError represents a response parsing failure.
type ParseError struct {
	// Platform is the name of the platform that returned the malformed response
	Platform string

	// RawResponse is the raw response body that failed to parse
	RawResponse string

	// Cause is the underlying parse error
	Cause error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("platform %q response parse error: %v", e.Platform, e.Cause)
}

// Unwrap returns the underlying error for error chain support.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// ConfigError represents a client configuration error.
type ConfigError struct {
	// Platform is the name of the platform with invalid configuration
	Platform string

	// Field is the configuration field that is invalid
	Field string

	// Message describes the configuration error
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("platform %q configuration error for field %q: %s",
		e.Platform, e.Field, e.Message)
}

// IsRateLimited reports whether err is (or wraps) a RateLimitError.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// IsAuthError reports whether err is (or wraps) an AuthError.
func IsAuthError(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae)
}

// IsNotFound reports whether err is an APIError carrying HTTP 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// ErrorType classifies err for metrics labels.
func ErrorType(err error) string {
	var (
		rl      *RateLimitError
		authErr *AuthError
		toErr   *TimeoutError
		parse   *ParseError
		apiErr  *APIError
	)
	switch {
	case errors.As(err, &rl):
		return "rate_limit"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &toErr):
		return "timeout"
	case errors.As(err, &parse):
		return "parse"
	case errors.As(err, &apiErr):
		if apiErr.StatusCode >= 500 {
			return "server_error"
		}
		if apiErr.StatusCode >= 400 {
			return "client_error"
		}
		return "network"
	default:
		return "other"
	}
}
