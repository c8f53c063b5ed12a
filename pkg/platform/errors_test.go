package platform

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestErrorMessages(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "api error with status",
			err:  &APIError{Platform: "mastodon", StatusCode: 500, Message: "boom"},
			want: `platform "mastodon" error (status 500): boom`,
		},
		{
			name: "api error without status",
			err:  &APIError{Platform: "mastodon", Message: "boom"},
			want: `platform "mastodon" error: boom`,
		},
		{
			name: "auth error",
			err:  &AuthError{Platform: "bluesky", Message: "bad password"},
			want: `platform "bluesky" authentication failed: bad password`,
		},
		{
			name: "rate limit with retry after",
			err:  &RateLimitError{Platform: "mastodon", RetryAfter: time.Minute, Message: "slow down"},
			want: `platform "mastodon" rate limit exceeded (retry after 1m0s): slow down`,
		},
		{
			name: "config error",
			err:  &ConfigError{Platform: "threads", Field: "access_token", Message: "required"},
			want: `platform "threads" configuration error for field "access_token": required`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("Error() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestIsRateLimited_Wrapped(t *testing.T) {
	err := fmt.Errorf("delete status 1: %w", &RateLimitError{Platform: "mastodon"})
	if !IsRateLimited(err) {
		t.Error("expected wrapped RateLimitError to be detected")
	}

	// A status code in the message text is not a rate limit signal.
	if IsRateLimited(errors.New("HTTP 429 Too Many Requests")) {
		t.Error("plain error mentioning 429 must not be treated as rate limited")
	}
}

func TestErrorType(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&RateLimitError{}, "rate_limit"},
		{&AuthError{}, "auth"},
		{&TimeoutError{}, "timeout"},
		{&ParseError{}, "parse"},
		{&APIError{StatusCode: 503}, "server_error"},
		{&APIError{StatusCode: 404}, "client_error"},
		{&APIError{Cause: errors.New("dial")}, "network"},
		{errors.New("x"), "other"},
	}

	for _, tt := range tests {
		if got := ErrorType(tt.err); got != tt.want {
			t.Errorf("ErrorType(%T) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestAuthError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &AuthError{Platform: "bluesky", Message: "create session", Cause: cause}

	if !errors.Is(err, cause) {
		t.Error("expected AuthError to unwrap to its cause")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}
