package platform

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"time"
)

// DefaultUserAgent is sent with every request unless Config.UserAgent is set.
const DefaultUserAgent = "skyscraper/0.1.0"

// Config contains configuration for a single platform client.
type Config struct {
	// Name is the platform identifier (e.g., "bluesky", "mastodon")
	Name string

	// BaseURL is the API endpoint base URL
	BaseURL string

	// Timeout is the per-request timeout
	Timeout time.Duration

	// MaxRetries is the maximum number of retry attempts for transient errors
	MaxRetries int

	// RetryBackoff is the base delay for exponential backoff (default 1s)
	RetryBackoff time.Duration

	// UserAgent overrides DefaultUserAgent
	UserAgent string

	// MaxIdleConns is the maximum number of idle connections in the pool
	MaxIdleConns int

	// IdleConnTimeout is how long an idle connection remains in the pool
	IdleConnTimeout time.Duration
}

// Observer receives one callback per completed HTTP round trip.
// status is 0 when the request failed before a response arrived.
type Observer interface {
	ObserveRequest(platform, method string, status int, duration time.Duration)
}

// Transport is the shared HTTP layer for platform clients.
// It provides connection pooling, retry logic for transient failures,
// and maps HTTP status codes onto the typed errors of this package.
type Transport struct {
	config   Config
	client   *http.Client
	observer Observer
	logger   *slog.Logger
}

// NewTransport creates a transport with connection pooling.
func NewTransport(config Config) *Transport {
	if config.UserAgent == "" {
		config.UserAgent = DefaultUserAgent
	}
	if config.RetryBackoff == 0 {
		config.RetryBackoff = time.Second
	}
	if config.MaxIdleConns == 0 {
		config.MaxIdleConns = 10
	}
	if config.IdleConnTimeout == 0 {
		config.IdleConnTimeout = 90 * time.Second
	}

	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConns,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &Transport{
		config: config,
		client: &http.Client{
			Transport: transport,
			Timeout:   config.Timeout,
		},
		logger: slog.Default().With("component", "platform.transport", "platform", config.Name),
	}
}

// SetObserver installs an observer for request metrics.
func (t *Transport) SetObserver(o Observer) {
	t.observer = o
}

// Close releases idle connections.
func (t *Transport) Close() {
	t.client.CloseIdleConnections()
}

func (t *Transport) observe(method string, status int, started time.Time) {
	if t.observer != nil {
		t.observer.ObserveRequest(t.config.Name, method, status, time.Since(started))
	}
}

// DoRequest performs an HTTP request with retry logic and timeout handling.
// It retries transient errors (5xx, network failures) with exponential
// backoff. 401/403, 429 and other 4xx responses are returned immediately.
// On success the caller owns the response body.
func (t *Transport) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= t.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * t.config.RetryBackoff
			t.logger.Debug("retrying request",
				"method", method,
				"attempt", attempt,
				"max_retries", t.config.MaxRetries,
				"backoff", backoff,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}

		req.Header.Set("User-Agent", t.config.UserAgent)
		req.Header.Set("Accept", "application/json")
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		started := time.Now()
		resp, err := t.client.Do(req)
		if err != nil {
			t.observe(method, 0, started)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if isTimeout(err) {
				lastErr = &TimeoutError{Platform: t.config.Name, Timeout: t.config.Timeout}
			} else {
				lastErr = &APIError{Platform: t.config.Name, Message: "request failed", Cause: err}
			}
			t.logger.Warn("request failed, will retry",
				"method", method,
				"attempt", attempt+1,
				"error", err,
			)
			continue
		}
		t.observe(method, resp.StatusCode, started)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}

		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &AuthError{
				Platform: t.config.Name,
				Message:  fmt.Sprintf("status %d: %s", resp.StatusCode, string(errorBody)),
			}

		case resp.StatusCode == http.StatusTooManyRequests:
			return nil, &RateLimitError{
				Platform:   t.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}

		case resp.StatusCode < 500:
			return nil, &APIError{
				Platform:   t.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}

		default:
			lastErr = &APIError{
				Platform:   t.config.Name,
				StatusCode: resp.StatusCode,
				Message:    string(errorBody),
			}
			t.logger.Warn("request returned error status, will retry",
				"method", method,
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	return nil, lastErr
}

// DoBytes performs a request and returns the full response body and headers.
func (t *Transport) DoBytes(ctx context.Context, method, url string, reqBody interface{}, headers map[string]string) ([]byte, http.Header, error) {
	var bodyBytes []byte
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := t.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &ParseError{
			Platform: t.config.Name,
			Cause:    fmt.Errorf("failed to read response: %w", err),
		}
	}
	return data, resp.Header, nil
}

// DoJSONRequest performs a JSON request and decodes the response into
// respBody (if non-nil). Response headers are returned for callers that
// paginate via headers.
func (t *Transport) DoJSONRequest(ctx context.Context, method, url string, reqBody interface{}, respBody interface{}, headers map[string]string) (http.Header, error) {
	data, header, err := t.DoBytes(ctx, method, url, reqBody, headers)
	if err != nil {
		return nil, err
	}

	if respBody != nil && len(data) > 0 {
		if err := json.Unmarshal(data, respBody); err != nil {
			return nil, &ParseError{
				Platform:    t.config.Name,
				RawResponse: string(data),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}

	return header, nil
}

func isTimeout(err error) bool {
	type timeout interface{ Timeout() bool }
	te, ok := err.(timeout)
	return ok && te.Timeout()
}

// parseRetryAfter parses the Retry-After header value.
// It supports both delay-seconds and HTTP-date formats.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}

	var seconds int
	if _, err := fmt.Sscanf(header, "%d", &seconds); err == nil {
		return time.Duration(seconds) * time.Second
	}

	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}

	return 0
}
