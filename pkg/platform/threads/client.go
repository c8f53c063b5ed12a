// Package threads implements the platform client for Meta's Threads Graph API.
//
// Long-lived Threads access tokens expire after 60 days and must be
// refreshed outside this tool.
package threads

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"skyscraper-hq/skyscraper/pkg/platform"
)

// Name is the platform name used in keep-list prefixes.
const Name = "threads"

const (
	// DefaultBaseURL is the Threads Graph API root.
	DefaultBaseURL = "https://graph.threads.net/v1.0"

	// DefaultPacing is the pause after each live deletion.
	DefaultPacing = 200 * time.Millisecond

	pageLimit = 50
)

// Graph API error codes that signal throttling.
var rateLimitCodes = map[int64]bool{
	4:   true, // application request limit
	17:  true, // user request limit
	32:  true, // page request limit
	613: true, // custom rate limit
}

// Config configures the Threads client.
type Config struct {
	AccessToken string
	BaseURL     string

	Timeout    time.Duration
	MaxRetries int
	Pacing     time.Duration
}

// Client talks to the Threads Graph API. The access token travels as a
// query parameter.
type Client struct {
	config    Config
	transport *platform.Transport
	logger    *slog.Logger
}

// New validates config and creates a client.
func New(config Config) (*Client, error) {
	if config.AccessToken == "" {
		return nil, &platform.ConfigError{Platform: Name, Field: "access_token", Message: "is required"}
	}
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	if config.Pacing == 0 {
		config.Pacing = DefaultPacing
	}

	return &Client{
		config: config,
		transport: platform.NewTransport(platform.Config{
			Name:       Name,
			BaseURL:    config.BaseURL,
			Timeout:    config.Timeout,
			MaxRetries: config.MaxRetries,
		}),
		logger: slog.Default().With("component", "platform.threads"),
	}, nil
}

// Name implements platform.Client.
func (c *Client) Name() string { return Name }

// Collections implements platform.Client.
func (c *Client) Collections() []platform.Kind {
	return []platform.Kind{platform.KindPosts}
}

// Pacing implements platform.Pacer.
func (c *Client) Pacing() time.Duration { return c.config.Pacing }

// SetObserver forwards request metrics to o.
func (c *Client) SetObserver(o platform.Observer) { c.transport.SetObserver(o) }

// Close releases idle connections.
func (c *Client) Close() { c.transport.Close() }

// Authenticate verifies the access token against /me.
func (c *Client) Authenticate(ctx context.Context) (*platform.Session, error) {
	q := url.Values{}
	q.Set("fields", "id,username")

	var me struct {
		ID       string `json:"id"`
		Username string `json:"username"`
	}
	if _, err := c.transport.DoJSONRequest(ctx, http.MethodGet, c.endpoint("/me", q), nil, &me, nil); err != nil {
		err = classify(err)
		var apiErr *platform.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
			// Expired or malformed tokens come back as 400 OAuthException.
			return nil, &platform.AuthError{Platform: Name, Message: graphMessage(apiErr.Message), Cause: err}
		}
		return nil, err
	}
	if me.ID == "" {
		return nil, &platform.AuthError{Platform: Name, Message: "/me returned no user"}
	}

	c.logger.Info("authenticated", "user_id", me.ID, "username", me.Username)
	return &platform.Session{
		AccountID:   me.ID,
		Handle:      me.Username,
		AccessToken: c.config.AccessToken,
	}, nil
}

type threadsResponse struct {
	Data []struct {
		ID        string `json:"id"`
		Timestamp string `json:"timestamp"`
	} `json:"data"`
	Paging struct {
		Cursors struct {
			After string `json:"after"`
		} `json:"cursors"`
	} `json:"paging"`
}

// ListPage implements platform.Client.
func (c *Client) ListPage(ctx context.Context, _ *platform.Session, kind platform.Kind, cursor string) (*platform.Page, error) {
	if kind != platform.KindPosts {
		return nil, fmt.Errorf("threads: unsupported collection kind %q", kind)
	}

	q := url.Values{}
	q.Set("fields", "id,timestamp")
	q.Set("limit", fmt.Sprint(pageLimit))
	if cursor != "" {
		q.Set("after", cursor)
	}

	var resp threadsResponse
	if _, err := c.transport.DoJSONRequest(ctx, http.MethodGet, c.endpoint("/me/threads", q), nil, &resp, nil); err != nil {
		return nil, classify(err)
	}

	page := &platform.Page{
		Records: make([]platform.Record, 0, len(resp.Data)),
		Cursor:  resp.Paging.Cursors.After,
	}
	for _, p := range resp.Data {
		page.Records = append(page.Records, platform.Record{ID: p.ID, CreatedAt: p.Timestamp})
	}
	return page, nil
}

// DeleteRecord implements platform.Client.
func (c *Client) DeleteRecord(ctx context.Context, _ *platform.Session, kind platform.Kind, rec platform.Record) error {
	if kind != platform.KindPosts {
		return fmt.Errorf("threads: unsupported collection kind %q", kind)
	}

	data, _, err := c.transport.DoBytes(ctx, http.MethodDelete, c.endpoint("/"+url.PathEscape(rec.ID), nil), nil, nil)
	if err != nil {
		return classify(err)
	}
	if success := gjson.GetBytes(data, "success"); success.Exists() && !success.Bool() {
		return &platform.APIError{Platform: Name, StatusCode: http.StatusOK, Message: "delete not acknowledged: " + string(data)}
	}
	return nil
}

func (c *Client) endpoint(path string, q url.Values) string {
	if q == nil {
		q = url.Values{}
	}
	q.Set("access_token", c.config.AccessToken)
	return c.config.BaseURL + path + "?" + q.Encode()
}

// classify maps Graph API throttling errors, which arrive as 400/403 with
// an error code in the body, onto *platform.RateLimitError.
func classify(err error) error {
	var body string
	var apiErr *platform.APIError
	var authErr *platform.AuthError
	switch {
	case errors.As(err, &apiErr):
		body = apiErr.Message
	case errors.As(err, &authErr):
		// AuthError messages carry a "status N: " prefix.
		if i := strings.Index(authErr.Message, "{"); i >= 0 {
			body = authErr.Message[i:]
		}
	default:
		return err
	}

	if code := gjson.Get(body, "error.code"); code.Exists() && rateLimitCodes[code.Int()] {
		return &platform.RateLimitError{Platform: Name, Message: graphMessage(body)}
	}
	return err
}

func graphMessage(body string) string {
	if msg := gjson.Get(body, "error.message").String(); msg != "" {
		return msg
	}
	return body
}
