// Package mastodon implements the platform client for a Mastodon instance.
//
// Reblogs are statuses on Mastodon, so they are served by the posts
// collection with Record.Repost set. Favourites are a separate resource
// paginated through the Link header and are exposed via
// platform.LikesLister.
package mastodon

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"skyscraper-hq/skyscraper/pkg/platform"
)

// Name is the platform name used in keep-list prefixes.
const Name = "mastodon"

const (
	// DefaultPacing is the pause after each live deletion. Mastodon
	// allows 30 deletions per 30 minutes.
	DefaultPacing = 300 * time.Millisecond

	pageLimit = 40
)

// Config configures the Mastodon client.
type Config struct {
	InstanceURL string
	AccessToken string

	Timeout    time.Duration
	MaxRetries int
	Pacing     time.Duration
}

// Client talks to the Mastodon REST API.
type Client struct {
	config    Config
	transport *platform.Transport
	logger    *slog.Logger
}

// New validates config and creates a client.
func New(config Config) (*Client, error) {
	if config.InstanceURL == "" {
		return nil, &platform.ConfigError{Platform: Name, Field: "instance_url", Message: "is required"}
	}
	u, err := url.Parse(config.InstanceURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &platform.ConfigError{Platform: Name, Field: "instance_url", Message: fmt.Sprintf("invalid URL %q", config.InstanceURL)}
	}
	if config.AccessToken == "" {
		return nil, &platform.ConfigError{Platform: Name, Field: "access_token", Message: "is required"}
	}
	config.InstanceURL = strings.TrimRight(config.InstanceURL, "/")
	if config.Pacing == 0 {
		config.Pacing = DefaultPacing
	}

	return &Client{
		config: config,
		transport: platform.NewTransport(platform.Config{
			Name:       Name,
			BaseURL:    config.InstanceURL,
			Timeout:    config.Timeout,
			MaxRetries: config.MaxRetries,
		}),
		logger: slog.Default().With("component", "platform.mastodon"),
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

type account struct {
	ID   string `json:"id"`
	Acct string `json:"acct"`
}

type status struct {
	ID        string          `json:"id"`
	CreatedAt string          `json:"created_at"`
	Pinned    bool            `json:"pinned"`
	Reblog    json.RawMessage `json:"reblog"`
}

func (s status) isReblog() bool {
	return len(s.Reblog) > 0 && string(s.Reblog) != "null"
}

// Authenticate verifies the access token and resolves the account ID.
func (c *Client) Authenticate(ctx context.Context) (*platform.Session, error) {
	var acct account
	if _, err := c.transport.DoJSONRequest(ctx, http.MethodGet, c.api("/accounts/verify_credentials"), nil, &acct, c.auth()); err != nil {
		return nil, err
	}
	if acct.ID == "" {
		return nil, &platform.AuthError{Platform: Name, Message: "verify_credentials returned no account"}
	}

	c.logger.Info("authenticated", "account_id", acct.ID, "acct", acct.Acct)
	return &platform.Session{
		AccountID:   acct.ID,
		Handle:      acct.Acct,
		AccessToken: c.config.AccessToken,
	}, nil
}

// ListPage returns the account's statuses, newest first. The cursor is the
// ID of the last status on the previous page.
func (c *Client) ListPage(ctx context.Context, sess *platform.Session, kind platform.Kind, cursor string) (*platform.Page, error) {
	if kind != platform.KindPosts {
		return nil, fmt.Errorf("mastodon: unsupported collection kind %q", kind)
	}

	q := url.Values{}
	q.Set("limit", fmt.Sprint(pageLimit))
	if cursor != "" {
		q.Set("max_id", cursor)
	}

	var statuses []status
	endpoint := c.api("/accounts/"+url.PathEscape(sess.AccountID)+"/statuses") + "?" + q.Encode()
	if _, err := c.transport.DoJSONRequest(ctx, http.MethodGet, endpoint, nil, &statuses, c.auth()); err != nil {
		return nil, err
	}

	page := &platform.Page{Records: make([]platform.Record, 0, len(statuses))}
	for _, s := range statuses {
		page.Records = append(page.Records, platform.Record{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
			Pinned:    s.Pinned,
			Repost:    s.isReblog(),
		})
	}
	if n := len(statuses); n > 0 {
		page.Cursor = statuses[n-1].ID
	}
	return page, nil
}

// DeleteRecord deletes a status or reblog.
func (c *Client) DeleteRecord(ctx context.Context, _ *platform.Session, kind platform.Kind, rec platform.Record) error {
	if kind != platform.KindPosts {
		return fmt.Errorf("mastodon: unsupported collection kind %q", kind)
	}
	_, err := c.transport.DoJSONRequest(ctx, http.MethodDelete, c.api("/statuses/"+url.PathEscape(rec.ID)), nil, nil, c.auth())
	return err
}

// ListLikesPage returns favourited statuses. The cursor is the max_id of
// the Link header's rel="next" target.
func (c *Client) ListLikesPage(ctx context.Context, _ *platform.Session, cursor string) (*platform.Page, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(pageLimit))
	if cursor != "" {
		q.Set("max_id", cursor)
	}

	var statuses []status
	header, err := c.transport.DoJSONRequest(ctx, http.MethodGet, c.api("/favourites")+"?"+q.Encode(), nil, &statuses, c.auth())
	if err != nil {
		return nil, err
	}

	page := &platform.Page{
		Records: make([]platform.Record, 0, len(statuses)),
		Cursor:  nextMaxID(header.Get("Link")),
	}
	for _, s := range statuses {
		page.Records = append(page.Records, platform.Record{
			ID:        s.ID,
			CreatedAt: s.CreatedAt,
		})
	}
	return page, nil
}

// Unfavourite removes a favourite.
func (c *Client) Unfavourite(ctx context.Context, _ *platform.Session, rec platform.Record) error {
	_, err := c.transport.DoJSONRequest(ctx, http.MethodPost, c.api("/statuses/"+url.PathEscape(rec.ID)+"/unfavourite"), nil, nil, c.auth())
	return err
}

func (c *Client) api(path string) string {
	return c.config.InstanceURL + "/api/v1" + path
}

func (c *Client) auth() map[string]string {
	return map[string]string{"Authorization": "Bearer " + c.config.AccessToken}
}
