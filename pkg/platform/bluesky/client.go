// Package bluesky implements the platform client for Bluesky over the
// AT Protocol XRPC API of the user's PDS.
package bluesky

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/tidwall/gjson"

	"skyscraper-hq/skyscraper/pkg/platform"
)

// Name is the platform name used in keep-list prefixes.
const Name = "bluesky"

const (
	// DefaultPDSHost is used when no PDS host is configured.
	DefaultPDSHost = "https://bsky.social"

	// DefaultPacing is the pause after each live deletion.
	DefaultPacing = 100 * time.Millisecond

	pageLimit = 100

	// refreshMargin is how long before access token expiry the session
	// is refreshed.
	refreshMargin = 2 * time.Minute
)

// Repository collections per record kind.
var collections = map[platform.Kind]string{
	platform.KindPosts:   "app.bsky.feed.post",
	platform.KindReposts: "app.bsky.feed.repost",
	platform.KindLikes:   "app.bsky.feed.like",
}

// Config configures the Bluesky client.
type Config struct {
	Identifier  string
	AppPassword string

	// PDSHost is the base URL of the personal data server.
	PDSHost string

	Timeout    time.Duration
	MaxRetries int
	Pacing     time.Duration
}

// Client talks to a Bluesky PDS. Methods are safe for sequential use by one
// orchestrator pass; session refresh is serialized.
type Client struct {
	config    Config
	transport *platform.Transport
	logger    *slog.Logger

	refreshMu sync.Mutex
	now       func() time.Time
}

// New validates config and creates a client.
func New(config Config) (*Client, error) {
	if config.Identifier == "" {
		return nil, &platform.ConfigError{Platform: Name, Field: "identifier", Message: "is required"}
	}
	if config.AppPassword == "" {
		return nil, &platform.ConfigError{Platform: Name, Field: "app_password", Message: "is required"}
	}
	if config.PDSHost == "" {
		config.PDSHost = DefaultPDSHost
	}
	config.PDSHost = strings.TrimRight(config.PDSHost, "/")
	if config.Pacing == 0 {
		config.Pacing = DefaultPacing
	}

	return &Client{
		config: config,
		transport: platform.NewTransport(platform.Config{
			Name:       Name,
			BaseURL:    config.PDSHost,
			Timeout:    config.Timeout,
			MaxRetries: config.MaxRetries,
		}),
		logger: slog.Default().With("component", "platform.bluesky"),
		now:    time.Now,
	}, nil
}

// Name implements platform.Client.
func (c *Client) Name() string { return Name }

// Collections implements platform.Client.
func (c *Client) Collections() []platform.Kind {
	return []platform.Kind{platform.KindPosts, platform.KindReposts, platform.KindLikes}
}

// Pacing implements platform.Pacer.
func (c *Client) Pacing() time.Duration { return c.config.Pacing }

// SetObserver forwards request metrics to o.
func (c *Client) SetObserver(o platform.Observer) { c.transport.SetObserver(o) }

// Close releases idle connections.
func (c *Client) Close() { c.transport.Close() }

type sessionResponse struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}

// Authenticate creates a session with the identifier and app password.
func (c *Client) Authenticate(ctx context.Context) (*platform.Session, error) {
	body := map[string]string{
		"identifier": c.config.Identifier,
		"password":   c.config.AppPassword,
	}

	var resp sessionResponse
	if _, err := c.transport.DoJSONRequest(ctx, http.MethodPost, c.xrpc("com.atproto.server.createSession"), body, &resp, nil); err != nil {
		return nil, asAuthError(err)
	}
	if resp.DID == "" || resp.AccessJwt == "" {
		return nil, &platform.AuthError{Platform: Name, Message: "createSession returned no session"}
	}

	sess := &platform.Session{}
	c.applySession(sess, resp)
	c.logger.Info("authenticated", "did", sess.AccountID, "handle", sess.Handle)
	return sess, nil
}

// PinnedID returns the AT URI of the pinned post from the profile record.
func (c *Client) PinnedID(ctx context.Context, sess *platform.Session) (string, error) {
	if err := c.ensureFresh(ctx, sess); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("repo", sess.AccountID)
	q.Set("collection", "app.bsky.actor.profile")
	q.Set("rkey", "self")

	data, _, err := c.transport.DoBytes(ctx, http.MethodGet, c.xrpc("com.atproto.repo.getRecord")+"?"+q.Encode(), nil, authHeader(sess.AccessToken))
	if err != nil {
		if isRecordNotFound(err) {
			return "", nil
		}
		return "", err
	}

	// pinnedPost is a strong ref ({uri, cid}) but older records store a bare URI.
	pinned := gjson.GetBytes(data, "value.pinnedPost")
	if pinned.IsObject() {
		return pinned.Get("uri").String(), nil
	}
	return pinned.String(), nil
}

type listRecordsResponse struct {
	Records []struct {
		URI   string `json:"uri"`
		Value struct {
			CreatedAt string `json:"createdAt"`
		} `json:"value"`
	} `json:"records"`
	Cursor string `json:"cursor"`
}

// ListPage implements platform.Client.
func (c *Client) ListPage(ctx context.Context, sess *platform.Session, kind platform.Kind, cursor string) (*platform.Page, error) {
	collection, err := collectionFor(kind)
	if err != nil {
		return nil, err
	}
	if err := c.ensureFresh(ctx, sess); err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("repo", sess.AccountID)
	q.Set("collection", collection)
	q.Set("limit", fmt.Sprint(pageLimit))
	if cursor != "" {
		q.Set("cursor", cursor)
	}

	var resp listRecordsResponse
	if _, err := c.transport.DoJSONRequest(ctx, http.MethodGet, c.xrpc("com.atproto.repo.listRecords")+"?"+q.Encode(), nil, &resp, authHeader(sess.AccessToken)); err != nil {
		return nil, err
	}

	page := &platform.Page{
		Records: make([]platform.Record, 0, len(resp.Records)),
		Cursor:  resp.Cursor,
	}
	for _, r := range resp.Records {
		page.Records = append(page.Records, platform.Record{
			ID:        RecordKey(r.URI),
			URI:       r.URI,
			CreatedAt: r.Value.CreatedAt,
			Repost:    kind == platform.KindReposts,
		})
	}
	return page, nil
}

// DeleteRecord implements platform.Client.
func (c *Client) DeleteRecord(ctx context.Context, sess *platform.Session, kind platform.Kind, rec platform.Record) error {
	collection, err := collectionFor(kind)
	if err != nil {
		return err
	}
	if err := c.ensureFresh(ctx, sess); err != nil {
		return err
	}

	body := map[string]string{
		"repo":       sess.AccountID,
		"collection": collection,
		"rkey":       rec.ID,
	}
	_, err = c.transport.DoJSONRequest(ctx, http.MethodPost, c.xrpc("com.atproto.repo.deleteRecord"), body, nil, authHeader(sess.AccessToken))
	return err
}

// ensureFresh refreshes the session when the access token is close to expiry.
func (c *Client) ensureFresh(ctx context.Context, sess *platform.Session) error {
	if sess == nil {
		return &platform.AuthError{Platform: Name, Message: "no session"}
	}

	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	if sess.ExpiresAt.IsZero() || c.now().Add(refreshMargin).Before(sess.ExpiresAt) {
		return nil
	}
	if sess.RefreshToken == "" {
		return nil
	}

	c.logger.Debug("refreshing session", "expires_at", sess.ExpiresAt)

	var resp sessionResponse
	if _, err := c.transport.DoJSONRequest(ctx, http.MethodPost, c.xrpc("com.atproto.server.refreshSession"), nil, &resp, authHeader(sess.RefreshToken)); err != nil {
		return asAuthError(err)
	}
	c.applySession(sess, resp)
	c.logger.Info("session refreshed", "expires_at", sess.ExpiresAt)
	return nil
}

func (c *Client) applySession(sess *platform.Session, resp sessionResponse) {
	if resp.DID != "" {
		sess.AccountID = resp.DID
	}
	if resp.Handle != "" {
		sess.Handle = resp.Handle
	}
	sess.AccessToken = resp.AccessJwt
	if resp.RefreshJwt != "" {
		sess.RefreshToken = resp.RefreshJwt
	}
	sess.ExpiresAt = tokenExpiry(resp.AccessJwt)
}

func (c *Client) xrpc(method string) string {
	return c.config.PDSHost + "/xrpc/" + method
}

// tokenExpiry reads the exp claim of an access JWT. The signature is not
// verified; the PDS remains the authority on validity. A token without a
// readable exp yields the zero time and is never proactively refreshed.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// RecordKey returns the rkey of an AT URI, its last path segment.
func RecordKey(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

func collectionFor(kind platform.Kind) (string, error) {
	collection, ok := collections[kind]
	if !ok {
		return "", fmt.Errorf("bluesky: unsupported collection kind %q", kind)
	}
	return collection, nil
}

func authHeader(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

// asAuthError maps a rejected login onto *platform.AuthError. The PDS
// answers bad credentials with 400/401 and an XRPC error body.
func asAuthError(err error) error {
	if platform.IsAuthError(err) || platform.IsRateLimited(err) {
		return err
	}
	var apiErr *platform.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest {
		return &platform.AuthError{Platform: Name, Message: xrpcMessage(apiErr.Message), Cause: err}
	}
	return err
}

// isRecordNotFound also accepts the 400 RecordNotFound some PDS versions
// return for a missing profile.
func isRecordNotFound(err error) bool {
	if platform.IsNotFound(err) {
		return true
	}
	var apiErr *platform.APIError
	return errors.As(err, &apiErr) && gjson.Get(apiErr.Message, "error").String() == "RecordNotFound"
}

// xrpcMessage extracts the human-readable part of an XRPC error body.
func xrpcMessage(body string) string {
	if msg := gjson.Get(body, "message").String(); msg != "" {
		return msg
	}
	if code := gjson.Get(body, "error").String(); code != "" {
		return code
	}
	return body
}
