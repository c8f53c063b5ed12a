package bluesky

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"skyscraper-hq/skyscraper/internal/testutil"
	"skyscraper-hq/skyscraper/pkg/platform"
)

const (
	testDID       = "did:plc:testuser123"
	pathCreate    = "/xrpc/com.atproto.server.createSession"
	pathRefresh   = "/xrpc/com.atproto.server.refreshSession"
	pathGetRecord = "/xrpc/com.atproto.repo.getRecord"
	pathList      = "/xrpc/com.atproto.repo.listRecords"
	pathDelete    = "/xrpc/com.atproto.repo.deleteRecord"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": testDID,
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return token
}

func newTestClient(t *testing.T, ms *testutil.MockServer) *Client {
	t.Helper()
	c, err := New(Config{
		Identifier:  "me.bsky.social",
		AppPassword: "app-pass",
		PDSHost:     ms.URL() + "/",
		Timeout:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	return c
}

func sessionBody(access, refresh string) map[string]string {
	return map[string]string{
		"did":        testDID,
		"handle":     "me.bsky.social",
		"accessJwt":  access,
		"refreshJwt": refresh,
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	tests := []struct {
		name   string
		config Config
		field  string
	}{
		{name: "missing identifier", config: Config{AppPassword: "x"}, field: "identifier"},
		{name: "missing password", config: Config{Identifier: "x"}, field: "app_password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.config)
			var cfgErr *platform.ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("expected ConfigError, got %v", err)
			}
			if cfgErr.Field != tt.field {
				t.Errorf("Field = %q, want %q", cfgErr.Field, tt.field)
			}
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	c, err := New(Config{Identifier: "x", AppPassword: "y"})
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	if c.config.PDSHost != DefaultPDSHost {
		t.Errorf("PDSHost = %q, want %q", c.config.PDSHost, DefaultPDSHost)
	}
	if c.Pacing() != DefaultPacing {
		t.Errorf("Pacing() = %v, want %v", c.Pacing(), DefaultPacing)
	}
}

func TestAuthenticate(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()

	exp := time.Now().Add(2 * time.Hour).Truncate(time.Second)
	access := signedToken(t, exp)
	ms.SetResponse(http.MethodPost, pathCreate, testutil.JSON(sessionBody(access, "refresh-1")))

	c := newTestClient(t, ms)
	sess, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}

	if sess.AccountID != testDID || sess.AccessToken != access || sess.RefreshToken != "refresh-1" {
		t.Errorf("unexpected session: %+v", sess)
	}
	if !sess.ExpiresAt.Equal(exp) {
		t.Errorf("ExpiresAt = %v, want %v", sess.ExpiresAt, exp)
	}

	reqs := ms.RequestsTo(http.MethodPost, pathCreate)
	if len(reqs) != 1 {
		t.Fatalf("expected 1 createSession call, got %d", len(reqs))
	}
	var body map[string]string
	if err := reqs[0].JSON(&body); err != nil {
		t.Fatalf("failed to decode request: %v", err)
	}
	if body["identifier"] != "me.bsky.social" || body["password"] != "app-pass" {
		t.Errorf("unexpected createSession body: %v", body)
	}
}

func TestAuthenticate_Rejected(t *testing.T) {
	for _, status := range []int{http.StatusUnauthorized, http.StatusBadRequest} {
		t.Run(http.StatusText(status), func(t *testing.T) {
			ms := testutil.NewMockServer()
			defer ms.Close()
			ms.SetResponse(http.MethodPost, pathCreate, testutil.MockResponse{
				StatusCode: status,
				Body:       `{"error":"AuthenticationRequired","message":"Invalid identifier or password"}`,
			})

			_, err := newTestClient(t, ms).Authenticate(context.Background())
			if !platform.IsAuthError(err) {
				t.Fatalf("expected AuthError, got %v", err)
			}
		})
	}
}

func TestAuthenticate_OpaqueTokenHasNoExpiry(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()
	ms.SetResponse(http.MethodPost, pathCreate, testutil.JSON(sessionBody("not-a-jwt", "r")))

	sess, err := newTestClient(t, ms).Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if !sess.ExpiresAt.IsZero() {
		t.Errorf("expected zero expiry for opaque token, got %v", sess.ExpiresAt)
	}
}

func TestListPage(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()

	ms.SetResponse(http.MethodGet, pathList, testutil.JSON(map[string]interface{}{
		"records": []map[string]interface{}{
			{
				"uri":   "at://" + testDID + "/app.bsky.feed.repost/abc123",
				"value": map[string]string{"createdAt": "2024-01-01T00:00:00.000Z"},
			},
			{
				"uri":   "at://" + testDID + "/app.bsky.feed.repost/def456",
				"value": map[string]string{},
			},
		},
		"cursor": "next-cursor",
	}))

	c := newTestClient(t, ms)
	sess := &platform.Session{AccountID: testDID, AccessToken: "tok"}

	page, err := c.ListPage(context.Background(), sess, platform.KindReposts, "prev-cursor")
	if err != nil {
		t.Fatalf("ListPage() failed: %v", err)
	}

	if page.Cursor != "next-cursor" || len(page.Records) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	first := page.Records[0]
	if first.ID != "abc123" || first.URI != "at://"+testDID+"/app.bsky.feed.repost/abc123" || !first.Repost {
		t.Errorf("unexpected record: %+v", first)
	}
	if page.Records[1].CreatedAt != "" {
		t.Errorf("expected missing createdAt to stay empty, got %q", page.Records[1].CreatedAt)
	}

	req := ms.RequestsTo(http.MethodGet, pathList)[0]
	if got := req.Query.Get("collection"); got != "app.bsky.feed.repost" {
		t.Errorf("collection = %q", got)
	}
	if req.Query.Get("repo") != testDID || req.Query.Get("limit") != "100" || req.Query.Get("cursor") != "prev-cursor" {
		t.Errorf("unexpected query: %v", req.Query)
	}
	if got := req.Header.Get("Authorization"); got != "Bearer tok" {
		t.Errorf("Authorization = %q", got)
	}
}

func TestListPage_FirstPageOmitsCursor(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()
	ms.SetResponse(http.MethodGet, pathList, testutil.JSON(map[string]interface{}{"records": []interface{}{}}))

	c := newTestClient(t, ms)
	page, err := c.ListPage(context.Background(), &platform.Session{AccountID: testDID}, platform.KindPosts, "")
	if err != nil {
		t.Fatalf("ListPage() failed: %v", err)
	}
	if len(page.Records) != 0 || page.Cursor != "" {
		t.Errorf("expected empty final page, got %+v", page)
	}
	if _, ok := ms.RequestsTo(http.MethodGet, pathList)[0].Query["cursor"]; ok {
		t.Error("first page request must not carry a cursor")
	}
}

func TestDeleteRecord(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()
	ms.SetResponse(http.MethodPost, pathDelete, testutil.JSON(map[string]interface{}{}))

	c := newTestClient(t, ms)
	sess := &platform.Session{AccountID: testDID, AccessToken: "tok"}
	rec := platform.Record{ID: "abc123", URI: "at://" + testDID + "/app.bsky.feed.like/abc123"}

	if err := c.DeleteRecord(context.Background(), sess, platform.KindLikes, rec); err != nil {
		t.Fatalf("DeleteRecord() failed: %v", err)
	}

	var body map[string]string
	if err := ms.RequestsTo(http.MethodPost, pathDelete)[0].JSON(&body); err != nil {
		t.Fatalf("failed to decode request: %v", err)
	}
	want := map[string]string{"repo": testDID, "collection": "app.bsky.feed.like", "rkey": "abc123"}
	for k, v := range want {
		if body[k] != v {
			t.Errorf("body[%q] = %q, want %q", k, body[k], v)
		}
	}
}

func TestDeleteRecord_RateLimited(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()
	ms.SetResponse(http.MethodPost, pathDelete, testutil.MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Headers:    map[string]string{"Retry-After": "30"},
		Body:       `{"error":"RateLimitExceeded"}`,
	})

	c := newTestClient(t, ms)
	err := c.DeleteRecord(context.Background(), &platform.Session{AccountID: testDID}, platform.KindPosts, platform.Record{ID: "x"})
	if !platform.IsRateLimited(err) {
		t.Fatalf("expected RateLimitError, got %v", err)
	}
}

func TestDeleteRecord_UnknownKind(t *testing.T) {
	c, _ := New(Config{Identifier: "x", AppPassword: "y"})
	if err := c.DeleteRecord(context.Background(), &platform.Session{}, platform.Kind("bookmarks"), platform.Record{ID: "x"}); err == nil {
		t.Error("expected error for unsupported kind")
	}
}

func TestPinnedID(t *testing.T) {
	pinnedURI := "at://" + testDID + "/app.bsky.feed.post/pinned1"

	tests := []struct {
		name string
		resp testutil.MockResponse
		want string
	}{
		{
			name: "strong ref",
			resp: testutil.JSON(map[string]interface{}{
				"value": map[string]interface{}{
					"pinnedPost": map[string]string{"uri": pinnedURI, "cid": "bafy"},
				},
			}),
			want: pinnedURI,
		},
		{
			name: "bare uri",
			resp: testutil.JSON(map[string]interface{}{
				"value": map[string]interface{}{"pinnedPost": pinnedURI},
			}),
			want: pinnedURI,
		},
		{
			name: "nothing pinned",
			resp: testutil.JSON(map[string]interface{}{
				"value": map[string]interface{}{"displayName": "me"},
			}),
			want: "",
		},
		{
			name: "no profile record",
			resp: testutil.MockResponse{
				StatusCode: http.StatusBadRequest,
				Body:       `{"error":"RecordNotFound","message":"Could not locate record"}`,
			},
			want: "",
		},
		{
			name: "profile not found",
			resp: testutil.Status(http.StatusNotFound),
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := testutil.NewMockServer()
			defer ms.Close()
			ms.SetResponse(http.MethodGet, pathGetRecord, tt.resp)

			c := newTestClient(t, ms)
			got, err := c.PinnedID(context.Background(), &platform.Session{AccountID: testDID, AccessToken: "tok"})
			if err != nil {
				t.Fatalf("PinnedID() failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("PinnedID() = %q, want %q", got, tt.want)
			}

			q := ms.RequestsTo(http.MethodGet, pathGetRecord)[0].Query
			if q.Get("collection") != "app.bsky.actor.profile" || q.Get("rkey") != "self" {
				t.Errorf("unexpected getRecord query: %v", q)
			}
		})
	}
}

func TestPinnedID_ServerError(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()
	ms.SetResponse(http.MethodGet, pathGetRecord, testutil.Status(http.StatusInternalServerError))

	c := newTestClient(t, ms)
	if _, err := c.PinnedID(context.Background(), &platform.Session{AccountID: testDID}); err == nil {
		t.Error("expected error when the profile cannot be fetched")
	}
}

func TestSessionRefreshBeforeExpiry(t *testing.T) {
	ms := testutil.NewMockServer()
	defer ms.Close()

	now := time.Now()
	expiring := signedToken(t, now.Add(time.Minute))
	fresh := signedToken(t, now.Add(2*time.Hour))

	ms.SetResponse(http.MethodPost, pathCreate, testutil.JSON(sessionBody(expiring, "refresh-1")))
	ms.SetResponse(http.MethodPost, pathRefresh, testutil.JSON(sessionBody(fresh, "refresh-2")))
	ms.SetResponse(http.MethodGet, pathList, testutil.JSON(map[string]interface{}{"records": []interface{}{}}))

	c := newTestClient(t, ms)
	c.now = func() time.Time { return now }

	sess, err := c.Authenticate(context.Background())
	if err != nil {
		t.Fatalf("Authenticate() failed: %v", err)
	}
	if _, err := c.ListPage(context.Background(), sess, platform.KindPosts, ""); err != nil {
		t.Fatalf("ListPage() failed: %v", err)
	}

	refreshes := ms.RequestsTo(http.MethodPost, pathRefresh)
	if len(refreshes) != 1 {
		t.Fatalf("expected 1 refresh, got %d", len(refreshes))
	}
	if got := refreshes[0].Header.Get("Authorization"); got != "Bearer refresh-1" {
		t.Errorf("refresh Authorization = %q", got)
	}
	if got := ms.RequestsTo(http.MethodGet, pathList)[0].Header.Get("Authorization"); got != "Bearer "+fresh {
		t.Errorf("list used stale token: %q", got)
	}
	if sess.RefreshToken != "refresh-2" {
		t.Errorf("RefreshToken = %q, want refresh-2", sess.RefreshToken)
	}

	// A fresh session is not refreshed again.
	if _, err := c.ListPage(context.Background(), sess, platform.KindPosts, ""); err != nil {
		t.Fatalf("ListPage() failed: %v", err)
	}
	if got := len(ms.RequestsTo(http.MethodPost, pathRefresh)); got != 1 {
		t.Errorf("expected no further refresh, got %d total", got)
	}
}

func TestRecordKey(t *testing.T) {
	tests := map[string]string{
		"at://did:plc:x/app.bsky.feed.post/3kabc": "3kabc",
		"plain":                                   "plain",
		"":                                        "",
	}
	for uri, want := range tests {
		if got := RecordKey(uri); got != want {
			t.Errorf("RecordKey(%q) = %q, want %q", uri, got, want)
		}
	}
}

func TestClientImplementsCapabilities(t *testing.T) {
	var c interface{} = &Client{}
	if _, ok := c.(platform.Client); !ok {
		t.Error("Client must implement platform.Client")
	}
	if _, ok := c.(platform.PinnedLookup); !ok {
		t.Error("Client must implement platform.PinnedLookup")
	}
	if _, ok := c.(platform.LikesLister); ok {
		t.Error("likes are an ordinary collection on bluesky")
	}
}
