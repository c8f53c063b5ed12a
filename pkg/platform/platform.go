package platform

import (
	"context"
	"slices"
	"time"
)

// Kind names a record collection on a platform.
type Kind string

// Collection kinds understood by the retention engine.
const (
	KindPosts   Kind = "posts"
	KindReposts Kind = "reposts"
	KindLikes   Kind = "likes"
)

// Record is a platform-native item (post, repost marker, like/favourite)
// reduced to the fields the retention engine needs.
type Record struct {
	// ID is the identifier used for deletion and keep-list lookups
	// (Bluesky rkey, Mastodon status ID, Threads media ID).
	ID string

	// URI is an optional alternate identifier that is also checked
	// against the keep list (e.g. the full AT URI on Bluesky).
	URI string

	// CreatedAt is the raw creation timestamp as returned by the platform.
	// It may be empty or malformed.
	CreatedAt string

	// Pinned is set when the platform marks the record itself as pinned.
	Pinned bool

	// Repost is set when the record is a reblog/repost rather than
	// original content.
	Repost bool
}

// Page is one page of a record collection.
type Page struct {
	// Records are returned in platform order; no time ordering is implied.
	Records []Record

	// Cursor continues the collection. Empty means there are no more pages.
	Cursor string
}

// Session carries whatever a platform needs for calls after
// authentication. It is owned by one orchestrator pass over one platform.
type Session struct {
	// AccountID is the platform account identifier (DID, account ID, user ID)
	AccountID string

	// Handle is a human-readable account name, used for logging only
	Handle string

	// AccessToken is the bearer credential for subsequent calls
	AccessToken string

	// RefreshToken is used to renew AccessToken where the platform supports it
	RefreshToken string

	// ExpiresAt is when AccessToken expires (zero if unknown or non-expiring)
	ExpiresAt time.Time
}

// Client is the capability set every platform integration provides.
type Client interface {
	// Name returns the platform name used in keep-list prefixes and logs
	// (e.g. "bluesky").
	Name() string

	// Authenticate establishes a session. It must be called once before
	// any other call and fails with *AuthError when credentials are rejected.
	Authenticate(ctx context.Context) (*Session, error)

	// Collections lists the kinds served by ListPage and DeleteRecord.
	Collections() []Kind

	// ListPage fetches one page of the collection. An empty cursor
	// requests the first page.
	ListPage(ctx context.Context, sess *Session, kind Kind, cursor string) (*Page, error)

	// DeleteRecord deletes one record. Rate limiting is reported as
	// *RateLimitError.
	DeleteRecord(ctx context.Context, sess *Session, kind Kind, rec Record) error
}

// PinnedLookup is implemented by platforms that expose the pinned item
// separately from the records themselves.
type PinnedLookup interface {
	// PinnedID returns the identifier of the pinned item, or "" when
	// nothing is pinned.
	PinnedID(ctx context.Context, sess *Session) (string, error)
}

// LikesLister is implemented by platforms that model likes as a separate
// resource with its own pagination tokens.
type LikesLister interface {
	ListLikesPage(ctx context.Context, sess *Session, cursor string) (*Page, error)
	Unfavourite(ctx context.Context, sess *Session, rec Record) error
}

// Pacer is implemented by clients that want a fixed delay after each live
// deletion.
type Pacer interface {
	Pacing() time.Duration
}

// Serves reports whether c lists kind through ListPage.
func Serves(c Client, kind Kind) bool {
	return slices.Contains(c.Collections(), kind)
}
