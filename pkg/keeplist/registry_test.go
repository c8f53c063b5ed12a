package keeplist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestRegistry_IsProtected(t *testing.T) {
	tests := []struct {
		name     string
		entries  []string
		platform string
		id       string
		want     bool
	}{
		{
			name:     "platform prefixed match",
			entries:  []string{"bluesky:abc123"},
			platform: "bluesky",
			id:       "abc123",
			want:     true,
		},
		{
			name:     "bare id match",
			entries:  []string{"abc123"},
			platform: "bluesky",
			id:       "abc123",
			want:     true,
		},
		{
			name:     "no match",
			entries:  []string{"bluesky:other"},
			platform: "bluesky",
			id:       "abc123",
			want:     false,
		},
		{
			name:     "wrong platform prefix",
			entries:  []string{"mastodon:abc123"},
			platform: "bluesky",
			id:       "abc123",
			want:     false,
		},
		{
			name:     "full uri with prefix",
			entries:  []string{"bluesky:at://did:plc:x/app.bsky.feed.post/abc"},
			platform: "bluesky",
			id:       "at://did:plc:x/app.bsky.feed.post/abc",
			want:     true,
		},
		{
			name:     "empty id never protected",
			entries:  []string{""},
			platform: "bluesky",
			id:       "",
			want:     false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New(tt.entries...)
			if got := r.IsProtected(tt.platform, tt.id); got != tt.want {
				t.Errorf("IsProtected(%q, %q) = %v, want %v", tt.platform, tt.id, got, tt.want)
			}
		})
	}
}

func TestRegistry_NilIsEmpty(t *testing.T) {
	var r *Registry
	if r.IsProtected("bluesky", "abc") {
		t.Error("nil registry must not protect anything")
	}
	if r.Len() != 0 {
		t.Errorf("expected nil registry length 0, got %d", r.Len())
	}
}

func TestParse_SkipsCommentsAndBlanks(t *testing.T) {
	input := "# comment\n\nbluesky:abc123\n  mastodon:456  \n\t\n#another\n"

	r, err := Parse(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Parse() failed: %v", err)
	}

	if r.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d: %v", r.Len(), r.Entries())
	}
	if !r.IsProtected("bluesky", "abc123") {
		t.Error("expected bluesky:abc123 to be protected")
	}
	if !r.IsProtected("mastodon", "456") {
		t.Error("expected trimmed mastodon:456 to be protected")
	}
}

func TestLoad(t *testing.T) {
	t.Run("parses file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keep.txt")
		if err := os.WriteFile(path, []byte("# keep these\nbluesky:abc123\nmastodon:456\n"), 0644); err != nil {
			t.Fatalf("failed to write keep file: %v", err)
		}

		r := Load(path, nil)
		if r.Len() != 2 {
			t.Errorf("expected 2 entries, got %d", r.Len())
		}
	})

	t.Run("missing file is empty", func(t *testing.T) {
		r := Load(filepath.Join(t.TempDir(), "nope", "keep.txt"), nil)
		if r.Len() != 0 {
			t.Errorf("expected empty registry, got %d entries", r.Len())
		}
	})

	t.Run("empty file is empty", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "keep.txt")
		if err := os.WriteFile(path, nil, 0644); err != nil {
			t.Fatalf("failed to write keep file: %v", err)
		}
		if r := Load(path, nil); r.Len() != 0 {
			t.Errorf("expected empty registry, got %d entries", r.Len())
		}
	})

	t.Run("unreadable path is empty", func(t *testing.T) {
		// A directory cannot be read as a keep file.
		r := Load(t.TempDir(), nil)
		if r.Len() != 0 {
			t.Errorf("expected empty registry, got %d entries", r.Len())
		}
	})
}

func TestRegistry_EntriesSorted(t *testing.T) {
	r := New("b", "a", "mastodon:1")
	got := strings.Join(r.Entries(), ",")
	if got != "a,b,mastodon:1" {
		t.Errorf("Entries() = %q", got)
	}
}
