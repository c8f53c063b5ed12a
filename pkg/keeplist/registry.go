package keeplist

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
)

// Registry holds the set of protected identifiers loaded from a keep list.
// Entries are either "<platform>:<id>" or a bare "<id>". A Registry is
// read-only after construction and safe for concurrent use.
type Registry struct {
	entries map[string]struct{}
}

// New creates a registry from raw entries, inserted verbatim.
func New(entries ...string) *Registry {
	r := &Registry{entries: make(map[string]struct{}, len(entries))}
	for _, e := range entries {
		r.entries[e] = struct{}{}
	}
	return r
}

// Parse reads a keep list line by line. Lines are trimmed; blank lines and
// lines starting with '#' are ignored.
func Parse(rd io.Reader) (*Registry, error) {
	r := New()
	scanner := bufio.NewScanner(rd)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		r.entries[line] = struct{}{}
	}
	if err := scanner.Err(); err != nil {
		return New(), err
	}
	return r, nil
}

// Load reads the keep list at path. A missing file yields an empty
// registry; an unreadable file yields an empty registry and a warning.
// Load never fails: a cleanup run must not abort because the keep list is
// inaccessible.
func Load(path string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "keeplist", "path", path)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.Info("no keep file, nothing is protected")
		return New()
	}
	if err != nil {
		logger.Warn("failed to read keep file, nothing is protected", "error", err)
		return New()
	}
	defer f.Close()

	r, err := Parse(f)
	if err != nil {
		logger.Warn("failed to read keep file, nothing is protected", "error", err)
		return New()
	}

	logger.Info("loaded keep list", "entries", r.Len())
	return r
}

// IsProtected reports whether id on platform is protected, either by a
// "platform:id" entry or by a bare "id" entry.
func (r *Registry) IsProtected(platform, id string) bool {
	if r == nil || id == "" {
		return false
	}
	if _, ok := r.entries[platform+":"+id]; ok {
		return true
	}
	_, ok := r.entries[id]
	return ok
}

// Len returns the number of entries.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Entries returns the entries in sorted order.
func (r *Registry) Entries() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.entries))
	for e := range r.entries {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}
