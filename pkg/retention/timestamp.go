package retention

import (
	"fmt"
	"time"
)

// timestampLayouts are tried in order. The second accepts the "+0000"
// offset some APIs return instead of "+00:00".
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999Z0700",
}

// ParseTimestamp parses an RFC 3339 timestamp, tolerating a "+HHMM" offset.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp %q", s)
}
