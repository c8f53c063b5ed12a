// Skyscraper deletes old posts, reposts and likes from Bluesky, Mastodon
// and Threads.
//
// Records older than a retention window are removed unless they are pinned
// or listed in a keep file. It runs once under an external scheduler, or as
// a daemon with its own cron schedule.
//
// Usage:
//
//	# One pass over every configured platform, driven by the environment
//	BLUESKY_IDENTIFIER=alice.bsky.social BLUESKY_APP_PASSWORD=... skyscraper run
//
//	# See what would be deleted
//	skyscraper run --dry-run --retention-days 90
//
//	# Run daily at 03:00 with a metrics endpoint
//	skyscraper schedule --config /etc/skyscraper.yaml
//
//	# Is this post protected?
//	skyscraper keep check bluesky 3kabc123xyz
package main

import "os"

func main() {
	os.Exit(Execute())
}
