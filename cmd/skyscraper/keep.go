package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"skyscraper-hq/skyscraper/pkg/cli"
	"skyscraper-hq/skyscraper/pkg/keeplist"
	"skyscraper-hq/skyscraper/pkg/platform/bluesky"
	"skyscraper-hq/skyscraper/pkg/platform/mastodon"
	"skyscraper-hq/skyscraper/pkg/platform/threads"
)

var keepCmd = &cobra.Command{
	Use:   "keep",
	Short: "Inspect the keep list",
	Long: `Inspect the keep list.

The keep file holds one entry per line. An entry is either "platform:id",
which protects that record on one platform, or a bare id, which protects it
on every platform. Blank lines and lines starting with # are ignored.`,
}

var keepCheckCmd = &cobra.Command{
	Use:   "check <platform> <id>",
	Short: "Report whether a record is protected",
	Long: `Report whether a record is protected by the keep file.

For Bluesky, an at:// URI is also checked by its record key.

Examples:
  skyscraper keep check bluesky 3kabc123xyz
  skyscraper keep check bluesky at://did:plc:abc/app.bsky.feed.post/3kabc123xyz
  skyscraper keep check mastodon 109876543210`,
	Args: cobra.ExactArgs(2),
	RunE: runKeepCheck,
}

var keepListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the entries of the keep file",
	RunE:  runKeepList,
}

func init() {
	keepCmd.AddCommand(keepCheckCmd)
	keepCmd.AddCommand(keepListCmd)
	rootCmd.AddCommand(keepCmd)
}

func runKeepCheck(cmd *cobra.Command, args []string) error {
	name, id := strings.ToLower(args[0]), args[1]
	switch name {
	case bluesky.Name, mastodon.Name, threads.Name:
	default:
		return cli.NewConfigError("platform", fmt.Sprintf("unknown platform %q: must be bluesky, mastodon or threads", args[0]))
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	keep := keeplist.Load(cfg.KeepFile, logger)

	protected := keep.IsProtected(name, id)
	if !protected && name == bluesky.Name && strings.HasPrefix(id, "at://") {
		protected = keep.IsProtected(name, bluesky.RecordKey(id))
	}

	out := cmd.OutOrStdout()
	if protected {
		fmt.Fprintf(out, "✓ %s:%s is protected by %s\n", name, id, cfg.KeepFile)
	} else {
		fmt.Fprintf(out, "✗ %s:%s is not protected (%d entries in %s)\n", name, id, keep.Len(), cfg.KeepFile)
	}
	return nil
}

func runKeepList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := setupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	keep := keeplist.Load(cfg.KeepFile, logger)

	out := cmd.OutOrStdout()
	for _, entry := range keep.Entries() {
		fmt.Fprintln(out, entry)
	}
	return nil
}
