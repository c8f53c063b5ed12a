package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"skyscraper-hq/skyscraper/pkg/cli"
)

var (
	// Global flags
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "skyscraper",
	Short: "Skyscraper - retention-based social media cleanup",
	Long: `Skyscraper deletes your own posts, reposts and likes older than a
retention window from Bluesky, Mastodon and Threads.

Pinned posts are kept unless DELETE_PINNED is set, and anything listed in
the keep file (one "platform:id" or bare id per line) is never deleted.

Configuration comes from an optional YAML file and the environment
(RETENTION_DAYS, DRY_RUN, BLUESKY_IDENTIFIER, MASTODON_ACCESS_TOKEN, ...).
Platforms without credentials are skipped.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	}
	return cli.ExitCode(err)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", os.Getenv("SKYSCRAPER_CONFIG"), "config file path (optional, the environment alone is enough)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override log format (json, text, console)")
}
