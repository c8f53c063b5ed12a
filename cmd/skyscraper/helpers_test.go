package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"skyscraper-hq/skyscraper/pkg/config"
)

// envVars lists every variable the config loader reads.
var envVars = []string{
	config.EnvRetentionDays, config.EnvDryRun, config.EnvDeletePinned,
	config.EnvDeleteReposts, config.EnvDeleteLikes, config.EnvKeepFile,
	config.EnvBlueskyIdentifier, config.EnvBlueskyAppPassword, config.EnvBlueskyPDSHost,
	config.EnvMastodonInstanceURL, config.EnvMastodonAccessToken, config.EnvThreadsAccessToken,
	config.EnvLogLevel, config.EnvLogFormat, config.EnvSchedule, config.EnvRunOnStart,
	config.EnvMetricsEnabled, config.EnvMetricsListenAddress, config.EnvMetricsPushgatewayURL,
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range envVars {
		t.Setenv(name, "")
	}
}

// resetFlags puts every flag of every command back to its default so that
// tests sharing the global command tree do not leak into each other.
func resetFlags(t *testing.T) {
	t.Helper()
	var walk func(c *cobra.Command)
	walk = func(c *cobra.Command) {
		reset := func(f *pflag.Flag) {
			_ = f.Value.Set(f.DefValue)
			f.Changed = false
		}
		c.Flags().VisitAll(reset)
		c.PersistentFlags().VisitAll(reset)
		for _, sub := range c.Commands() {
			walk(sub)
		}
	}
	walk(rootCmd)
	cfgFile = ""
}

// execute runs the root command with args and returns stdout and the
// process exit code.
func execute(t *testing.T, args ...string) (string, int) {
	t.Helper()
	stdout, _, code := executeCapture(t, args...)
	return stdout, code
}

// executeCapture is execute that also returns stderr.
func executeCapture(t *testing.T, args ...string) (string, string, int) {
	t.Helper()
	resetFlags(t)
	t.Cleanup(func() { resetFlags(t) })

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})

	code := Execute()
	return stdout.String(), stderr.String(), code
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}
