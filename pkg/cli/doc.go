/*
Package cli provides command-line helpers for the skyscraper command.

Output Formatting:

Run reports can be rendered as text, JSON or CSV:

	formatter := cli.NewFormatter(cli.FormatJSON)
	if err := formatter.FormatTo(os.Stdout, report); err != nil {
		return err
	}

Progress Reporting:

Progress implements both retention.Observer and orchestrator.Observer and
draws a live counter per collection pass:

	progress := cli.NewProgress(os.Stderr, 25)
	orch := orchestrator.New(policy, keep, orchestrator.WithObserver(progress))

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, cancel := cli.SetupSignalHandler(context.Background(), logger)
	defer cancel()

Exit Codes:

ExitCode maps command errors to process exit codes; an ExitError carries
its own.
*/
package cli
