/*
Package cli provides helpers shared by the treblle command.

Output Formatting:

Tabular results (journal entries, summaries) render as aligned text, JSON or
CSV:

	if err := cli.Render(os.Stdout, cli.FormatText, table); err != nil {
		return err
	}

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

Exit Codes:

ExitCode maps command errors to process exit codes; configuration errors
exit with 2, everything else with 1.
*/
package cli
