package cmd

import (
	"context"
	"fmt"
	"io"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/solrscout/internal/logging"
)

type logsOptions struct {
	follow  bool
	lines   int
	level   string
	filter  string
	model   string
	logFile string
}

func newLogsCmd() *cobra.Command {
	var opts logsOptions

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View solrscout logs",
		Long: `View and tail the newest solrscout log in ~/.solrscout/logs/. Each
subcommand run with --debug writes its own file, e.g. solrscout-serve.log.

The log is written by 'solrscout mcp' and by any command run with --debug.`,
		Example: `  solrscout logs                  # last 50 lines
  solrscout logs -f               # follow new entries
  solrscout logs --level warn     # warnings and errors only
  solrscout logs --model products # one model's queries
  solrscout logs --filter search  # lines matching a pattern`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLogs(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.follow, "follow", "f", false, "Follow log output (like tail -f)")
	cmd.Flags().IntVarP(&opts.lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().StringVar(&opts.level, "level", "", "Minimum level (debug|info|warn|error)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "Only lines matching a pattern (regex)")
	cmd.Flags().StringVar(&opts.model, "model", "", "Only entries for a model")
	cmd.Flags().StringVar(&opts.logFile, "file", "", "Path to log file")

	return cmd
}

func runLogs(ctx context.Context, stdout, stderr io.Writer, opts logsOptions) error {
	path, err := logging.FindLogFile(opts.logFile)
	if err != nil {
		return err
	}

	var pattern *regexp.Regexp
	if opts.filter != "" {
		if pattern, err = regexp.Compile(opts.filter); err != nil {
			return fmt.Errorf("invalid filter pattern: %w", err)
		}
	}

	viewer := logging.NewViewer(logging.ViewerConfig{
		Level:   opts.level,
		Pattern: pattern,
		Model:   opts.model,
		NoColor: noColor,
	}, stdout)

	fmt.Fprintf(stderr, "Log file: %s\n---\n", path)

	if !opts.follow {
		entries, err := viewer.Tail(path, opts.lines)
		if err != nil {
			return err
		}
		viewer.Print(entries)
		return nil
	}

	entries := make(chan logging.LogEntry, 100)
	errCh := make(chan error, 1)
	go func() {
		errCh <- viewer.Follow(ctx, path, entries)
	}()

	for {
		select {
		case entry := <-entries:
			fmt.Fprintln(stdout, viewer.FormatEntry(entry))
		case err := <-errCh:
			return err
		case <-ctx.Done():
			fmt.Fprintln(stderr, "\n---\nStopped.")
			return nil
		}
	}
}
