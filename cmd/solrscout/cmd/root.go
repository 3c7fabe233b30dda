// Package cmd provides the CLI commands for solrscout.
package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/solrscout/internal/config"
	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
	"github.com/Aman-CERP/solrscout/internal/logging"
	"github.com/Aman-CERP/solrscout/internal/output"
	"github.com/Aman-CERP/solrscout/internal/profiling"
	"github.com/Aman-CERP/solrscout/internal/search"
	"github.com/Aman-CERP/solrscout/pkg/version"
)

// Global flags
var (
	debugMode      bool
	projectDir     string
	noColor        bool
	loggingCleanup func()
)

// Profiling flags
var (
	profileOpts profiling.Options
	profile     *profiling.Session
)

// NewRootCmd creates the root command for the solrscout CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "solrscout",
		Short: "Fluent search over Solr and Bleve indexes",
		Long: `solrscout builds search queries against Solr (or an embedded Bleve index),
hydrates the matching ids from a record store and returns pages, keys
and facet counts.

It can run one-off searches, serve an HTTP API, or act as an MCP server
for AI assistants.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.SetVersionTemplate("solrscout version {{.Version}}\n")

	cmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging to ~/.solrscout/logs/")
	cmd.PersistentFlags().StringVarP(&projectDir, "dir", "C", ".", "Project directory containing .solrscout.yaml")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	cmd.PersistentFlags().StringVar(&profileOpts.CPU, "profile-cpu", "", "Write CPU profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Heap, "profile-mem", "", "Write memory profile to file")
	cmd.PersistentFlags().StringVar(&profileOpts.Trace, "profile-trace", "", "Write execution trace to file")

	cmd.PersistentPreRunE = startProfilingAndLogging
	cmd.PersistentPostRunE = stopProfilingAndLogging

	cmd.AddCommand(newSearchCmd())
	cmd.AddCommand(newFacetsCmd())
	cmd.AddCommand(newKeysCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newMCPCmd())
	cmd.AddCommand(newPingCmd())
	cmd.AddCommand(newStatsCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newLogsCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// startProfilingAndLogging starts the requested profiles and installs the
// file logger when --debug is set.
func startProfilingAndLogging(cmd *cobra.Command, _ []string) error {
	if profileOpts.Enabled() {
		var err error
		if profile, err = profiling.Start(profileOpts); err != nil {
			return err
		}
	}

	// The MCP command owns its own file-only logger.
	if !debugMode || cmd.Name() == "mcp" {
		return nil
	}

	logCfg := logging.DebugConfig().ForCommand(cmd.Name())
	logCfg.Rotation = logRotation()
	logger, cleanup, err := logging.Setup(logCfg)
	if err != nil {
		return fmt.Errorf("failed to setup debug logging: %w", err)
	}
	loggingCleanup = cleanup
	slog.SetDefault(logger)
	slog.Info("debug_logging_enabled",
		slog.String("log_file", logCfg.FilePath),
		slog.String("version", version.Version))
	return nil
}

// logRotation reads the log rotation limits from the loaded config. A
// config that fails to load leaves the logging defaults in place.
func logRotation() logging.Rotation {
	cfg, err := loadConfig()
	if err != nil {
		return logging.Rotation{}
	}
	return logging.Rotation{MaxSizeMB: cfg.Server.LogMaxSizeMB, Keep: cfg.Server.LogMaxFiles}
}

func stopProfilingAndLogging(_ *cobra.Command, _ []string) error {
	var err error
	if profile != nil {
		err = profile.Stop()
		profile = nil
	}
	if loggingCleanup != nil {
		slog.Info("debug_logging_stopped")
		loggingCleanup()
		loggingCleanup = nil
	}
	return err
}

// Execute runs the root command, printing coded errors to stderr.
func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		fmt.Fprint(os.Stderr, scouterrors.FormatForCLI(err))
	}
	return err
}

// loadConfig loads the configuration for the project directory.
func loadConfig() (*config.Config, error) {
	return config.Load(projectDir)
}

// openService loads the configuration and builds the search service.
// Callers must Close the returned service.
func openService(ctx context.Context) (*search.Service, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	if len(cfg.Models) == 0 {
		return nil, nil, scouterrors.ConfigError("no models configured", nil).
			WithSuggestion("run 'solrscout config init' and declare models in .solrscout.yaml")
	}
	svc, err := search.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	return svc, cfg, nil
}

// newWriter returns a console writer for cmd honoring --no-color and NO_COLOR.
func newWriter(cmd *cobra.Command) *output.Writer {
	w := cmd.OutOrStdout()
	return output.NewWithColor(w, !noColor && !output.DetectNoColor() && output.IsTerminal(w))
}
