package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/solrscout/internal/logging"
	"github.com/Aman-CERP/solrscout/internal/mcp"
)

func newMCPCmd() *cobra.Command {
	var transport string

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Run as an MCP server for AI assistants",
		Long: `Run as a Model Context Protocol server.

Tools: search_records, facet_counts, record_keys, list_models.
Resources: solrscout://models, solrscout://query_metrics.

Stdout carries JSON-RPC only. Logs go to ~/.solrscout/logs/solrscout-mcp.log.`,
		Example: `  solrscout mcp
  solrscout -C /srv/shop mcp`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runMCP(cmd.Context(), transport)
		},
	}

	cmd.Flags().StringVar(&transport, "transport", "stdio", "Transport: stdio")

	return cmd
}

func runMCP(ctx context.Context, transport string) error {
	level := "info"
	if debugMode {
		level = "debug"
	}
	cleanup, err := logging.SetupMCPMode(level, logRotation())
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	defer cleanup()

	svc, _, err := openService(ctx)
	if err != nil {
		slog.Error("mcp_service_failed", slog.String("error", err.Error()))
		return err
	}
	defer func() { _ = svc.Close() }()

	srv, err := mcp.NewServer(svc)
	if err != nil {
		return err
	}
	if m := svc.Metrics(); m != nil {
		srv.SetMetrics(m)
	}

	err = srv.Serve(ctx, transport)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
