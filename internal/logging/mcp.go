package logging

import (
	"log/slog"
)

// SetupMCPMode installs a file-only default logger for the MCP server,
// writing to solrscout-mcp.log. Stdout carries JSON-RPC and must never
// receive log lines, and some clients treat stderr output as a failure.
func SetupMCPMode(level string, rotation Rotation) (func(), error) {
	cfg := DefaultConfig().ForCommand("mcp")
	cfg.Level = level
	cfg.Rotation = rotation
	cfg.WriteToStderr = false

	logger, cleanup, err := Setup(cfg)
	if err != nil {
		return nil, err
	}

	slog.SetDefault(logger)
	slog.Info("mcp_logging_initialized",
		slog.String("log_file", cfg.FilePath),
		slog.String("level", cfg.Level))

	return cleanup, nil
}
