package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/solrscout/internal/config"
	"github.com/Aman-CERP/solrscout/internal/logging"
	"github.com/Aman-CERP/solrscout/internal/server"
)

type serveOptions struct {
	addr    string
	noWatch bool
	pprof   bool
}

func newServeCmd() *cobra.Command {
	var opts serveOptions

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP search API",
		Long: `Serve the HTTP search API.

Routes:
  GET /search/:model   one page of records (query, where, filter, facet,
                       sort, order, page, per_page, trashed, raw)
  GET /facets/:model   facet counts
  GET /keys/:model     matching ids
  GET /models          configured models
  GET /stats           cache and query telemetry
  GET /healthz         engine reachability
  GET /debug/pprof/    runtime profiles (with --pprof)

The server restarts with the new configuration when .solrscout.yaml changes.`,
		Example: `  solrscout serve
  solrscout serve --addr 127.0.0.1:9000
  curl 'localhost:8780/search/products?q=boots&facet=color&page=2'`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "Listen address (default: server.addr)")
	cmd.Flags().BoolVar(&opts.noWatch, "no-watch", false, "Do not reload when the project config changes")
	cmd.Flags().BoolVar(&opts.pprof, "pprof", false, "Expose runtime profiles under /debug/pprof")

	return cmd
}

// runServe serves until ctx is cancelled. Each config change shuts the
// current server down and starts a new one over a freshly built service.
func runServe(ctx context.Context, opts serveOptions) error {
	reload := make(chan struct{}, 1)
	if !opts.noWatch {
		if path := projectConfigPath(); path != "" {
			go func() {
				err := config.Watch(ctx, path, func(_ *config.Config, err error) {
					if err != nil {
						return
					}
					select {
					case reload <- struct{}{}:
					default:
					}
				})
				if err != nil {
					slog.Warn("config_watch_failed", slog.String("error", err.Error()))
				}
			}()
		}
	}

	for {
		restart, err := serveOnce(ctx, opts, reload)
		if err != nil || !restart {
			return err
		}
		slog.Info("server_restarting")
	}
}

// serveOnce runs one server generation. It reports whether a config change
// asked for a restart.
func serveOnce(ctx context.Context, opts serveOptions, reload <-chan struct{}) (bool, error) {
	svc, cfg, err := openService(ctx)
	if err != nil {
		return false, err
	}
	defer func() { _ = svc.Close() }()

	logger := slog.Default()
	if !debugMode {
		logger = logging.NewStderrLogger(os.Stderr, cfg.Server.LogLevel)
	}

	addr := opts.addr
	if addr == "" {
		addr = cfg.Server.Addr
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var restart atomic.Bool
	go func() {
		select {
		case <-reload:
			restart.Store(true)
			cancel()
		case <-runCtx.Done():
		}
	}()

	var serverOpts []server.Option
	if opts.pprof {
		serverOpts = append(serverOpts, server.WithPprof())
	}
	err = server.New(svc, logger, serverOpts...).Run(runCtx, addr)
	cancel()
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return restart.Load() && ctx.Err() == nil, err
}

// projectConfigPath returns the project config file, or "" when none exists.
func projectConfigPath() string {
	for _, name := range []string{config.ProjectFile, ".solrscout.yml"} {
		path := filepath.Join(projectDir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
