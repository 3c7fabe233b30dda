package cmd

import (
	"time"

	"github.com/spf13/cobra"
)

func newPingCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that the configured engines are reachable",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			svc, _, err := openService(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = svc.Close() }()

			start := time.Now()
			if err := svc.Ping(ctx); err != nil {
				return err
			}

			out := newWriter(cmd)
			out.Successf("Engines reachable (%s)", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
}
