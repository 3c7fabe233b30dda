package cmd

import (
	"github.com/spf13/cobra"
)

type keysOptions struct {
	queryOptions
	limit  int
	format string
}

func newKeysCmd() *cobra.Command {
	var opts keysOptions

	cmd := &cobra.Command{
		Use:   "keys <model> [query...]",
		Short: "Print the ids of matching records",
		Long: `Print the ids of matching records in engine order, one per line.
No records are loaded from the store.`,
		Example: `  solrscout keys products boots --limit 50
  solrscout keys products --trashed only`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runKeys(cmd, args[0], args[1:], opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of ids (default: engine default)")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runKeys(cmd *cobra.Command, model string, words []string, opts keysOptions) error {
	ctx := cmd.Context()

	req, err := opts.request(model, words)
	if err != nil {
		return err
	}
	req.Limit = opts.limit

	svc, _, err := openService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	keys, err := svc.Keys(ctx, req)
	if err != nil {
		return err
	}

	out := newWriter(cmd)
	if opts.format == "json" {
		if keys == nil {
			keys = []string{}
		}
		return out.JSON(keys)
	}
	out.Lines(keys)
	return nil
}
