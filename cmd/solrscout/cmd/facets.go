package cmd

import (
	"github.com/spf13/cobra"

	"github.com/Aman-CERP/solrscout/internal/search"
)

type facetsOptions struct {
	queryOptions
	format string
}

func newFacetsCmd() *cobra.Command {
	var opts facetsOptions

	cmd := &cobra.Command{
		Use:   "facets <model> <field[,field...]> [query...]",
		Short: "Count field values across every match",
		Example: `  solrscout facets products color,brand boots
  solrscout facets products brand --where color:red`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFacets(cmd, args[0], args[1], args[2:], opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runFacets(cmd *cobra.Command, model, fields string, words []string, opts facetsOptions) error {
	ctx := cmd.Context()

	req, err := opts.request(model, words)
	if err != nil {
		return err
	}
	req.Facets = search.SplitFacets([]string{fields})

	svc, _, err := openService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	facets, err := svc.Facets(ctx, req)
	if err != nil {
		return err
	}

	out := newWriter(cmd)
	if opts.format == "json" {
		return out.JSON(facets)
	}
	out.Facets(facets)
	return nil
}
