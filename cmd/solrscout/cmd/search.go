package cmd

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/solrscout/internal/config"
	"github.com/Aman-CERP/solrscout/internal/output"
	"github.com/Aman-CERP/solrscout/internal/search"
	"github.com/Aman-CERP/solrscout/internal/store"
	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// queryOptions holds the flags shared by search, facets and keys.
type queryOptions struct {
	index       string
	wheres      []string
	filters     []string
	constraints []string
	trashed     string
}

func (o *queryOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.index, "index", "", "Search a custom index instead of the model's default")
	cmd.Flags().StringArrayVarP(&o.wheres, "where", "w", nil, "Exact match as field:value (repeatable)")
	cmd.Flags().StringArrayVarP(&o.filters, "filter", "F", nil, "Match any of field:a,b (repeatable)")
	cmd.Flags().StringArrayVar(&o.constraints, "constraint", nil, "Hydration constraint as field:value (repeatable)")
	cmd.Flags().StringVar(&o.trashed, "trashed", "", "Soft-delete scope: with, only")
}

// request builds the search request for model and the query words.
func (o *queryOptions) request(model string, words []string) (search.Request, error) {
	req := search.Request{
		Model:   model,
		Query:   strings.Join(words, " "),
		Index:   o.index,
		Trashed: o.trashed,
	}
	var err error
	if req.Wheres, err = search.ParsePairs("where", o.wheres); err != nil {
		return req, err
	}
	if req.Constraints, err = search.ParsePairs("constraint", o.constraints); err != nil {
		return req, err
	}
	if req.Filters, err = search.ParseFilters(o.filters); err != nil {
		return req, err
	}
	return req, nil
}

type searchOptions struct {
	queryOptions
	facets  []string
	sort    string
	orders  []string
	page    int
	perPage int
	raw     bool
	format  string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <model> [query...]",
		Short: "Search a model and print one page of results",
		Long: `Search a model's index and print one page of hydrated records.

An empty query matches every record. Hits whose record is missing from the
store are skipped unless hydration.strict is set.`,
		Example: `  solrscout search products boots
  solrscout search products boots --where color:red --facet brand
  solrscout search products --filter size:42,43 --order price:desc --page 2
  solrscout search products boots --trashed with --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, args[0], args[1:], opts)
		},
	}

	opts.register(cmd)
	cmd.Flags().StringSliceVar(&opts.facets, "facet", nil, "Facet fields (repeatable or comma separated)")
	cmd.Flags().StringVar(&opts.sort, "sort", "", `Native sort, e.g. "price desc"`)
	cmd.Flags().StringArrayVar(&opts.orders, "order", nil, "Order as field[:asc|desc] (repeatable)")
	cmd.Flags().IntVarP(&opts.page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&opts.perPage, "per-page", "n", 0, "Results per page (default: the model's page size)")
	cmd.Flags().BoolVar(&opts.raw, "raw", false, "Print index documents instead of hydrated records")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(cmd *cobra.Command, model string, words []string, opts searchOptions) error {
	ctx := cmd.Context()

	req, err := opts.request(model, words)
	if err != nil {
		return err
	}
	req.Facets = search.SplitFacets(opts.facets)
	req.Sort = opts.sort
	req.Page = opts.page
	req.PerPage = opts.perPage
	req.Raw = opts.raw
	if req.Orders, err = search.ParseOrders(opts.orders); err != nil {
		return err
	}

	svc, cfg, err := openService(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	start := time.Now()
	res, err := svc.Search(ctx, req)
	if err != nil {
		return err
	}
	slog.Info("search_complete",
		slog.String("model", model),
		slog.String("query", req.Query),
		slog.Duration("duration", time.Since(start)))

	out := newWriter(cmd)
	if opts.format == "json" {
		return out.JSON(res)
	}

	if res.Documents != nil {
		printPage(out, res.Documents, documentHits(res.Documents.Items, documentIDField(cfg, model)))
	} else {
		printPage(out, res.Page, recordHits(res.Page.Items))
	}
	if len(res.Facets) > 0 {
		out.Newline()
		out.Facets(res.Facets)
	}
	return nil
}

func printPage[T any](out *output.Writer, p *scout.Paginator[T], hits []output.Hit) {
	out.Hits(hits)
	out.Newline()
	out.PageSummary(p.FirstItem(), p.LastItem(), p.Total, p.CurrentPage, p.LastPage())
}

func recordHits(records []store.Record) []output.Hit {
	hits := make([]output.Hit, 0, len(records))
	for _, r := range records {
		hits = append(hits, output.Hit{ID: r.ID, Fields: r.Fields, Trashed: r.Trashed()})
	}
	return hits
}

func documentHits(docs []scout.Document, idField string) []output.Hit {
	hits := make([]output.Hit, 0, len(docs))
	for _, d := range docs {
		fields := make(map[string]any, len(d))
		for k, v := range d {
			if k != idField {
				fields[k] = v
			}
		}
		hits = append(hits, output.Hit{ID: fmt.Sprint(d[idField]), Fields: fields})
	}
	return hits
}

// documentIDField returns the field holding the id in model's raw documents.
func documentIDField(cfg *config.Config, model string) string {
	backend := cfg.Engine.Backend
	if m, ok := cfg.Model(model); ok && m.Engine != "" {
		backend = m.Engine
	}
	if backend == config.BackendSolr && cfg.Engine.Solr.IDField != "" {
		return cfg.Engine.Solr.IDField
	}
	return "id"
}
