package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/solrscout/internal/output"
	"github.com/Aman-CERP/solrscout/internal/store"
	"github.com/Aman-CERP/solrscout/internal/telemetry"
)

// StatsOutput is the JSON output of the stats command.
type StatsOutput struct {
	Days                int                               `json:"days"`
	TotalQueries        int64                             `json:"total_queries"`
	OperationCounts     map[telemetry.Operation]int64     `json:"operation_counts"`
	TopTerms            []telemetry.TermCount             `json:"top_terms"`
	ZeroResultQueries   []string                          `json:"zero_result_queries"`
	LatencyDistribution map[telemetry.LatencyBucket]int64 `json:"latency_distribution"`
}

var latencyLabels = []struct {
	bucket telemetry.LatencyBucket
	label  string
}{
	{telemetry.BucketP10, "<10ms"},
	{telemetry.BucketP50, "10-50ms"},
	{telemetry.BucketP100, "50-100ms"},
	{telemetry.BucketP500, "100-500ms"},
	{telemetry.BucketP1000, ">=500ms"},
}

func newStatsCmd() *cobra.Command {
	var (
		jsonOutput bool
		days       int
		top        int
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show persisted query telemetry",
		Long: `Show query telemetry flushed to the record store by earlier runs:
operation volume, top terms, recent zero-result queries and latency.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := loadStats(cmd.Context(), days, top)
			if err != nil {
				return err
			}
			out := newWriter(cmd)
			if jsonOutput {
				return out.JSON(stats)
			}
			printStats(out, stats)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	cmd.Flags().IntVar(&days, "days", 7, "Number of days to include")
	cmd.Flags().IntVar(&top, "top", 10, "Number of top terms and zero-result queries")

	return cmd
}

func loadStats(ctx context.Context, days, top int) (*StatsOutput, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return nil, err
	}
	defer func() { _ = st.Close() }()

	metrics, err := telemetry.NewSQLMetricsStore(st.DB())
	if err != nil {
		return nil, fmt.Errorf("failed to open metrics store: %w", err)
	}

	days = max(days, 1)
	to := time.Now()
	from := to.AddDate(0, 0, -(days - 1)).Format("2006-01-02")
	today := to.Format("2006-01-02")

	out := &StatsOutput{Days: days}
	if out.OperationCounts, err = metrics.GetOperationCounts(from, today); err != nil {
		return nil, fmt.Errorf("get operation counts: %w", err)
	}
	if out.TopTerms, err = metrics.GetTopTerms(top); err != nil {
		return nil, fmt.Errorf("get top terms: %w", err)
	}
	if out.ZeroResultQueries, err = metrics.GetZeroResultQueries(top); err != nil {
		return nil, fmt.Errorf("get zero-result queries: %w", err)
	}
	if out.LatencyDistribution, err = metrics.GetLatencyCounts(from, today); err != nil {
		return nil, fmt.Errorf("get latency counts: %w", err)
	}
	for _, n := range out.OperationCounts {
		out.TotalQueries += n
	}
	return out, nil
}

func printStats(out *output.Writer, s *StatsOutput) {
	out.Header(fmt.Sprintf("Query statistics (last %d days)", s.Days))
	out.KeyValues([][2]string{
		{"Total queries", fmt.Sprint(s.TotalQueries)},
		{"search", fmt.Sprint(s.OperationCounts[telemetry.OpSearch])},
		{"paginate", fmt.Sprint(s.OperationCounts[telemetry.OpPaginate])},
		{"get", fmt.Sprint(s.OperationCounts[telemetry.OpGet])},
		{"keys", fmt.Sprint(s.OperationCounts[telemetry.OpKeys])},
	})
	out.Newline()

	out.Header("Top terms")
	if len(s.TopTerms) == 0 {
		out.Status("", "(none recorded yet)")
	}
	for i, tc := range s.TopTerms {
		out.Status("", fmt.Sprintf("%d. %s (%d)", i+1, tc.Term, tc.Count))
	}
	out.Newline()

	out.Header("Recent zero-result queries")
	if len(s.ZeroResultQueries) == 0 {
		out.Status("", "(none)")
	}
	for _, q := range s.ZeroResultQueries {
		out.Status("", fmt.Sprintf("- %q", q))
	}
	out.Newline()

	out.Header("Latency")
	pairs := make([][2]string, 0, len(latencyLabels))
	for _, l := range latencyLabels {
		pairs = append(pairs, [2]string{l.label, fmt.Sprint(s.LatencyDistribution[l.bucket])})
	}
	out.KeyValues(pairs)
}
