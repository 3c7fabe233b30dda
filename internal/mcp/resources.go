package mcp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Resource URIs.
const (
	ModelsURI       = "solrscout://models"
	QueryMetricsURI = "solrscout://query_metrics"
)

// QueryMetricsOutput is the JSON structure for the query_metrics resource.
type QueryMetricsOutput struct {
	Summary             QueryMetricsSummary `json:"summary"`
	OperationCounts     map[string]int64    `json:"operation_counts"`
	ModelCounts         map[string]int64    `json:"model_counts"`
	TopTerms            []QueryTermCount    `json:"top_terms"`
	ZeroResultQueries   []string            `json:"zero_result_queries"`
	LatencyDistribution map[string]int64    `json:"latency_distribution"`
}

// QueryMetricsSummary provides overview statistics.
type QueryMetricsSummary struct {
	TotalQueries  int64   `json:"total_queries"`
	Failures      int64   `json:"failures"`
	ZeroResultPct float64 `json:"zero_result_pct"`
	RepeatRate    float64 `json:"repeat_rate"`
	Since         string  `json:"since"`
}

// QueryTermCount represents a term and its frequency.
type QueryTermCount struct {
	Term  string `json:"term"`
	Count int64  `json:"count"`
}

// registerModelsResource registers the models resource.
func (s *Server) registerModelsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "models",
			URI:         ModelsURI,
			Description: "Searchable models and their engines",
			MIMEType:    "application/json",
		},
		func(context.Context, *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
			return jsonResource(ModelsURI, s.listModels())
		},
	)
}

// registerQueryMetricsResource registers the query_metrics resource.
func (s *Server) registerQueryMetricsResource() {
	s.mcp.AddResource(
		&mcp.Resource{
			Name:        "query_metrics",
			URI:         QueryMetricsURI,
			Description: "Query telemetry: volume, top terms, zero-result queries and latency",
			MIMEType:    "application/json",
		},
		s.makeQueryMetricsHandler(),
	)
}

// makeQueryMetricsHandler creates a handler for the query_metrics resource.
func (s *Server) makeQueryMetricsHandler() mcp.ResourceHandler {
	return func(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
		output, err := s.QueryMetrics()
		if err != nil {
			return nil, err
		}
		return jsonResource(QueryMetricsURI, output)
	}
}

// QueryMetrics returns the current telemetry snapshot.
func (s *Server) QueryMetrics() (*QueryMetricsOutput, error) {
	s.mu.RLock()
	metrics := s.metrics
	s.mu.RUnlock()

	if metrics == nil {
		return nil, NewInvalidParamsError("query metrics not available")
	}

	snapshot := metrics.Snapshot()

	output := &QueryMetricsOutput{
		Summary: QueryMetricsSummary{
			TotalQueries:  snapshot.TotalQueries,
			Failures:      snapshot.FailureCount,
			ZeroResultPct: snapshot.ZeroResultPercentage(),
			RepeatRate:    snapshot.RepeatRate(),
			Since:         snapshot.Since.UTC().Format(time.RFC3339),
		},
		OperationCounts:     make(map[string]int64, len(snapshot.OperationCounts)),
		ModelCounts:         snapshot.ModelCounts,
		TopTerms:            make([]QueryTermCount, 0, len(snapshot.TopTerms)),
		ZeroResultQueries:   snapshot.ZeroResultQueries,
		LatencyDistribution: make(map[string]int64, len(snapshot.LatencyDistribution)),
	}

	for op, count := range snapshot.OperationCounts {
		output.OperationCounts[string(op)] = count
	}
	for _, tc := range snapshot.TopTerms {
		output.TopTerms = append(output.TopTerms, QueryTermCount{Term: tc.Term, Count: tc.Count})
	}
	for bucket, count := range snapshot.LatencyDistribution {
		output.LatencyDistribution[string(bucket)] = count
	}
	return output, nil
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	content, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, MapError(err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{
			{
				URI:      uri,
				MIMEType: "application/json",
				Text:     string(content),
			},
		},
	}, nil
}
