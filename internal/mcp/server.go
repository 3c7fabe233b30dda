package mcp

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/Aman-CERP/solrscout/internal/search"
	"github.com/Aman-CERP/solrscout/internal/telemetry"
	"github.com/Aman-CERP/solrscout/pkg/scout"
	"github.com/Aman-CERP/solrscout/pkg/version"
)

// ServerName is reported to MCP clients.
const ServerName = "solrscout"

// Searcher is the part of search.Service the tools need.
type Searcher interface {
	Models() []string
	Search(ctx context.Context, req search.Request) (*search.Result, error)
	Facets(ctx context.Context, req search.Request) (scout.Facets, error)
	Keys(ctx context.Context, req search.Request) ([]string, error)
	Stats() search.Stats
}

// Verify interface implementation at compile time
var _ Searcher = (*search.Service)(nil)

// Server is the MCP server for solrscout.
// It lets AI clients search the configured models.
type Server struct {
	mcp    *mcp.Server
	svc    Searcher
	logger *slog.Logger

	// Query telemetry (optional, set via SetMetrics)
	metrics *telemetry.QueryMetrics

	mu sync.RWMutex
}

// ToolInfo contains information about a registered tool.
type ToolInfo struct {
	Name        string
	Description string
}

var tools = []ToolInfo{
	{
		Name:        ToolSearchRecords,
		Description: "Search a model's index and return one page of records in relevance or sort order. Supports exact where clauses, multi-value filters, facet counts and soft-delete scopes.",
	},
	{
		Name:        ToolFacetCounts,
		Description: "Count the values of one or more fields across every record matching a query. Use to explore what filters are available before searching.",
	},
	{
		Name:        ToolRecordKeys,
		Description: "Return only the ids of records matching a query, in engine order.",
	},
	{
		Name:        ToolListModels,
		Description: "List the searchable models and the engine behind each one.",
	},
}

// NewServer creates a new MCP server over svc.
func NewServer(svc Searcher) (*Server, error) {
	if svc == nil {
		return nil, errors.New("search service is required")
	}

	s := &Server{
		svc:    svc,
		logger: slog.Default(),
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    ServerName,
			Version: version.Version,
		},
		nil, // capabilities are inferred from registered tools/resources
	)

	s.registerTools()
	s.registerModelsResource()

	return s, nil
}

// SetMetrics sets the query metrics collector.
// When set, a query_metrics resource is registered.
func (s *Server) SetMetrics(m *telemetry.QueryMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = m

	if m != nil {
		s.registerQueryMetricsResource()
	}
}

// MCPServer returns the underlying MCP server instance.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Info returns the server name and version.
func (s *Server) Info() (name, ver string) {
	return ServerName, version.Version
}

// ListTools returns all registered tools.
func (s *Server) ListTools() []ToolInfo {
	return tools
}

// CallTool invokes a tool by name with JSON-style arguments and returns its
// markdown rendering.
func (s *Server) CallTool(ctx context.Context, name string, args map[string]any) (string, error) {
	switch name {
	case ToolSearchRecords:
		var in SearchRecordsInput
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		out, err := s.searchRecords(ctx, in)
		if err != nil {
			return "", err
		}
		return FormatRecords(in.Model, in.Query, out), nil
	case ToolFacetCounts:
		var in FacetCountsInput
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		out, err := s.facetCounts(ctx, in)
		if err != nil {
			return "", err
		}
		return FormatFacets(out.Facets), nil
	case ToolRecordKeys:
		var in RecordKeysInput
		if err := decodeArgs(args, &in); err != nil {
			return "", err
		}
		out, err := s.recordKeys(ctx, in)
		if err != nil {
			return "", err
		}
		return strings.Join(out.Keys, "\n"), nil
	case ToolListModels:
		var sb strings.Builder
		for _, m := range s.listModels().Models {
			fmt.Fprintf(&sb, "- %s (%s)\n", m.Name, m.Engine)
		}
		return sb.String(), nil
	default:
		return "", NewMethodNotFoundError(name)
	}
}

func decodeArgs(args map[string]any, v any) error {
	data, err := json.Marshal(args)
	if err != nil {
		return NewInvalidParamsError(err.Error())
	}
	if err := json.Unmarshal(data, v); err != nil {
		return NewInvalidParamsError(err.Error())
	}
	return nil
}

func (s *Server) searchRecords(ctx context.Context, in SearchRecordsInput) (SearchRecordsOutput, error) {
	if in.Model == "" {
		return SearchRecordsOutput{}, NewInvalidParamsError("model parameter is required")
	}
	requestID := generateRequestID()
	start := time.Now()

	perPage := 0
	if in.PerPage > 0 {
		perPage = clampLimit(in.PerPage, 0, 1, MaxPerPage)
	}
	res, err := s.svc.Search(ctx, search.Request{
		Model:   in.Model,
		Query:   in.Query,
		Wheres:  in.Where,
		Filters: filterGroups(in.Filters),
		Facets:  in.Facets,
		Sort:    in.Sort,
		Page:    in.Page,
		PerPage: perPage,
		Trashed: in.Trashed,
	})
	if err != nil {
		s.logger.Warn("mcp_search_failed",
			slog.String("request_id", requestID),
			slog.String("model", in.Model),
			slog.String("error", err.Error()))
		return SearchRecordsOutput{}, MapError(err)
	}

	out := toSearchRecordsOutput(res)
	s.logger.Info("mcp_search",
		slog.String("request_id", requestID),
		slog.String("model", in.Model),
		slog.String("query", in.Query),
		slog.Int("total", out.Total),
		slog.Duration("duration", time.Since(start)))
	return out, nil
}

func (s *Server) facetCounts(ctx context.Context, in FacetCountsInput) (FacetCountsOutput, error) {
	if in.Model == "" {
		return FacetCountsOutput{}, NewInvalidParamsError("model parameter is required")
	}
	if len(in.Facets) == 0 {
		return FacetCountsOutput{}, NewInvalidParamsError("facets parameter needs at least one field")
	}
	f, err := s.svc.Facets(ctx, search.Request{
		Model:   in.Model,
		Query:   in.Query,
		Wheres:  in.Where,
		Filters: filterGroups(in.Filters),
		Facets:  in.Facets,
	})
	if err != nil {
		return FacetCountsOutput{}, MapError(err)
	}
	return FacetCountsOutput{Facets: f}, nil
}

func (s *Server) recordKeys(ctx context.Context, in RecordKeysInput) (RecordKeysOutput, error) {
	if in.Model == "" {
		return RecordKeysOutput{}, NewInvalidParamsError("model parameter is required")
	}
	keys, err := s.svc.Keys(ctx, search.Request{
		Model:   in.Model,
		Query:   in.Query,
		Wheres:  in.Where,
		Filters: filterGroups(in.Filters),
		Limit:   clampLimit(in.Limit, DefaultKeysLimit, 1, MaxKeysLimit),
	})
	if err != nil {
		return RecordKeysOutput{}, MapError(err)
	}
	if keys == nil {
		keys = []string{}
	}
	return RecordKeysOutput{Keys: keys}, nil
}

func (s *Server) listModels() ListModelsOutput {
	engines := s.svc.Stats().Engines
	out := ListModelsOutput{Models: make([]ModelOutput, 0)}
	for _, name := range s.svc.Models() {
		out.Models = append(out.Models, ModelOutput{Name: name, Engine: engines[name]})
	}
	return out
}

// registerTools registers all tools with the MCP server.
func (s *Server) registerTools() {
	desc := make(map[string]string, len(tools))
	for _, t := range tools {
		desc[t.Name] = t.Description
	}

	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolSearchRecords, Description: desc[ToolSearchRecords]},
		func(ctx context.Context, _ *mcp.CallToolRequest, in SearchRecordsInput) (*mcp.CallToolResult, SearchRecordsOutput, error) {
			out, err := s.searchRecords(ctx, in)
			return nil, out, err
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolFacetCounts, Description: desc[ToolFacetCounts]},
		func(ctx context.Context, _ *mcp.CallToolRequest, in FacetCountsInput) (*mcp.CallToolResult, FacetCountsOutput, error) {
			out, err := s.facetCounts(ctx, in)
			return nil, out, err
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolRecordKeys, Description: desc[ToolRecordKeys]},
		func(ctx context.Context, _ *mcp.CallToolRequest, in RecordKeysInput) (*mcp.CallToolResult, RecordKeysOutput, error) {
			out, err := s.recordKeys(ctx, in)
			return nil, out, err
		})
	mcp.AddTool(s.mcp, &mcp.Tool{Name: ToolListModels, Description: desc[ToolListModels]},
		func(context.Context, *mcp.CallToolRequest, ListModelsInput) (*mcp.CallToolResult, ListModelsOutput, error) {
			return nil, s.listModels(), nil
		})

	s.logger.Debug("mcp_tools_registered", slog.Int("count", len(tools)))
}

// Serve runs the server on the given transport until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, transport string) error {
	s.logger.Info("mcp_server_starting", slog.String("transport", transport))

	switch transport {
	case "stdio":
		err := s.mcp.Run(ctx, &mcp.StdioTransport{})
		if err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		} else {
			s.logger.Info("mcp_server_stopped")
		}
		return err
	default:
		return fmt.Errorf("unknown transport: %s (supported: stdio)", transport)
	}
}

// generateRequestID creates a short unique request ID for log correlation.
func generateRequestID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
