package solr

import (
	"context"
	"fmt"
	"net/url"

	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// DefaultRows is the page size used when a query sets no limit.
const DefaultRows = 10

// DefaultIDField is the uniqueKey field hits are identified by.
const DefaultIDField = "id"

// Tweak adapts a function over the select parameters to a
// scout.BeforeExecuteFunc. Other engines' requests are ignored.
func Tweak(fn func(params url.Values)) scout.BeforeExecuteFunc {
	return func(native any) {
		if params, ok := native.(url.Values); ok {
			fn(params)
		}
	}
}

type engineSettings struct {
	idField string
	rows    int
}

// EngineOption configures an Engine.
type EngineOption func(*engineSettings)

// WithIDField sets the uniqueKey field name.
func WithIDField(field string) EngineOption {
	return func(s *engineSettings) {
		if field != "" {
			s.idField = field
		}
	}
}

// WithDefaultRows sets the rows used when a query sets no limit.
func WithDefaultRows(rows int) EngineOption {
	return func(s *engineSettings) {
		if rows > 0 {
			s.rows = rows
		}
	}
}

// Engine implements scout.Engine over one Solr core.
type Engine[T any] struct {
	client  *Client
	core    string
	mapper  *scout.Mapper[T]
	idField string
	rows    int
}

// NewEngine creates an engine searching core by default. mapper hydrates hits.
func NewEngine[T any](client *Client, core string, mapper *scout.Mapper[T], opts ...EngineOption) *Engine[T] {
	s := engineSettings{idField: DefaultIDField, rows: DefaultRows}
	for _, opt := range opts {
		opt(&s)
	}
	return &Engine[T]{
		client:  client,
		core:    core,
		mapper:  mapper,
		idField: s.idField,
		rows:    s.rows,
	}
}

// Core returns the default core.
func (e *Engine[T]) Core() string {
	return e.core
}

// Search implements scout.Engine.
func (e *Engine[T]) Search(ctx context.Context, q *scout.Query) (*scout.RawResponse, error) {
	return e.run(ctx, q, BuildParams(q, e.limit(q), 0))
}

// Keys implements scout.Engine. Only the id field is requested.
func (e *Engine[T]) Keys(ctx context.Context, q *scout.Query) ([]string, error) {
	params := BuildParams(q, e.limit(q), 0)
	params.Set("fl", e.idField)
	raw, err := e.run(ctx, q, params)
	if err != nil {
		return nil, err
	}
	return raw.IDs, nil
}

// Get implements scout.Engine.
func (e *Engine[T]) Get(ctx context.Context, q *scout.Query) ([]T, error) {
	raw, err := e.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return e.Map(ctx, q, raw)
}

// Paginate implements scout.Engine. The query limit is ignored.
func (e *Engine[T]) Paginate(ctx context.Context, q *scout.Query, perPage, page int) (*scout.RawResponse, error) {
	if page < 1 {
		page = 1
	}
	return e.run(ctx, q, BuildParams(q, perPage, (page-1)*perPage))
}

// Map implements scout.Engine.
func (e *Engine[T]) Map(ctx context.Context, q *scout.Query, raw *scout.RawResponse) ([]T, error) {
	if e.mapper == nil {
		return nil, fmt.Errorf("solr engine for core %s has no mapper", e.core)
	}
	return e.mapper.Map(ctx, q, raw)
}

// TotalCount implements scout.Engine.
func (e *Engine[T]) TotalCount(raw *scout.RawResponse) int {
	if raw == nil {
		return 0
	}
	return raw.Total
}

func (e *Engine[T]) run(ctx context.Context, q *scout.Query, params url.Values) (*scout.RawResponse, error) {
	if q.BeforeExecute != nil {
		q.BeforeExecute(params)
	}

	core := q.Index
	if core == "" {
		core = e.core
	}

	body, resp, err := e.client.Select(ctx, core, params)
	if err != nil {
		return nil, fmt.Errorf("solr select on %s: %w", core, err)
	}
	return ToRaw(body, resp, e.idField), nil
}

// limit returns rows for a non-paginated request. Solr rejects negative
// rows, so a negative limit falls back to the default; zero is kept and
// yields counts and facets without documents.
func (e *Engine[T]) limit(q *scout.Query) int {
	if q.Limit == nil || *q.Limit < 0 {
		return e.rows
	}
	return *q.Limit
}
