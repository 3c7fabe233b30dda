package telemetry

import (
	"context"
	"time"

	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// Engine records a QueryEvent for every call made through it.
// Map and TotalCount are passed through unrecorded.
type Engine[T any] struct {
	inner   scout.Engine[T]
	metrics *QueryMetrics
	model   string
}

// Verify interface implementation at compile time
var _ scout.Engine[struct{}] = (*Engine[struct{}])(nil)

// Instrument wraps inner so its calls are recorded under model.
func Instrument[T any](inner scout.Engine[T], metrics *QueryMetrics, model string) *Engine[T] {
	return &Engine[T]{inner: inner, metrics: metrics, model: model}
}

// Search implements scout.Engine.
func (e *Engine[T]) Search(ctx context.Context, q *scout.Query) (*scout.RawResponse, error) {
	start := time.Now()
	raw, err := e.inner.Search(ctx, q)
	e.record(OpSearch, q, start, e.total(raw), err)
	return raw, err
}

// Keys implements scout.Engine.
func (e *Engine[T]) Keys(ctx context.Context, q *scout.Query) ([]string, error) {
	start := time.Now()
	ids, err := e.inner.Keys(ctx, q)
	e.record(OpKeys, q, start, len(ids), err)
	return ids, err
}

// Get implements scout.Engine.
func (e *Engine[T]) Get(ctx context.Context, q *scout.Query) ([]T, error) {
	start := time.Now()
	items, err := e.inner.Get(ctx, q)
	e.record(OpGet, q, start, len(items), err)
	return items, err
}

// Paginate implements scout.Engine.
func (e *Engine[T]) Paginate(ctx context.Context, q *scout.Query, perPage, page int) (*scout.RawResponse, error) {
	start := time.Now()
	raw, err := e.inner.Paginate(ctx, q, perPage, page)
	e.record(OpPaginate, q, start, e.total(raw), err)
	return raw, err
}

// Map implements scout.Engine.
func (e *Engine[T]) Map(ctx context.Context, q *scout.Query, raw *scout.RawResponse) ([]T, error) {
	return e.inner.Map(ctx, q, raw)
}

// TotalCount implements scout.Engine.
func (e *Engine[T]) TotalCount(raw *scout.RawResponse) int {
	return e.inner.TotalCount(raw)
}

func (e *Engine[T]) total(raw *scout.RawResponse) int {
	if raw == nil {
		return 0
	}
	return e.inner.TotalCount(raw)
}

func (e *Engine[T]) record(op Operation, q *scout.Query, start time.Time, count int, err error) {
	if e.metrics == nil {
		return
	}
	e.metrics.Record(QueryEvent{
		Model:       e.model,
		Query:       q.Text,
		Operation:   op,
		ResultCount: count,
		Latency:     time.Since(start),
		Failed:      err != nil,
		Timestamp:   start,
	})
}
