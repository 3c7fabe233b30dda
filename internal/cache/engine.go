package cache

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strconv"

	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// Engine memoises an engine's raw responses by query fingerprint.
//
// Hydration is never cached: Get and Map always reach the record store.
// Queries with a BeforeExecute hook bypass the cache, since the hook can
// change the request in ways the fingerprint does not see. Backend errors
// are logged and treated as misses.
type Engine[T any] struct {
	inner     scout.Engine[T]
	backend   Backend
	namespace string
}

// Verify interface implementation at compile time
var _ scout.Engine[struct{}] = (*Engine[struct{}])(nil)

// Wrap returns inner decorated with backend. namespace keeps engines for
// different models apart in a shared backend.
func Wrap[T any](inner scout.Engine[T], backend Backend, namespace string) *Engine[T] {
	return &Engine[T]{inner: inner, backend: backend, namespace: namespace}
}

// Inner returns the wrapped engine.
func (e *Engine[T]) Inner() scout.Engine[T] {
	return e.inner
}

// Search implements scout.Engine.
func (e *Engine[T]) Search(ctx context.Context, q *scout.Query) (*scout.RawResponse, error) {
	return e.raw(ctx, q, "search", func() (*scout.RawResponse, error) {
		return e.inner.Search(ctx, q)
	})
}

// Keys implements scout.Engine.
func (e *Engine[T]) Keys(ctx context.Context, q *scout.Query) ([]string, error) {
	if q.BeforeExecute != nil {
		return e.inner.Keys(ctx, q)
	}

	key := e.key("keys", q)
	if data, ok := e.lookup(ctx, key); ok {
		var ids []string
		if err := json.Unmarshal(data, &ids); err == nil {
			return ids, nil
		}
	}

	ids, err := e.inner.Keys(ctx, q)
	if err != nil {
		return nil, err
	}
	e.store(ctx, key, ids)
	return ids, nil
}

// Get implements scout.Engine on top of the cached Search.
func (e *Engine[T]) Get(ctx context.Context, q *scout.Query) ([]T, error) {
	raw, err := e.Search(ctx, q)
	if err != nil {
		return nil, err
	}
	return e.inner.Map(ctx, q, raw)
}

// Paginate implements scout.Engine.
func (e *Engine[T]) Paginate(ctx context.Context, q *scout.Query, perPage, page int) (*scout.RawResponse, error) {
	op := "page:" + strconv.Itoa(perPage) + ":" + strconv.Itoa(page)
	return e.raw(ctx, q, op, func() (*scout.RawResponse, error) {
		return e.inner.Paginate(ctx, q, perPage, page)
	})
}

// Map implements scout.Engine.
func (e *Engine[T]) Map(ctx context.Context, q *scout.Query, raw *scout.RawResponse) ([]T, error) {
	return e.inner.Map(ctx, q, raw)
}

// TotalCount implements scout.Engine.
func (e *Engine[T]) TotalCount(raw *scout.RawResponse) int {
	return e.inner.TotalCount(raw)
}

func (e *Engine[T]) raw(ctx context.Context, q *scout.Query, op string, fetch func() (*scout.RawResponse, error)) (*scout.RawResponse, error) {
	if q.BeforeExecute != nil {
		return fetch()
	}

	key := e.key(op, q)
	if data, ok := e.lookup(ctx, key); ok {
		var raw scout.RawResponse
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.UseNumber()
		if err := dec.Decode(&raw); err == nil {
			return &raw, nil
		}
	}

	raw, err := fetch()
	if err != nil {
		return nil, err
	}
	e.store(ctx, key, raw)
	return raw, nil
}

func (e *Engine[T]) key(op string, q *scout.Query) string {
	return e.namespace + ":" + op + ":" + q.Fingerprint()
}

func (e *Engine[T]) lookup(ctx context.Context, key string) ([]byte, bool) {
	data, ok, err := e.backend.Get(ctx, key)
	if err != nil {
		slog.Warn("cache_get_failed", slog.String("key", key), slog.String("error", err.Error()))
		return nil, false
	}
	return data, ok
}

func (e *Engine[T]) store(ctx context.Context, key string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Warn("cache_encode_failed", slog.String("key", key), slog.String("error", err.Error()))
		return
	}
	if err := e.backend.Set(ctx, key, data); err != nil {
		slog.Warn("cache_set_failed", slog.String("key", key), slog.String("error", err.Error()))
	}
}
