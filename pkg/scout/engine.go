package scout

import (
	"context"
	"sync"
)

// Document is one raw engine hit as returned in the response body.
type Document map[string]any

// RawResponse is an engine's unprocessed answer to a Query.
type RawResponse struct {
	// Body is the response payload in the Solr JSON envelope.
	Body []byte

	// IDs are the hit identifiers in engine order.
	IDs []string

	// Docs are the hits as decoded documents, in engine order.
	Docs []Document

	// Total is the number of matches for the unpaged query.
	Total int
}

// Engine executes queries against a search backend.
//
// Implementations must be safe for concurrent use.
type Engine[T any] interface {
	// Search runs the query and returns the raw response.
	Search(ctx context.Context, q *Query) (*RawResponse, error)

	// Keys returns the matching ids in engine order.
	Keys(ctx context.Context, q *Query) ([]string, error)

	// Get returns hydrated records in engine order.
	Get(ctx context.Context, q *Query) ([]T, error)

	// Paginate fetches one page of raw results. Page is 1-based.
	Paginate(ctx context.Context, q *Query, perPage, page int) (*RawResponse, error)

	// Map hydrates the hits of raw into records, keeping engine order.
	Map(ctx context.Context, q *Query, raw *RawResponse) ([]T, error)

	// TotalCount returns the unpaged match count reported in raw.
	TotalCount(raw *RawResponse) int
}

// Model describes a searchable record type.
type Model interface {
	// SearchableAs returns the default index name for the record type.
	SearchableAs() string

	// PerPage returns the default page size.
	PerPage() int
}

// Collector is implemented by models that wrap hydrated page items in
// their own collection.
type Collector[T any] interface {
	NewCollection(items []T) []T
}

// SoftDeletable is implemented by models whose records can be soft deleted.
type SoftDeletable interface {
	SoftDeletes() bool
}

// Resolver finds the engine responsible for a model.
type Resolver[T any] interface {
	Resolve(model Model) (Engine[T], error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc[T any] func(model Model) (Engine[T], error)

// Resolve calls f(model).
func (f ResolverFunc[T]) Resolve(model Model) (Engine[T], error) {
	return f(model)
}

// Registry resolves engines by the model's SearchableAs name, falling back
// to a default engine. Safe for concurrent use.
type Registry[T any] struct {
	mu       sync.RWMutex
	engines  map[string]Engine[T]
	fallback Engine[T]
}

// NewRegistry creates a registry with an optional default engine.
func NewRegistry[T any](fallback Engine[T]) *Registry[T] {
	return &Registry[T]{
		engines:  make(map[string]Engine[T]),
		fallback: fallback,
	}
}

// Register binds an engine to a model name.
func (r *Registry[T]) Register(name string, engine Engine[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.engines[name] = engine
}

// SetDefault replaces the fallback engine.
func (r *Registry[T]) SetDefault(engine Engine[T]) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = engine
}

// Names returns the registered model names.
func (r *Registry[T]) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.engines))
	for name := range r.engines {
		names = append(names, name)
	}
	return names
}

// Resolve implements Resolver.
func (r *Registry[T]) Resolve(model Model) (Engine[T], error) {
	if model == nil {
		return nil, engineUnavailable("<nil>", nil)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	name := model.SearchableAs()
	if engine, ok := r.engines[name]; ok && engine != nil {
		return engine, nil
	}
	if r.fallback != nil {
		return r.fallback, nil
	}
	return nil, engineUnavailable(name, nil)
}
