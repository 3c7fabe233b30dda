package scout

import (
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"time"
)

// Conditional is a callback for When and Tap. Returning nil means the
// builder passed in.
type Conditional[T any] func(b *Builder[T], cond bool) *Builder[T]

// settings collects Builder options.
type settings struct {
	beforeExecute BeforeExecuteFunc
	requests      RequestContext
	softDelete    *bool
	logger        *slog.Logger
}

// Option configures a Builder.
type Option func(*settings)

// WithBeforeExecute sets the hook that receives the engine-native request.
func WithBeforeExecute(fn BeforeExecuteFunc) Option {
	return func(s *settings) {
		s.beforeExecute = fn
	}
}

// WithRequestContext sets where default page and path come from.
// Default: HTTPRequestContext.
func WithRequestContext(rc RequestContext) Option {
	return func(s *settings) {
		s.requests = rc
	}
}

// WithSoftDelete overrides whether the builder starts excluding soft-deleted
// documents. By default this follows the model's SoftDeletable answer.
func WithSoftDelete(enabled bool) Option {
	return func(s *settings) {
		s.softDelete = &enabled
	}
}

// WithLogger sets the logger used for terminal operations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// Builder accumulates a Query for one model and runs it.
//
// Configuration methods mutate the builder and return it for chaining.
// A Builder is not safe for concurrent use.
type Builder[T any] struct {
	model    Model
	resolver Resolver[T]
	query    *Query
	requests RequestContext
	logger   *slog.Logger
}

// New creates a builder searching model for text through the engine that
// resolver returns for it.
func New[T any](model Model, resolver Resolver[T], text string, opts ...Option) *Builder[T] {
	s := settings{}
	for _, opt := range opts {
		opt(&s)
	}

	softDelete := false
	if sd, ok := model.(SoftDeletable); ok {
		softDelete = sd.SoftDeletes()
	}
	if s.softDelete != nil {
		softDelete = *s.softDelete
	}

	q := &Query{
		Text:          text,
		Wheres:        map[string]any{},
		BeforeExecute: s.beforeExecute,
	}
	if softDelete {
		q.SoftDelete = ExcludeDeleted
	}

	if s.requests == nil {
		s.requests = HTTPRequestContext{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}

	return &Builder[T]{
		model:    model,
		resolver: resolver,
		query:    q,
		requests: s.requests,
		logger:   s.logger,
	}
}

// Model returns the model being searched.
func (b *Builder[T]) Model() Model {
	return b.model
}

// Spec returns the accumulated query. Engines receive the same value.
func (b *Builder[T]) Spec() *Query {
	return b.query
}

// Within searches a custom index instead of the model's default.
func (b *Builder[T]) Within(index string) *Builder[T] {
	b.query.Index = index
	return b
}

// Filter appends a filter group. Multiple values are OR-ed; separate Filter
// calls are AND-ed. A single slice argument is expanded into its elements.
func (b *Builder[T]) Filter(field string, values ...any) *Builder[T] {
	if len(values) == 1 {
		values = Values(values[0])
	}
	b.query.Filters = append(b.query.Filters, FilterGroup{Field: field, Values: values})
	return b
}

// Facet requests value counts for field.
func (b *Builder[T]) Facet(field string) *Builder[T] {
	b.query.Facets = append(b.query.Facets, field)
	return b
}

// Where adds an exact-match constraint, replacing any previous value for field.
func (b *Builder[T]) Where(field string, value any) *Builder[T] {
	b.query.Wheres[field] = value
	return b
}

// WithTrashed includes soft-deleted documents.
func (b *Builder[T]) WithTrashed() *Builder[T] {
	b.query.SoftDelete = IncludeAll
	return b
}

// OnlyTrashed restricts the search to soft-deleted documents.
func (b *Builder[T]) OnlyTrashed() *Builder[T] {
	b.WithTrashed()
	b.query.SoftDelete = OnlyDeleted
	return b
}

// Take sets the result limit. The value is passed to the engine unchecked.
func (b *Builder[T]) Take(limit int) *Builder[T] {
	b.query.Limit = &limit
	return b
}

// OrderBy appends a generic sort pair.
func (b *Builder[T]) OrderBy(column, direction string) *Builder[T] {
	b.query.Orders = append(b.query.Orders, Order{Column: column, Direction: NormalizeDirection(direction)})
	return b
}

// SortBy sets the engine-native sort expression, replacing the previous one.
func (b *Builder[T]) SortBy(column, direction string) *Builder[T] {
	b.query.Sort = column + " " + string(NormalizeDirection(direction))
	return b
}

// When applies callback if cond is true, otherwise fallback if it is set.
// The callback result is returned unless it is nil.
func (b *Builder[T]) When(cond bool, callback, fallback Conditional[T]) *Builder[T] {
	var fn Conditional[T]
	switch {
	case cond:
		fn = callback
	case fallback != nil:
		fn = fallback
	default:
		return b
	}
	if fn == nil {
		return b
	}
	if out := fn(b, cond); out != nil {
		return out
	}
	return b
}

// Tap applies callback unconditionally.
func (b *Builder[T]) Tap(callback Conditional[T]) *Builder[T] {
	return b.When(true, callback, nil)
}

// Query sets the callback that constrains record store lookups during
// hydration. It does not affect the engine request.
func (b *Builder[T]) Query(callback func(*RecordQuery)) *Builder[T] {
	b.query.QueryCallback = callback
	return b
}

// Raw returns the unprocessed engine response.
func (b *Builder[T]) Raw(ctx context.Context) (*RawResponse, error) {
	engine, err := b.engine()
	if err != nil {
		return nil, err
	}
	defer b.trace("raw", time.Now())
	return engine.Search(ctx, b.query)
}

// Keys returns the ids of matching records in engine order.
func (b *Builder[T]) Keys(ctx context.Context) ([]string, error) {
	engine, err := b.engine()
	if err != nil {
		return nil, err
	}
	defer b.trace("keys", time.Now())
	return engine.Keys(ctx, b.query)
}

// Get returns the hydrated records in engine order.
func (b *Builder[T]) Get(ctx context.Context) ([]T, error) {
	engine, err := b.engine()
	if err != nil {
		return nil, err
	}
	defer b.trace("get", time.Now())
	return engine.Get(ctx, b.query)
}

// First returns the first record, or ErrRecordNotFound.
func (b *Builder[T]) First(ctx context.Context) (T, error) {
	var zero T
	items, err := b.Get(ctx)
	if err != nil {
		return zero, err
	}
	if len(items) == 0 {
		return zero, ErrRecordNotFound
	}
	return items[0], nil
}

// Paginate fetches one page and hydrates it. A zero perPage or page and an
// empty pageName fall back to the model page size, the request context and
// DefaultPageName.
func (b *Builder[T]) Paginate(ctx context.Context, perPage int, pageName string, page int) (*Paginator[T], error) {
	engine, err := b.engine()
	if err != nil {
		return nil, err
	}
	defer b.trace("paginate", time.Now())

	perPage, pageName, page = b.resolvePage(ctx, perPage, pageName, page)

	raw, err := engine.Paginate(ctx, b.query, perPage, page)
	if err != nil {
		return nil, err
	}
	items, err := engine.Map(ctx, b.query, raw)
	if err != nil {
		return nil, err
	}
	if c, ok := b.model.(Collector[T]); ok {
		items = c.NewCollection(items)
	}

	p := NewPaginator(items, engine.TotalCount(raw), perPage, page, b.requests.CurrentPath(ctx), pageName)
	return p.Appends("query", b.query.Text), nil
}

// PaginateRaw is Paginate without hydration: items are the raw documents.
func (b *Builder[T]) PaginateRaw(ctx context.Context, perPage int, pageName string, page int) (*Paginator[Document], error) {
	engine, err := b.engine()
	if err != nil {
		return nil, err
	}
	defer b.trace("paginate_raw", time.Now())

	perPage, pageName, page = b.resolvePage(ctx, perPage, pageName, page)

	raw, err := engine.Paginate(ctx, b.query, perPage, page)
	if err != nil {
		return nil, err
	}

	p := NewPaginator(raw.Docs, engine.TotalCount(raw), perPage, page, b.requests.CurrentPath(ctx), pageName)
	return p.Appends("query", b.query.Text), nil
}

// Facets returns value counts for the requested facet fields across the
// whole result set.
func (b *Builder[T]) Facets(ctx context.Context) (Facets, error) {
	engine, err := b.engine()
	if err != nil {
		return nil, err
	}
	defer b.trace("facets", time.Now())

	raw, err := engine.Search(ctx, b.query)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, malformed("engine returned no response", nil)
	}
	return ParseFacets(raw.Body)
}

func (b *Builder[T]) resolvePage(ctx context.Context, perPage int, pageName string, page int) (int, string, int) {
	if pageName == "" {
		pageName = DefaultPageName
	}
	if page == 0 {
		page = b.requests.CurrentPage(ctx, pageName)
	}
	if perPage == 0 {
		perPage = b.model.PerPage()
	}
	return perPage, pageName, page
}

func (b *Builder[T]) engine() (Engine[T], error) {
	if b.model == nil {
		return nil, engineUnavailable("<nil>", nil)
	}
	name := b.model.SearchableAs()
	if b.resolver == nil {
		return nil, engineUnavailable(name, nil)
	}
	engine, err := b.resolver.Resolve(b.model)
	if err != nil {
		if errors.Is(err, ErrEngineUnavailable) {
			return nil, err
		}
		return nil, engineUnavailable(name, err)
	}
	if engine == nil {
		return nil, engineUnavailable(name, nil)
	}
	return engine, nil
}

func (b *Builder[T]) trace(op string, start time.Time) {
	b.logger.Debug("search_executed",
		slog.String("op", op),
		slog.String("model", b.model.SearchableAs()),
		slog.String("index", b.query.Index),
		slog.Int("filters", len(b.query.Filters)),
		slog.Int("facets", len(b.query.Facets)),
		slog.Duration("duration", time.Since(start)))
}

// NormalizeDirection maps "asc" in any case to Asc and everything else to Desc.
func NormalizeDirection(direction string) Direction {
	if strings.EqualFold(direction, "asc") {
		return Asc
	}
	return Desc
}

// Values returns the elements of a slice or array, or v alone for any
// other value. Byte slices stay whole.
func Values(v any) []any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return []any{v}
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return []any{v}
	}
	if rv.Type().Elem().Kind() == reflect.Uint8 {
		return []any{v}
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}
