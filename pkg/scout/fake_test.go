package scout

import (
	"context"
)

type item struct {
	ID   string
	Name string
}

// fakeModel implements Model, SoftDeletable and optionally Collector.
type fakeModel struct {
	name        string
	perPage     int
	softDeletes bool
}

func (m fakeModel) SearchableAs() string { return m.name }
func (m fakeModel) PerPage() int         { return m.perPage }
func (m fakeModel) SoftDeletes() bool    { return m.softDeletes }

type collectingModel struct {
	fakeModel
	collected int
}

func (m *collectingModel) NewCollection(items []item) []item {
	m.collected++
	return append([]item{{ID: "header"}}, items...)
}

// MockEngine implements Engine[item] for testing.
type MockEngine struct {
	SearchFn   func(ctx context.Context, q *Query) (*RawResponse, error)
	KeysFn     func(ctx context.Context, q *Query) ([]string, error)
	GetFn      func(ctx context.Context, q *Query) ([]item, error)
	PaginateFn func(ctx context.Context, q *Query, perPage, page int) (*RawResponse, error)
	MapFn      func(ctx context.Context, q *Query, raw *RawResponse) ([]item, error)

	lastPerPage int
	lastPage    int
}

func (m *MockEngine) Search(ctx context.Context, q *Query) (*RawResponse, error) {
	if m.SearchFn != nil {
		return m.SearchFn(ctx, q)
	}
	return &RawResponse{Body: []byte(`{}`)}, nil
}

func (m *MockEngine) Keys(ctx context.Context, q *Query) ([]string, error) {
	if m.KeysFn != nil {
		return m.KeysFn(ctx, q)
	}
	return nil, nil
}

func (m *MockEngine) Get(ctx context.Context, q *Query) ([]item, error) {
	if m.GetFn != nil {
		return m.GetFn(ctx, q)
	}
	return nil, nil
}

func (m *MockEngine) Paginate(ctx context.Context, q *Query, perPage, page int) (*RawResponse, error) {
	m.lastPerPage, m.lastPage = perPage, page
	if m.PaginateFn != nil {
		return m.PaginateFn(ctx, q, perPage, page)
	}
	return &RawResponse{}, nil
}

func (m *MockEngine) Map(ctx context.Context, q *Query, raw *RawResponse) ([]item, error) {
	if m.MapFn != nil {
		return m.MapFn(ctx, q, raw)
	}
	items := make([]item, len(raw.IDs))
	for i, id := range raw.IDs {
		items[i] = item{ID: id}
	}
	return items, nil
}

func (m *MockEngine) TotalCount(raw *RawResponse) int {
	return raw.Total
}

func newBuilder(e *MockEngine, text string, opts ...Option) *Builder[item] {
	reg := NewRegistry[item](nil)
	reg.Register("products", e)
	return New[item](fakeModel{name: "products", perPage: 15}, reg, text, opts...)
}
