package scout

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Accumulation
// =============================================================================

func TestBuilder_Where_LastWriteWins(t *testing.T) {
	b := newBuilder(&MockEngine{}, "")

	b.Where("brand", "acme").Where("size", 42).Where("brand", "globex").Where("brand", "initech")

	assert.Equal(t, map[string]any{"brand": "initech", "size": 42}, b.Spec().Wheres)
}

func TestBuilder_Filter_AppendsOneGroupPerCall(t *testing.T) {
	b := newBuilder(&MockEngine{}, "")

	b.Filter("color", "red").
		Filter("color", "blue", "green").
		Filter("size", []int{40, 41}).
		Filter("color", "red")

	require.Len(t, b.Spec().Filters, 4)
	assert.Equal(t, FilterGroup{Field: "color", Values: []any{"red"}}, b.Spec().Filters[0])
	assert.Equal(t, FilterGroup{Field: "color", Values: []any{"blue", "green"}}, b.Spec().Filters[1])
	assert.Equal(t, FilterGroup{Field: "size", Values: []any{40, 41}}, b.Spec().Filters[2])
	assert.Equal(t, FilterGroup{Field: "color", Values: []any{"red"}}, b.Spec().Filters[3])
}

func TestBuilder_Facet_PreservesDuplicates(t *testing.T) {
	b := newBuilder(&MockEngine{}, "")

	b.Facet("color").Facet("brand").Facet("color")

	assert.Equal(t, []string{"color", "brand", "color"}, b.Spec().Facets)
}

func TestBuilder_SoftDelete(t *testing.T) {
	t.Run("soft deletable model starts excluding deleted", func(t *testing.T) {
		b := New[item](fakeModel{name: "p", softDeletes: true}, nil, "")
		assert.Equal(t, ExcludeDeleted, b.Spec().SoftDelete)
	})

	t.Run("plain model starts with no filtering", func(t *testing.T) {
		b := New[item](fakeModel{name: "p"}, nil, "")
		assert.Equal(t, IncludeAll, b.Spec().SoftDelete)
	})

	t.Run("option overrides model", func(t *testing.T) {
		b := New[item](fakeModel{name: "p", softDeletes: true}, nil, "", WithSoftDelete(false))
		assert.Equal(t, IncludeAll, b.Spec().SoftDelete)
	})

	t.Run("only trashed composes idempotently", func(t *testing.T) {
		once := New[item](fakeModel{name: "p", softDeletes: true}, nil, "").OnlyTrashed()
		repeated := New[item](fakeModel{name: "p", softDeletes: true}, nil, "").
			OnlyTrashed().WithTrashed().OnlyTrashed()

		assert.Equal(t, OnlyDeleted, once.Spec().SoftDelete)
		assert.Equal(t, once.Spec().SoftDelete, repeated.Spec().SoftDelete)
		v, ok := repeated.Spec().SoftDelete.Value()
		assert.True(t, ok)
		assert.Equal(t, 1, v)
	})

	t.Run("with trashed removes filtering", func(t *testing.T) {
		b := New[item](fakeModel{name: "p", softDeletes: true}, nil, "").WithTrashed()
		_, ok := b.Spec().SoftDelete.Value()
		assert.False(t, ok)
	})

	t.Run("where on the reserved name is an ordinary where", func(t *testing.T) {
		b := New[item](fakeModel{name: "p", softDeletes: true}, nil, "").Where(SoftDeletedField, "x")
		assert.Equal(t, ExcludeDeleted, b.Spec().SoftDelete)
		assert.Equal(t, "x", b.Spec().Wheres[SoftDeletedField])
	})
}

func TestBuilder_OrderBy_NormalizesDirection(t *testing.T) {
	b := newBuilder(&MockEngine{}, "")

	b.OrderBy("name", "DESC").OrderBy("name", "asc").OrderBy("name", "ASC").OrderBy("price", "sideways")

	assert.Equal(t, []Order{
		{Column: "name", Direction: Desc},
		{Column: "name", Direction: Asc},
		{Column: "name", Direction: Asc},
		{Column: "price", Direction: Desc},
	}, b.Spec().Orders)
}

func TestBuilder_SortBy_Overwrites(t *testing.T) {
	b := newBuilder(&MockEngine{}, "")

	b.SortBy("price", "ASC").SortBy("name", "Desc")

	assert.Equal(t, "name desc", b.Spec().Sort)
	assert.Empty(t, b.Spec().Orders)
}

func TestBuilder_TakeAndWithin(t *testing.T) {
	b := newBuilder(&MockEngine{}, "").Take(-5).Within("products_v2")

	require.NotNil(t, b.Spec().Limit)
	assert.Equal(t, -5, *b.Spec().Limit)
	assert.Equal(t, "products_v2", b.Spec().Index)
}

func TestBuilder_When(t *testing.T) {
	t.Run("false without fallback leaves state unchanged", func(t *testing.T) {
		b := newBuilder(&MockEngine{}, "shoes").Where("brand", "acme")
		before := b.Spec().Clone()

		out := b.When(false, func(b *Builder[item], _ bool) *Builder[item] {
			return b.Where("brand", "changed")
		}, nil)

		assert.Same(t, b, out)
		assert.Equal(t, before.Wheres, b.Spec().Wheres)
		assert.Equal(t, before.Fingerprint(), b.Spec().Fingerprint())
	})

	t.Run("true applies callback with the condition", func(t *testing.T) {
		b := newBuilder(&MockEngine{}, "")
		var got bool

		out := b.When(true, func(b *Builder[item], cond bool) *Builder[item] {
			got = cond
			b.Facet("color")
			return nil
		}, nil)

		assert.Same(t, b, out)
		assert.True(t, got)
		assert.Equal(t, []string{"color"}, b.Spec().Facets)
	})

	t.Run("false runs fallback", func(t *testing.T) {
		b := newBuilder(&MockEngine{}, "")

		b.When(false, func(b *Builder[item], _ bool) *Builder[item] {
			return b.Facet("primary")
		}, func(b *Builder[item], cond bool) *Builder[item] {
			assert.False(t, cond)
			return b.Facet("fallback")
		})

		assert.Equal(t, []string{"fallback"}, b.Spec().Facets)
	})

	t.Run("callback result replaces the builder", func(t *testing.T) {
		b := newBuilder(&MockEngine{}, "")
		other := newBuilder(&MockEngine{}, "other")

		out := b.Tap(func(*Builder[item], bool) *Builder[item] { return other })

		assert.Same(t, other, out)
	})
}

func TestBuilder_Query_SetsHydrationCallback(t *testing.T) {
	b := newBuilder(&MockEngine{}, "")

	b.Query(func(rq *RecordQuery) { rq.WhereNotNull("published_at") })

	rq := &RecordQuery{}
	b.Spec().QueryCallback(rq)
	assert.Equal(t, []Clause{{Column: "published_at", Op: OpNotNull}}, rq.Clauses)
}

// =============================================================================
// Terminal operations
// =============================================================================

func TestBuilder_Terminals_EngineUnavailable(t *testing.T) {
	ctx := context.Background()
	b := New[item](fakeModel{name: "orphans"}, NewRegistry[item](nil), "")

	_, err := b.Raw(ctx)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	_, err = b.Keys(ctx)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	_, err = b.Get(ctx)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	_, err = b.First(ctx)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	_, err = b.Paginate(ctx, 10, "page", 1)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	_, err = b.PaginateRaw(ctx, 10, "page", 1)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
	_, err = b.Facets(ctx)
	assert.ErrorIs(t, err, ErrEngineUnavailable)

	nilResolver := New[item](fakeModel{name: "orphans"}, nil, "")
	_, err = nilResolver.Keys(ctx)
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestBuilder_Terminals_ResolverFailure(t *testing.T) {
	// Given: a resolver that fails with its own error
	cause := errors.New("no engine for model")
	resolver := ResolverFunc[item](func(Model) (Engine[item], error) { return nil, cause })
	b := New[item](fakeModel{name: "orphans"}, resolver, "")

	// When: running terminal operations
	_, keysErr := b.Keys(context.Background())
	_, facetsErr := b.Facets(context.Background())

	// Then: both report an unavailable engine and keep the cause
	for _, err := range []error{keysErr, facetsErr} {
		assert.ErrorIs(t, err, ErrEngineUnavailable)
		assert.ErrorIs(t, err, cause)
	}

	// And a nil engine with no error is unavailable too
	nilEngine := New[item](fakeModel{name: "orphans"},
		ResolverFunc[item](func(Model) (Engine[item], error) { return nil, nil }), "")
	_, err := nilEngine.Get(context.Background())
	assert.ErrorIs(t, err, ErrEngineUnavailable)
}

func TestBuilder_KeysAndGet_Delegate(t *testing.T) {
	engine := &MockEngine{
		KeysFn: func(_ context.Context, q *Query) ([]string, error) {
			assert.Equal(t, "shoes", q.Text)
			return []string{"3", "1", "2"}, nil
		},
		GetFn: func(context.Context, *Query) ([]item, error) {
			return []item{{ID: "3"}, {ID: "1"}}, nil
		},
	}
	b := newBuilder(engine, "shoes")

	keys, err := b.Keys(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"3", "1", "2"}, keys)

	first, err := b.First(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "3", first.ID)
}

func TestBuilder_First_NotFound(t *testing.T) {
	b := newBuilder(&MockEngine{}, "nothing")

	_, err := b.First(context.Background())

	assert.ErrorIs(t, err, ErrRecordNotFound)
}

func TestBuilder_Paginate_RequestsExactPage(t *testing.T) {
	// Given: an engine reporting 47 total matches
	engine := &MockEngine{
		PaginateFn: func(_ context.Context, _ *Query, perPage, page int) (*RawResponse, error) {
			return &RawResponse{IDs: []string{"11", "12"}, Total: 47}, nil
		},
	}
	b := newBuilder(engine, "shoes", WithRequestContext(FixedRequest{Page: 9, Path: "/search"}))

	// When: paginating with explicit size and page
	p, err := b.Paginate(context.Background(), 10, "page", 2)

	// Then: exactly page 2 of size 10 is requested and the total is the engine total
	require.NoError(t, err)
	assert.Equal(t, 10, engine.lastPerPage)
	assert.Equal(t, 2, engine.lastPage)
	assert.Equal(t, 47, p.Total)
	assert.Equal(t, 10, p.PerPage)
	assert.Equal(t, 2, p.CurrentPage)
	assert.Equal(t, []item{{ID: "11"}, {ID: "12"}}, p.Items)
}

func TestBuilder_Paginate_Defaults(t *testing.T) {
	engine := &MockEngine{}
	b := newBuilder(engine, "", WithRequestContext(FixedRequest{Page: 3, Path: "/p"}))

	p, err := b.Paginate(context.Background(), 0, "", 0)

	require.NoError(t, err)
	assert.Equal(t, 15, engine.lastPerPage)
	assert.Equal(t, 3, engine.lastPage)
	assert.Equal(t, "page", p.PageName)
	assert.Equal(t, "/p", p.Path)
}

func TestBuilder_Paginate_LinksCarryQuery(t *testing.T) {
	engine := &MockEngine{
		PaginateFn: func(context.Context, *Query, int, int) (*RawResponse, error) {
			return &RawResponse{IDs: []string{"1"}, Total: 30}, nil
		},
	}
	b := newBuilder(engine, "shoes", WithRequestContext(FixedRequest{Path: "/search/products"}))

	p, err := b.Paginate(context.Background(), 10, "page", 2)
	require.NoError(t, err)

	assert.Contains(t, p.NextPageURL(), "query=shoes")
	assert.Contains(t, p.PreviousPageURL(), "query=shoes")
	assert.Equal(t, "/search/products?page=3&query=shoes", p.NextPageURL())
}

func TestBuilder_Paginate_UsesCollector(t *testing.T) {
	engine := &MockEngine{
		PaginateFn: func(context.Context, *Query, int, int) (*RawResponse, error) {
			return &RawResponse{IDs: []string{"a"}, Total: 1}, nil
		},
	}
	model := &collectingModel{fakeModel: fakeModel{name: "products", perPage: 5}}
	b := New[item](model, ResolverFunc[item](func(Model) (Engine[item], error) { return engine, nil }), "")

	p, err := b.Paginate(context.Background(), 0, "", 1)

	require.NoError(t, err)
	assert.Equal(t, 1, model.collected)
	assert.Equal(t, []item{{ID: "header"}, {ID: "a"}}, p.Items)
}

func TestBuilder_Paginate_PropagatesErrors(t *testing.T) {
	boom := errors.New("boom")
	engine := &MockEngine{
		MapFn: func(context.Context, *Query, *RawResponse) ([]item, error) { return nil, boom },
	}

	_, err := newBuilder(engine, "").Paginate(context.Background(), 10, "", 1)

	assert.ErrorIs(t, err, boom)
}

func TestBuilder_PaginateRaw_SkipsHydration(t *testing.T) {
	engine := &MockEngine{
		PaginateFn: func(context.Context, *Query, int, int) (*RawResponse, error) {
			return &RawResponse{Docs: []Document{{"id": "1", "name": "boot"}}, Total: 12}, nil
		},
		MapFn: func(context.Context, *Query, *RawResponse) ([]item, error) {
			t.Fatal("Map must not be called")
			return nil, nil
		},
	}

	p, err := newBuilder(engine, "boot").PaginateRaw(context.Background(), 5, "p", 1)

	require.NoError(t, err)
	assert.Equal(t, 12, p.Total)
	assert.Equal(t, "boot", p.Items[0]["name"])
	assert.Equal(t, "boot", p.Query().Get("query"))
	assert.Equal(t, "p", p.PageName)
}

func TestBuilder_Facets(t *testing.T) {
	engine := &MockEngine{
		SearchFn: func(_ context.Context, q *Query) (*RawResponse, error) {
			assert.Equal(t, []string{"color"}, q.Facets)
			return &RawResponse{Body: []byte(`{"facet_counts":{"facet_fields":{"color":["red",3,"blue",5]}}}`)}, nil
		},
	}

	facets, err := newBuilder(engine, "").Facet("color").Facets(context.Background())

	require.NoError(t, err)
	assert.Equal(t, Facets{"color": {"red": 3, "blue": 5}}, facets)
}

func TestBuilder_Facets_MalformedBody(t *testing.T) {
	engine := &MockEngine{
		SearchFn: func(context.Context, *Query) (*RawResponse, error) {
			return &RawResponse{Body: []byte(`<html>`)}, nil
		},
	}

	_, err := newBuilder(engine, "").Facets(context.Background())

	assert.ErrorIs(t, err, ErrMalformedResponse)
}

func TestBuilder_BeforeExecuteIsCarried(t *testing.T) {
	var seen any
	engine := &MockEngine{
		SearchFn: func(_ context.Context, q *Query) (*RawResponse, error) {
			q.BeforeExecute("native")
			return &RawResponse{Body: []byte(`{}`)}, nil
		},
	}

	_, err := newBuilder(engine, "", WithBeforeExecute(func(native any) { seen = native })).Raw(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "native", seen)
}

func TestValues(t *testing.T) {
	assert.Equal(t, []any{"a", "b"}, Values([]string{"a", "b"}))
	assert.Equal(t, []any{1, 2}, Values([2]int{1, 2}))
	assert.Equal(t, []any{"red"}, Values("red"))
	assert.Equal(t, []any{[]byte("raw")}, Values([]byte("raw")))
	assert.Equal(t, []any{nil}, Values(nil))
	assert.Empty(t, Values([]string{}))
}
