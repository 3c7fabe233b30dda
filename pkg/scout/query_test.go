package scout

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuery_CloneIsDeep(t *testing.T) {
	limit := 5
	q := &Query{
		Text:    "shoes",
		Wheres:  map[string]any{"brand": "acme"},
		Filters: []FilterGroup{{Field: "color", Values: []any{"red"}}},
		Facets:  []string{"color"},
		Orders:  []Order{{Column: "name", Direction: Asc}},
		Limit:   &limit,
	}

	c := q.Clone()
	c.Wheres["brand"] = "globex"
	c.Filters[0].Values[0] = "blue"
	c.Facets[0] = "size"
	*c.Limit = 9

	assert.Equal(t, "acme", q.Wheres["brand"])
	assert.Equal(t, "red", q.Filters[0].Values[0])
	assert.Equal(t, "color", q.Facets[0])
	assert.Equal(t, 5, *q.Limit)
}

func TestQuery_Fingerprint(t *testing.T) {
	a := &Query{Text: "shoes", Wheres: map[string]any{"a": 1, "b": 2}}
	b := &Query{Text: "shoes", Wheres: map[string]any{"b": 2, "a": 1}, BeforeExecute: func(any) {}}
	c := &Query{Text: "shoes", Wheres: map[string]any{"a": 1, "b": 2}, SoftDelete: OnlyDeleted}

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
	assert.NotEmpty(t, a.Fingerprint())
}

func TestQuery_WhereFieldsSorted(t *testing.T) {
	q := &Query{Wheres: map[string]any{"z": 1, "a": 2, "m": 3}}
	assert.Equal(t, []string{"a", "m", "z"}, q.WhereFields())
}

func TestSoftDeleteMode(t *testing.T) {
	assert.Equal(t, "include_all", IncludeAll.String())
	assert.Equal(t, "exclude_deleted", ExcludeDeleted.String())
	assert.Equal(t, "only_deleted", OnlyDeleted.String())

	v, ok := ExcludeDeleted.Value()
	assert.True(t, ok)
	assert.Equal(t, 0, v)
}

func TestNormalizeDirection(t *testing.T) {
	assert.Equal(t, Asc, NormalizeDirection("asc"))
	assert.Equal(t, Asc, NormalizeDirection("ASC"))
	assert.Equal(t, Desc, NormalizeDirection("DESC"))
	assert.Equal(t, Desc, NormalizeDirection(""))
}

func TestHTTPRequestContext(t *testing.T) {
	rc := HTTPRequestContext{}

	assert.Equal(t, 1, rc.CurrentPage(context.Background(), "page"))
	assert.Equal(t, "/", rc.CurrentPath(context.Background()))

	r := httptest.NewRequest("GET", "http://example.com/search/products?page=4&bad=-2", nil)
	ctx := WithRequest(context.Background(), r)

	assert.Equal(t, 4, rc.CurrentPage(ctx, "page"))
	assert.Equal(t, 1, rc.CurrentPage(ctx, "bad"))
	assert.Equal(t, 1, rc.CurrentPage(ctx, "missing"))
	assert.Equal(t, "http://example.com/search/products", rc.CurrentPath(ctx))

	got, ok := RequestFrom(ctx)
	require.True(t, ok)
	assert.Same(t, r, got)
}

func TestRegistry_Resolve(t *testing.T) {
	products := &MockEngine{}
	fallback := &MockEngine{}
	reg := NewRegistry[item](nil)
	reg.Register("products", products)

	e, err := reg.Resolve(fakeModel{name: "products"})
	require.NoError(t, err)
	assert.Same(t, products, e)

	_, err = reg.Resolve(fakeModel{name: "orders"})
	assert.ErrorIs(t, err, ErrEngineUnavailable)

	reg.SetDefault(fallback)
	e, err = reg.Resolve(fakeModel{name: "orders"})
	require.NoError(t, err)
	assert.Same(t, fallback, e)
	assert.Equal(t, []string{"products"}, reg.Names())
}
