package search

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Aman-CERP/solrscout/internal/config"
	"github.com/Aman-CERP/solrscout/internal/embedded"
	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
	"github.com/Aman-CERP/solrscout/internal/store"
	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// ============================================================================
// Fixtures
// ============================================================================

func testConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.Engine.Backend = config.BackendBleve
	cfg.Engine.Bleve.Path = ""
	cfg.Store.DSN = ""
	cfg.Telemetry.FlushInterval = "0s"
	cfg.Models = map[string]config.ModelConfig{
		"products": {PerPage: 2, SoftDeletes: true},
		"posts":    {Index: "blog_posts"},
	}
	return cfg
}

func newTestService(t *testing.T, cfg *config.Config) *Service {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, store.DriverSQLite, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	catalog := embedded.NewCatalog("")
	t.Cleanup(func() { _ = catalog.Close() })

	svc, err := New(ctx, cfg, WithStore(st), WithCatalog(catalog))
	require.NoError(t, err)
	t.Cleanup(func() { _ = svc.Close() })

	deleted := time.Now()
	records := []*store.Record{
		{ID: "1", Type: "products", Fields: map[string]any{"name": "alpine boots", "color": "red", "brand": "acme"}},
		{ID: "2", Type: "products", Fields: map[string]any{"name": "beach sandals", "color": "blue", "brand": "acme"}},
		{ID: "3", Type: "products", Fields: map[string]any{"name": "city boots", "color": "red", "brand": "globex"}},
		{ID: "4", Type: "products", Fields: map[string]any{"name": "desert boots", "color": "red", "brand": "acme"}, DeletedAt: &deleted},
		{ID: "9", Type: "posts", Fields: map[string]any{"title": "boots review"}},
	}
	require.NoError(t, st.Upsert(ctx, records...))
	for _, r := range records {
		index := "products"
		if r.Type == "posts" {
			index = "blog_posts"
		}
		require.NoError(t, catalog.Put(ctx, index, r.Document()))
	}
	return svc
}

func ids(records []store.Record) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		out = append(out, r.ID)
	}
	return out
}

// ============================================================================
// Construction
// ============================================================================

func TestNew_RegistersConfiguredModels(t *testing.T) {
	svc := newTestService(t, testConfig())

	assert.Equal(t, []string{"posts", "products"}, svc.Models())

	typ, err := svc.Model("posts")
	require.NoError(t, err)
	assert.Equal(t, "blog_posts", typ.SearchableAs())
}

func TestNew_RejectsSharedIndex(t *testing.T) {
	cfg := testConfig()
	cfg.Models["articles"] = config.ModelConfig{Index: "products"}

	_, err := New(context.Background(), cfg, WithCatalog(embedded.NewCatalog("")))

	require.Error(t, err)
	assert.Equal(t, scouterrors.ErrCodeConfigInvalid, scouterrors.GetCode(err))
	assert.Contains(t, err.Error(), `share index "products"`)
}

func TestNew_RejectsUnknownEngine(t *testing.T) {
	cfg := testConfig()
	cfg.Models["products"] = config.ModelConfig{Engine: "elastic"}

	_, err := New(context.Background(), cfg)

	require.Error(t, err)
	assert.Equal(t, scouterrors.ErrCodeConfigInvalid, scouterrors.GetCode(err))
}

func TestModel_Unknown(t *testing.T) {
	svc := newTestService(t, testConfig())

	_, err := svc.Model("users")

	assert.Equal(t, scouterrors.ErrCodeUnknownModel, scouterrors.GetCode(err))
}

// ============================================================================
// Search
// ============================================================================

func TestSearch_PageAndFacets(t *testing.T) {
	svc := newTestService(t, testConfig())

	// Given: a search for boots sorted by name with a color facet
	req := Request{Model: "products", Query: "boots", Sort: "name", Facets: []string{"color"}, Path: "/search/products"}

	// When: fetching the first page
	res, err := svc.Search(context.Background(), req)

	// Then: trashed records are excluded, the page follows the model size,
	// and facets describe the whole result
	require.NoError(t, err)
	require.NotNil(t, res.Page)
	assert.Equal(t, []string{"1", "3"}, ids(res.Page.Items))
	assert.Equal(t, 2, res.Page.Total)
	assert.Equal(t, 2, res.Page.PerPage)
	assert.Equal(t, map[string]int{"red": 2}, res.Facets["color"])
}

func TestSearch_SecondPage(t *testing.T) {
	svc := newTestService(t, testConfig())

	res, err := svc.Search(context.Background(), Request{Model: "products", Sort: "name asc", Page: 2})

	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, ids(res.Page.Items))
	assert.Equal(t, 3, res.Page.Total)
	assert.Equal(t, 2, res.Page.CurrentPage)
	assert.Nil(t, res.Facets)
}

func TestSearch_TrashedModes(t *testing.T) {
	svc := newTestService(t, testConfig())

	tests := []struct {
		trashed string
		want    []string
	}{
		{TrashedExclude, []string{"1", "3"}},
		{TrashedWith, []string{"1", "3", "4"}},
		{TrashedOnly, []string{"4"}},
	}
	for _, tt := range tests {
		t.Run("mode_"+tt.trashed, func(t *testing.T) {
			res, err := svc.Search(context.Background(), Request{
				Model: "products", Query: "boots", Sort: "name", Trashed: tt.trashed, PerPage: 10,
			})
			require.NoError(t, err)
			assert.Equal(t, tt.want, ids(res.Page.Items))
		})
	}
}

func TestSearch_InvalidTrashedMode(t *testing.T) {
	svc := newTestService(t, testConfig())

	_, err := svc.Search(context.Background(), Request{Model: "products", Trashed: "all"})

	assert.Equal(t, scouterrors.ErrCodeInvalidInput, scouterrors.GetCode(err))
}

func TestSearch_FiltersAndWheres(t *testing.T) {
	svc := newTestService(t, testConfig())

	res, err := svc.Search(context.Background(), Request{
		Model:   "products",
		Wheres:  map[string]any{"brand": "acme"},
		Filters: []scout.FilterGroup{{Field: "color", Values: []any{"red", "green"}}},
		PerPage: 10,
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"1"}, ids(res.Page.Items))
}

func TestSearch_ConstraintsNarrowHydration(t *testing.T) {
	svc := newTestService(t, testConfig())

	// When: the engine matches 1 and 3 but only globex records may load
	res, err := svc.Search(context.Background(), Request{
		Model: "products", Query: "boots", Sort: "name",
		Constraints: map[string]any{"brand": "globex"},
	})

	// Then: the page keeps the engine total but only hydrates 3
	require.NoError(t, err)
	assert.Equal(t, []string{"3"}, ids(res.Page.Items))
	assert.Equal(t, 2, res.Page.Total)
}

func TestSearch_Raw(t *testing.T) {
	svc := newTestService(t, testConfig())

	res, err := svc.Search(context.Background(), Request{Model: "posts", Query: "review", Raw: true})

	require.NoError(t, err)
	assert.Nil(t, res.Page)
	require.NotNil(t, res.Documents)
	require.Len(t, res.Documents.Items, 1)
	assert.Equal(t, "9", res.Documents.Items[0]["id"])
}

func TestSearch_UnknownModel(t *testing.T) {
	svc := newTestService(t, testConfig())

	_, err := svc.Search(context.Background(), Request{Model: "users"})

	assert.Equal(t, scouterrors.ErrCodeUnknownModel, scouterrors.GetCode(err))
}

// ============================================================================
// Facets and Keys
// ============================================================================

func TestFacets(t *testing.T) {
	svc := newTestService(t, testConfig())

	f, err := svc.Facets(context.Background(), Request{Model: "products", Facets: []string{"brand"}})

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"acme": 2, "globex": 1}, f["brand"])
}

func TestFacets_RequiresFields(t *testing.T) {
	svc := newTestService(t, testConfig())

	_, err := svc.Facets(context.Background(), Request{Model: "products"})

	assert.Equal(t, scouterrors.ErrCodeInvalidInput, scouterrors.GetCode(err))
}

func TestKeys_Limit(t *testing.T) {
	svc := newTestService(t, testConfig())

	keys, err := svc.Keys(context.Background(), Request{Model: "products", Sort: "name desc", Limit: 2})

	require.NoError(t, err)
	assert.Equal(t, []string{"3", "2"}, keys)
}

// ============================================================================
// Stats and lifecycle
// ============================================================================

func TestStats_CountsQueriesAndCache(t *testing.T) {
	svc := newTestService(t, testConfig())
	ctx := context.Background()
	req := Request{Model: "products", Query: "boots"}

	_, err := svc.Search(ctx, req)
	require.NoError(t, err)
	_, err = svc.Search(ctx, req)
	require.NoError(t, err)
	_, err = svc.Keys(ctx, Request{Model: "products", Query: "nothingmatches"})
	require.NoError(t, err)

	st := svc.Stats()

	assert.Equal(t, []string{"posts", "products"}, st.Models)
	assert.Equal(t, config.BackendBleve, st.Engines["products"])
	assert.Equal(t, store.DriverSQLite, st.Store)
	require.NotNil(t, st.Queries)
	assert.Equal(t, int64(3), st.Queries.TotalQueries)
	assert.Equal(t, int64(1), st.Queries.ZeroResultCount)
	assert.Equal(t, int64(1), st.Queries.ExactRepeatCount)
	require.NotNil(t, st.Cache)
	assert.Equal(t, int64(1), st.Cache.Hits)
}

func TestStats_TelemetryAndCacheDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Telemetry.Disabled = true
	cfg.Cache.Backend = config.CacheNone
	svc := newTestService(t, cfg)

	_, err := svc.Search(context.Background(), Request{Model: "products"})
	require.NoError(t, err)

	st := svc.Stats()
	assert.Nil(t, st.Queries)
	assert.Nil(t, st.Cache)
	assert.Nil(t, svc.Metrics())
}

func TestPing_NoSolrModels(t *testing.T) {
	svc := newTestService(t, testConfig())

	assert.NoError(t, svc.Ping(context.Background()))
}

func TestClose_KeepsInjectedStore(t *testing.T) {
	ctx := context.Background()
	st, err := store.Open(ctx, store.DriverSQLite, "")
	require.NoError(t, err)
	defer st.Close()

	svc, err := New(ctx, testConfig(), WithStore(st), WithCatalog(embedded.NewCatalog("")))
	require.NoError(t, err)
	require.NoError(t, svc.Close())

	_, err = st.Count(ctx, "products")
	assert.NoError(t, err)
}
