package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
	"github.com/Aman-CERP/solrscout/pkg/scout"
)

// Helper to create a migrated in-memory store with cleanup
func newTestStore(t *testing.T) *SQLStore {
	t.Helper()

	s, err := Open(context.Background(), DriverSQLite, "")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func seed(t *testing.T, s *SQLStore) {
	t.Helper()
	err := s.Upsert(context.Background(),
		&Record{ID: "1", Type: "products", Fields: map[string]any{"name": "boot", "brand": "acme", "size": 42}},
		&Record{ID: "2", Type: "products", Fields: map[string]any{"name": "sandal", "brand": "globex"}},
		&Record{ID: "3", Type: "products", Fields: map[string]any{"name": "clog", "brand": "acme", "discontinued": true}},
		&Record{ID: "1", Type: "articles", Fields: map[string]any{"title": "unrelated"}},
	)
	require.NoError(t, err)
}

func TestSQLStore_FindByIDs_ScopedToType(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	// When: loading ids across both types
	found, err := s.FindByIDs(context.Background(), "products", []string{"1", "2", "99"}, nil)

	// Then: only product records come back, unknown ids are absent
	require.NoError(t, err)
	require.Len(t, found, 2)
	assert.Equal(t, "boot", found["1"].Fields["name"])
	assert.Equal(t, "sandal", found["2"].Fields["name"])
	assert.Equal(t, float64(42), found["1"].Fields["size"])
}

func TestSQLStore_FindByIDs_AppliesClauses(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	require.NoError(t, s.SoftDelete(context.Background(), "products", "2"))
	ids := []string{"1", "2", "3"}

	tests := []struct {
		name  string
		build func(rq *scout.RecordQuery)
		want  []string
	}{
		{"json field equality", func(rq *scout.RecordQuery) { rq.Where("brand", "acme") }, []string{"1", "3"}},
		{"json field numeric text", func(rq *scout.RecordQuery) { rq.Where("size", "42") }, []string{"1"}},
		{"json field in", func(rq *scout.RecordQuery) { rq.WhereIn("name", "boot", "sandal") }, []string{"1", "2"}},
		{"json field null", func(rq *scout.RecordQuery) { rq.WhereNull("discontinued") }, []string{"1", "2"}},
		{"column null", func(rq *scout.RecordQuery) { rq.WhereNull("deleted_at") }, []string{"1", "3"}},
		{"column not null", func(rq *scout.RecordQuery) { rq.WhereNotNull("deleted_at") }, []string{"2"}},
		{"column in", func(rq *scout.RecordQuery) { rq.WhereIn("id", "3", "2") }, []string{"2", "3"}},
		{"empty in", func(rq *scout.RecordQuery) { rq.WhereIn("id") }, nil},
		{"combined", func(rq *scout.RecordQuery) { rq.Where("brand", "acme").WhereNotNull("discontinued") }, []string{"3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rq := &scout.RecordQuery{}
			tt.build(rq)

			found, err := s.FindByIDs(context.Background(), "products", ids, rq)
			require.NoError(t, err)

			var got []string
			for _, id := range ids {
				if _, ok := found[id]; ok {
					got = append(got, id)
				}
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSQLStore_SoftDeleteAndRestore(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.SoftDelete(ctx, "products", "1"))
	found, err := s.FindByIDs(ctx, "products", []string{"1"}, nil)
	require.NoError(t, err)
	rec := found["1"]
	require.True(t, rec.Trashed())
	assert.Equal(t, fixed, *rec.DeletedAt)
	assert.Equal(t, 1, rec.Document()[scout.SoftDeletedField])

	require.NoError(t, s.Restore(ctx, "products", "1"))
	found, err = s.FindByIDs(ctx, "products", []string{"1"}, nil)
	require.NoError(t, err)
	rec = found["1"]
	assert.False(t, rec.Trashed())
}

func TestSQLStore_UpsertReplaces(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)
	ctx := context.Background()

	require.NoError(t, s.Upsert(ctx, &Record{ID: "1", Type: "products", Fields: map[string]any{"name": "boot v2"}}))

	found, err := s.FindByIDs(ctx, "products", []string{"1"}, nil)
	require.NoError(t, err)
	assert.Equal(t, "boot v2", found["1"].Fields["name"])

	n, err := s.Count(ctx, "products")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestSQLStore_UpsertValidates(t *testing.T) {
	s := newTestStore(t)

	err := s.Upsert(context.Background(), &Record{ID: "", Type: "products"})

	assert.Equal(t, scouterrors.ErrCodeInvalidInput, scouterrors.GetCode(err))
}

func TestSQLStore_FileBacked(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "records.db")

	s, err := Open(context.Background(), DriverSQLite, path)
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Migrate(context.Background()))
	require.NoError(t, s.Upsert(context.Background(), &Record{ID: "a", Type: "t"}))
	assert.FileExists(t, path)
}

func TestOpen_UnsupportedDriver(t *testing.T) {
	_, err := Open(context.Background(), "oracle", "")

	require.Error(t, err)
	assert.Equal(t, scouterrors.ErrCodeStoreOpen, scouterrors.GetCode(err))
}

func TestHydrator_FeedsMapper(t *testing.T) {
	s := newTestStore(t)
	seed(t, s)

	m := scout.NewMapper(Hydrator(s, "products"))
	got, err := m.Map(context.Background(), &scout.Query{}, &scout.RawResponse{IDs: []string{"3", "404", "1"}})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "3", got[0].ID)
	assert.Equal(t, "1", got[1].ID)
}

func TestRecordType_Model(t *testing.T) {
	rt := RecordType{Name: "products"}
	assert.Equal(t, "products", rt.SearchableAs())
	assert.Equal(t, DefaultPageSize, rt.PerPage())
	assert.False(t, rt.SoftDeletes())

	rt = RecordType{Name: "products", Index: "products_v2", PageSize: 50, SoftDeleting: true}
	assert.Equal(t, "products_v2", rt.SearchableAs())
	assert.Equal(t, 50, rt.PerPage())
	assert.True(t, rt.SoftDeletes())
}
