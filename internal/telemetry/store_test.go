package telemetry

import (
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupTestStore(t *testing.T) *SQLMetricsStore {
	t.Helper()

	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewSQLMetricsStore(db)
	require.NoError(t, err)
	return store
}

func TestNewSQLMetricsStore_NilDB(t *testing.T) {
	_, err := NewSQLMetricsStore(nil)
	assert.Error(t, err)
}

func TestSQLMetricsStore_OperationCounts_Accumulate(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SaveOperationCounts("2026-01-06", map[Operation]int64{OpSearch: 10, OpKeys: 2}))
	require.NoError(t, store.SaveOperationCounts("2026-01-06", map[Operation]int64{OpSearch: 5}))
	require.NoError(t, store.SaveOperationCounts("2026-01-07", map[Operation]int64{OpPaginate: 4}))

	day, err := store.GetOperationCounts("2026-01-06", "2026-01-06")
	require.NoError(t, err)
	assert.Equal(t, int64(15), day[OpSearch])
	assert.Equal(t, int64(2), day[OpKeys])
	assert.Zero(t, day[OpPaginate])

	both, err := store.GetOperationCounts("2026-01-01", "2026-01-31")
	require.NoError(t, err)
	assert.Equal(t, int64(4), both[OpPaginate])
}

func TestSQLMetricsStore_TopTerms(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.UpsertTermCounts(map[string]int64{"shoes": 3, "red": 1, "hat": 1}))
	require.NoError(t, store.UpsertTermCounts(map[string]int64{"red": 4}))
	require.NoError(t, store.UpsertTermCounts(nil))

	terms, err := store.GetTopTerms(2)
	require.NoError(t, err)
	assert.Equal(t, []TermCount{{Term: "red", Count: 5}, {Term: "shoes", Count: 3}}, terms)
}

func TestSQLMetricsStore_ZeroResultQueries_Retention(t *testing.T) {
	store := setupTestStore(t)
	now := time.Now()

	for i := 0; i < ZeroResultRetention+5; i++ {
		require.NoError(t, store.AddZeroResultQuery(fmt.Sprintf("q%d", i), now))
	}

	all, err := store.GetZeroResultQueries(1000)
	require.NoError(t, err)
	assert.Len(t, all, ZeroResultRetention)
	assert.Equal(t, fmt.Sprintf("q%d", ZeroResultRetention+4), all[0], "newest first")

	recent, err := store.GetZeroResultQueries(2)
	require.NoError(t, err)
	assert.Len(t, recent, 2)
}

func TestSQLMetricsStore_LatencyCounts(t *testing.T) {
	store := setupTestStore(t)

	require.NoError(t, store.SaveLatencyCounts("2026-01-06", map[LatencyBucket]int64{BucketP10: 7, BucketP500: 1}))
	require.NoError(t, store.SaveLatencyCounts("2026-01-06", map[LatencyBucket]int64{BucketP10: 3}))

	counts, err := store.GetLatencyCounts("2026-01-06", "2026-01-06")
	require.NoError(t, err)
	assert.Equal(t, int64(10), counts[BucketP10])
	assert.Equal(t, int64(1), counts[BucketP500])
}

func TestSQLMetricsStore_WithQueryMetrics(t *testing.T) {
	// Given: a collector flushing into the SQL store
	store := setupTestStore(t)
	m := NewQueryMetricsWithConfig(store, QueryMetricsConfig{})

	m.Record(QueryEvent{Query: "leather boots", Operation: OpSearch, ResultCount: 0})

	// When: the collector closes
	require.NoError(t, m.Close())

	// Then: the store holds its deltas
	zero, err := store.GetZeroResultQueries(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"leather boots"}, zero)

	terms, err := store.GetTopTerms(10)
	require.NoError(t, err)
	assert.Len(t, terms, 2)
}
