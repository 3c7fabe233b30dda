package cmd

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
)

// =============================================================================
// search
// =============================================================================

func TestSearch_TextOutput(t *testing.T) {
	// Given: a project with three live products and one deleted
	dir := setupProject(t)

	// When: searching for boots
	out, err := executeCmd(t, "-C", dir, "search", "products", "boots")

	// Then: live matches are listed with a page summary
	require.NoError(t, err)
	assert.Contains(t, out, "name=alpine boots")
	assert.Contains(t, out, "name=city boots")
	assert.NotContains(t, out, "desert boots")
	assert.Contains(t, out, "Showing 1-2 of 2 (page 1/1)")
}

func TestSearch_JSONWithFacets(t *testing.T) {
	dir := setupProject(t)

	out, err := executeCmd(t, "-C", dir, "search", "products", "--facet", "color", "--format", "json")
	require.NoError(t, err)

	var res struct {
		Page struct {
			Total    int              `json:"total"`
			PerPage  int              `json:"per_page"`
			LastPage int              `json:"last_page"`
			Data     []map[string]any `json:"data"`
		} `json:"page"`
		Facets map[string]map[string]int `json:"facets"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 3, res.Page.Total)
	assert.Equal(t, 2, res.Page.PerPage)
	assert.Equal(t, 2, res.Page.LastPage)
	assert.Len(t, res.Page.Data, 2)
	assert.Equal(t, map[string]int{"red": 2, "blue": 1}, res.Facets["color"])
}

func TestSearch_WhereAndTrashed(t *testing.T) {
	dir := setupProject(t)

	out, err := executeCmd(t, "-C", dir, "search", "products", "boots", "--where", "color:red", "--trashed", "only")

	require.NoError(t, err)
	assert.Contains(t, out, "desert boots")
	assert.Contains(t, out, "[trashed]")
	assert.NotContains(t, out, "alpine boots")
}

func TestSearch_InvalidFilter(t *testing.T) {
	dir := setupProject(t)

	_, err := executeCmd(t, "-C", dir, "search", "products", "--filter", "color")

	assert.Equal(t, scouterrors.ErrCodeInvalidFilter, scouterrors.GetCode(err))
}

func TestSearch_UnknownModel(t *testing.T) {
	dir := setupProject(t)

	_, err := executeCmd(t, "-C", dir, "search", "users", "boots")

	assert.Equal(t, scouterrors.ErrCodeUnknownModel, scouterrors.GetCode(err))
}

// =============================================================================
// keys and facets
// =============================================================================

func TestKeys(t *testing.T) {
	dir := setupProject(t)

	out, err := executeCmd(t, "-C", dir, "keys", "products", "boots")

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"1", "3"}, strings.Fields(out))
}

func TestKeys_OnlyTrashedJSON(t *testing.T) {
	dir := setupProject(t)

	out, err := executeCmd(t, "-C", dir, "keys", "products", "--trashed", "only", "--format", "json")
	require.NoError(t, err)

	var keys []string
	require.NoError(t, json.Unmarshal([]byte(out), &keys))
	assert.Equal(t, []string{"4"}, keys)
}

func TestFacets(t *testing.T) {
	dir := setupProject(t)

	out, err := executeCmd(t, "-C", dir, "facets", "products", "color", "boots", "--format", "json")
	require.NoError(t, err)

	var facets map[string]map[string]int
	require.NoError(t, json.Unmarshal([]byte(out), &facets))
	assert.Equal(t, map[string]int{"red": 2}, facets["color"])
}

// =============================================================================
// stats
// =============================================================================

func TestStats_ReportsFlushedQueries(t *testing.T) {
	// Given: a project that has served one search
	dir := setupProject(t)
	_, err := executeCmd(t, "-C", dir, "search", "products", "boots")
	require.NoError(t, err)

	// When: reading stats
	out, err := executeCmd(t, "-C", dir, "stats", "--json")
	require.NoError(t, err)

	// Then: the search was flushed to the store on close
	var stats StatsOutput
	require.NoError(t, json.Unmarshal([]byte(out), &stats))
	assert.Equal(t, int64(1), stats.TotalQueries)
	assert.Equal(t, int64(1), stats.OperationCounts["paginate"])
	assert.Equal(t, 7, stats.Days)
}

func TestStats_TextOutput(t *testing.T) {
	dir := setupProject(t)

	out, err := executeCmd(t, "-C", dir, "stats")

	require.NoError(t, err)
	assert.Contains(t, out, "Query statistics (last 7 days)")
	assert.Contains(t, out, "(none recorded yet)")
}
