package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
	"github.com/Aman-CERP/solrscout/pkg/scout"
)

func TestParsePairs(t *testing.T) {
	got, err := ParsePairs("where", []string{"color:red", "size:42:wide"})

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"color": "red", "size": "42:wide"}, got)
}

func TestParsePairs_Empty(t *testing.T) {
	got, err := ParsePairs("where", nil)

	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestParsePairs_Invalid(t *testing.T) {
	for _, v := range []string{"color", ":red"} {
		_, err := ParsePairs("where", []string{v})
		assert.Equal(t, scouterrors.ErrCodeInvalidInput, scouterrors.GetCode(err), v)
	}
}

func TestParseFilters(t *testing.T) {
	got, err := ParseFilters([]string{"color:red,blue", "brand:acme"})

	require.NoError(t, err)
	assert.Equal(t, []scout.FilterGroup{
		{Field: "color", Values: []any{"red", "blue"}},
		{Field: "brand", Values: []any{"acme"}},
	}, got)
}

func TestParseFilters_MissingColon(t *testing.T) {
	_, err := ParseFilters([]string{"color"})

	assert.Equal(t, scouterrors.ErrCodeInvalidFilter, scouterrors.GetCode(err))
}

func TestSplitFacets(t *testing.T) {
	assert.Equal(t, []string{"color", "brand", "size"}, SplitFacets([]string{"color, brand", "", "size"}))
	assert.Nil(t, SplitFacets(nil))
}

func TestParseOrders(t *testing.T) {
	got, err := ParseOrders([]string{"price", "name:DESC", "rank:up"})

	require.NoError(t, err)
	assert.Equal(t, []scout.Order{
		{Column: "price", Direction: scout.Asc},
		{Column: "name", Direction: scout.Desc},
		{Column: "rank", Direction: scout.Desc},
	}, got)
}

func TestParseOrders_MissingColumn(t *testing.T) {
	_, err := ParseOrders([]string{":asc"})

	assert.Equal(t, scouterrors.ErrCodeInvalidInput, scouterrors.GetCode(err))
}
