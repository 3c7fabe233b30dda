package mcp

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
)

func TestMapError_NilError(t *testing.T) {
	assert.Nil(t, MapError(nil))
}

func TestMapError_ScoutErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unknown model", scouterrors.New(scouterrors.ErrCodeUnknownModel, "unknown", nil), ErrCodeUnknownModel},
		{"engine unavailable", scouterrors.New(scouterrors.ErrCodeEngineUnavailable, "down", nil), ErrCodeEngineUnavailable},
		{"network unavailable", scouterrors.New(scouterrors.ErrCodeNetworkUnavailable, "refused", nil), ErrCodeEngineUnavailable},
		{"timeout", scouterrors.New(scouterrors.ErrCodeNetworkTimeout, "slow", nil), ErrCodeTimeout},
		{"hydration", scouterrors.New(scouterrors.ErrCodeHydrationFailure, "missing", nil), ErrCodeHydrationFailed},
		{"validation", scouterrors.ValidationError("bad trashed mode", nil), ErrCodeInvalidParams},
		{"filter", scouterrors.New(scouterrors.ErrCodeInvalidFilter, "bad filter", nil), ErrCodeInvalidParams},
		{"store", scouterrors.StoreError("locked", nil), ErrCodeInternalError},
		{"wrapped", fmt.Errorf("search: %w", scouterrors.New(scouterrors.ErrCodeUnknownModel, "unknown", nil)), ErrCodeUnknownModel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want, got.Code)
		})
	}
}

func TestMapError_IncludesSuggestion(t *testing.T) {
	err := scouterrors.New(scouterrors.ErrCodeUnknownModel, `unknown model "users"`, nil).
		WithSuggestion("configured models: posts")

	got := MapError(err)

	assert.Equal(t, `unknown model "users" (configured models: posts)`, got.Message)
}

func TestMapError_ContextErrors(t *testing.T) {
	assert.Equal(t, ErrCodeTimeout, MapError(context.DeadlineExceeded).Code)
	assert.Equal(t, ErrCodeTimeout, MapError(context.Canceled).Code)
}

func TestMapError_Sentinels(t *testing.T) {
	assert.Equal(t, ErrCodeMethodNotFound, MapError(ErrToolNotFound).Code)
	assert.Equal(t, ErrCodeInvalidParams, MapError(ErrInvalidParams).Code)
	assert.Equal(t, ErrCodeMethodNotFound, MapError(ErrResourceNotFound).Code)
}

func TestMapError_PassesThroughMCPError(t *testing.T) {
	orig := NewInvalidParamsError("query is required")

	assert.Same(t, orig, MapError(fmt.Errorf("wrapped: %w", orig)))
}

func TestMapError_Unknown(t *testing.T) {
	got := MapError(errors.New("boom"))

	assert.Equal(t, ErrCodeInternalError, got.Code)
	assert.Equal(t, "Internal server error.", got.Message)
}

func TestMCPError_Error(t *testing.T) {
	assert.Equal(t, "MCP error -32601: Tool 'x' not found.", NewMethodNotFoundError("x").Error())
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, 10, clampLimit(0, 10, 1, 50))
	assert.Equal(t, 1, clampLimit(-3, 1, 1, 50))
	assert.Equal(t, 50, clampLimit(99, 10, 1, 50))
	assert.Equal(t, 7, clampLimit(7, 10, 1, 50))
}
