package scout

import (
	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
)

// Sentinel errors. They match with errors.Is by code, so detailed errors
// built from the same code (with model names, missing ids, ...) still match.
var (
	// ErrEngineUnavailable is returned when no engine can be resolved for a model.
	ErrEngineUnavailable = scouterrors.New(scouterrors.ErrCodeEngineUnavailable, "no search engine available", nil)

	// ErrMalformedResponse is returned when an engine payload does not have the expected shape.
	ErrMalformedResponse = scouterrors.New(scouterrors.ErrCodeMalformedResponse, "malformed engine response", nil)

	// ErrHydrationFailure is returned by a strict Mapper when ids have no record.
	ErrHydrationFailure = scouterrors.New(scouterrors.ErrCodeHydrationFailure, "search hits could not be hydrated", nil)

	// ErrRecordNotFound is returned by First when the search has no results.
	ErrRecordNotFound = scouterrors.New(scouterrors.ErrCodeRecordNotFound, "no matching record", nil)
)

func engineUnavailable(model string, cause error) error {
	return scouterrors.New(scouterrors.ErrCodeEngineUnavailable, "no search engine available for model "+model, cause).
		WithDetail("model", model).
		WithSuggestion("register an engine for the model or configure a default engine")
}

func malformed(message string, cause error) error {
	return scouterrors.New(scouterrors.ErrCodeMalformedResponse, message, cause)
}
