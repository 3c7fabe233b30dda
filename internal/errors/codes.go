// Package errors provides structured error handling for solrscout.
//
// Error codes follow the pattern ERR_XXX_DESCRIPTION where:
//   - 1XX: Configuration errors
//   - 2XX: Record store errors
//   - 3XX: Network errors
//   - 4XX: Validation errors
//   - 5XX: Internal errors
//   - 6XX: Search engine errors
package errors

import stderrors "errors"

// Category defines error categories for classification.
type Category string

const (
	// CategoryConfig indicates configuration-related errors.
	CategoryConfig Category = "CONFIG"
	// CategoryStore indicates record store errors.
	CategoryStore Category = "STORE"
	// CategoryNetwork indicates network-related errors.
	CategoryNetwork Category = "NETWORK"
	// CategoryValidation indicates input validation errors.
	CategoryValidation Category = "VALIDATION"
	// CategoryInternal indicates unexpected internal errors.
	CategoryInternal Category = "INTERNAL"
	// CategoryEngine indicates search engine resolution or response errors.
	CategoryEngine Category = "ENGINE"
)

// Severity defines error severity levels.
type Severity string

const (
	// SeverityFatal indicates unrecoverable error, must abort.
	SeverityFatal Severity = "FATAL"
	// SeverityError indicates operation failed but can continue.
	SeverityError Severity = "ERROR"
	// SeverityWarning indicates degraded operation, continuing.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo indicates informational only.
	SeverityInfo Severity = "INFO"
)

// Error codes organized by category.
const (
	// Config errors (100-199)
	ErrCodeConfigNotFound = "ERR_101_CONFIG_NOT_FOUND"
	ErrCodeConfigInvalid  = "ERR_102_CONFIG_INVALID"
	ErrCodeUnknownModel   = "ERR_103_UNKNOWN_MODEL"

	// Record store errors (200-299)
	ErrCodeStoreOpen  = "ERR_201_STORE_OPEN"
	ErrCodeStoreQuery = "ERR_202_STORE_QUERY"

	// Network errors (300-399)
	ErrCodeNetworkTimeout     = "ERR_301_NETWORK_TIMEOUT"
	ErrCodeNetworkUnavailable = "ERR_302_NETWORK_UNAVAILABLE"
	ErrCodeEngineStatus       = "ERR_303_ENGINE_STATUS"

	// Validation errors (400-499)
	ErrCodeInvalidInput  = "ERR_401_INVALID_INPUT"
	ErrCodeInvalidQuery  = "ERR_402_INVALID_QUERY"
	ErrCodeInvalidFilter = "ERR_403_INVALID_FILTER"

	// Internal errors (500-599)
	ErrCodeInternal     = "ERR_501_INTERNAL"
	ErrCodeSearchFailed = "ERR_502_SEARCH_FAILED"

	// Search engine errors (600-699)
	ErrCodeEngineUnavailable = "ERR_601_ENGINE_UNAVAILABLE"
	ErrCodeMalformedResponse = "ERR_602_MALFORMED_RESPONSE"
	ErrCodeHydrationFailure  = "ERR_603_HYDRATION_FAILURE"
	ErrCodeRecordNotFound    = "ERR_604_RECORD_NOT_FOUND"
)

// categoryFromCode extracts category from error code.
func categoryFromCode(code string) Category {
	if len(code) < 7 {
		return CategoryInternal
	}

	// Numeric portion, e.g. "601" from "ERR_601_ENGINE_UNAVAILABLE"
	switch code[4] {
	case '1':
		return CategoryConfig
	case '2':
		return CategoryStore
	case '3':
		return CategoryNetwork
	case '4':
		return CategoryValidation
	case '6':
		return CategoryEngine
	default:
		return CategoryInternal
	}
}

// severityFromCode determines severity based on error code.
func severityFromCode(code string) Severity {
	switch code {
	case ErrCodeEngineUnavailable, ErrCodeConfigInvalid:
		return SeverityFatal
	case ErrCodeRecordNotFound:
		return SeverityInfo
	}

	if isRetryableCode(code) {
		return SeverityWarning
	}

	return SeverityError
}

// isRetryableCode checks if an error code represents a retryable error.
func isRetryableCode(code string) bool {
	switch code {
	case ErrCodeNetworkTimeout, ErrCodeNetworkUnavailable:
		return true
	default:
		return false
	}
}

// as is errors.As from the standard library; this package shadows its name.
func as(err error, target any) bool {
	return stderrors.As(err, target)
}
