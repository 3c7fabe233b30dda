package errors

import (
	"fmt"
)

// ScoutError is a coded failure from a search, hydration or config step.
// The CLI prints it with its suggestion, the HTTP API maps its category to
// a status, and loggers record its code.
type ScoutError struct {
	Code     string // ERR_NNN_NAME, e.g. ERR_601_ENGINE_UNAVAILABLE
	Message  string
	Category Category // hundreds digit of Code
	Severity Severity

	// Details names the model, index or field involved.
	Details map[string]string
	Cause   error

	// Retryable marks transient Solr or Redis failures that RetryWithResult
	// should attempt again.
	Retryable bool
	// Suggestion is shown under the message by FormatForCLI.
	Suggestion string
}

// Error renders "[CODE] message", followed by the cause when it adds
// anything.
func (e *ScoutError) Error() string {
	if e.Cause == nil || e.Cause.Error() == e.Message {
		return fmt.Sprintf("[%s] %s", e.Code, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
}

func (e *ScoutError) Unwrap() error { return e.Cause }

// Is compares codes only. Sentinels such as scout.ErrEngineUnavailable
// therefore match any error carrying the same code.
func (e *ScoutError) Is(target error) bool {
	t, ok := target.(*ScoutError)
	return ok && t.Code == e.Code
}

// WithDetail records key=value on e and returns e.
func (e *ScoutError) WithDetail(key, value string) *ScoutError {
	if e.Details == nil {
		e.Details = map[string]string{}
	}
	e.Details[key] = value
	return e
}

// WithSuggestion sets the hint printed after the message and returns e.
func (e *ScoutError) WithSuggestion(suggestion string) *ScoutError {
	e.Suggestion = suggestion
	return e
}

// New builds a ScoutError whose category, severity and retry flag all
// follow from code.
func New(code string, message string, cause error) *ScoutError {
	return &ScoutError{
		Code:      code,
		Message:   message,
		Category:  categoryFromCode(code),
		Severity:  severityFromCode(code),
		Cause:     cause,
		Retryable: isRetryableCode(code),
	}
}

// Wrap codes err, reusing its text as the message. Wrap(code, nil) is nil.
func Wrap(code string, err error) *ScoutError {
	if err == nil {
		return nil
	}
	return New(code, err.Error(), err)
}

// ConfigError reports an unusable solrscout configuration.
func ConfigError(message string, cause error) *ScoutError {
	return New(ErrCodeConfigInvalid, message, cause)
}

// StoreError reports a failed record store query during hydration.
func StoreError(message string, cause error) *ScoutError {
	return New(ErrCodeStoreQuery, message, cause)
}

// NetworkError reports an unreachable Solr or Redis. It is retryable.
func NetworkError(message string, cause error) *ScoutError {
	return New(ErrCodeNetworkUnavailable, message, cause)
}

// ValidationError reports bad caller input such as a negative page.
func ValidationError(message string, cause error) *ScoutError {
	return New(ErrCodeInvalidInput, message, cause)
}

func InternalError(message string, cause error) *ScoutError {
	return New(ErrCodeInternal, message, cause)
}

// find returns the first ScoutError in err's chain.
func find(err error) (*ScoutError, bool) {
	var se *ScoutError
	if err == nil || !as(err, &se) {
		return nil, false
	}
	return se, true
}

// IsRetryable reports whether the first ScoutError in err's chain is
// retryable. Plain errors are not.
func IsRetryable(err error) bool {
	se, ok := find(err)
	return ok && se.Retryable
}

func IsFatal(err error) bool {
	se, ok := find(err)
	return ok && se.Severity == SeverityFatal
}

// GetCode returns the code of the first ScoutError in err's chain, or "".
func GetCode(err error) string {
	if se, ok := find(err); ok {
		return se.Code
	}
	return ""
}

// GetCategory returns the category of the first ScoutError in err's
// chain, or "".
func GetCategory(err error) Category {
	if se, ok := find(err); ok {
		return se.Category
	}
	return ""
}
