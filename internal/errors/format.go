package errors

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// FormatForCLI formats an error for terminal display.
// Plain errors are wrapped as internal errors so every line carries a code.
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	var se *ScoutError
	if !as(err, &se) {
		se = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", se.Message))
	if se.Cause != nil && se.Cause.Error() != se.Message {
		sb.WriteString(fmt.Sprintf("  Cause: %v\n", se.Cause))
	}
	for _, k := range sortedKeys(se.Details) {
		sb.WriteString(fmt.Sprintf("  %s: %s\n", k, se.Details[k]))
	}
	if se.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", se.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", se.Code))

	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// ToJSON returns the API representation of err.
func ToJSON(err error) any {
	if err == nil {
		return nil
	}

	var se *ScoutError
	if !as(err, &se) {
		se = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       se.Code,
		Message:    se.Message,
		Category:   string(se.Category),
		Severity:   string(se.Severity),
		Details:    se.Details,
		Suggestion: se.Suggestion,
		Retryable:  se.Retryable,
	}
	if se.Cause != nil {
		je.Cause = se.Cause.Error()
	}
	return je
}

// FormatJSON returns a JSON encoding of ToJSON(err).
func FormatJSON(err error) ([]byte, error) {
	return json.Marshal(ToJSON(err))
}

// FormatForLog formats an error as key-value pairs for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	var se *ScoutError
	if !as(err, &se) {
		return map[string]any{
			"error": err.Error(),
		}
	}

	result := map[string]any{
		"error_code": se.Code,
		"message":    se.Message,
		"category":   string(se.Category),
		"severity":   string(se.Severity),
		"retryable":  se.Retryable,
	}
	if se.Cause != nil {
		result["cause"] = se.Cause.Error()
	}
	for k, v := range se.Details {
		result["detail_"+k] = v
	}
	return result
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
