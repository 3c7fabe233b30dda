// Package mcp implements the Model Context Protocol (MCP) server for solrscout.
package mcp

import (
	"context"
	"errors"
	"fmt"

	scouterrors "github.com/Aman-CERP/solrscout/internal/errors"
)

// Custom MCP error codes for solrscout.
const (
	// ErrCodeUnknownModel indicates the model is not configured.
	ErrCodeUnknownModel = -32001

	// ErrCodeEngineUnavailable indicates the search engine could not be reached.
	ErrCodeEngineUnavailable = -32002

	// ErrCodeTimeout indicates the request timed out.
	ErrCodeTimeout = -32003

	// ErrCodeHydrationFailed indicates hits could not be loaded from the store.
	ErrCodeHydrationFailed = -32004

	// Standard JSON-RPC error codes.
	ErrCodeInvalidRequest = -32600
	ErrCodeMethodNotFound = -32601
	ErrCodeInvalidParams  = -32602
	ErrCodeInternalError  = -32603
)

// Sentinel errors for internal use.
var (
	// ErrToolNotFound indicates the requested tool does not exist.
	ErrToolNotFound = errors.New("tool not found")

	// ErrInvalidParams indicates invalid parameters were provided.
	ErrInvalidParams = errors.New("invalid parameters")

	// ErrResourceNotFound indicates the requested resource does not exist.
	ErrResourceNotFound = errors.New("resource not found")
)

// MCPError represents an MCP protocol error with code and message.
type MCPError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// MapError converts internal errors to MCP errors.
func MapError(err error) *MCPError {
	if err == nil {
		return nil
	}

	var mcpErr *MCPError
	if errors.As(err, &mcpErr) {
		return mcpErr
	}

	var se *scouterrors.ScoutError
	if errors.As(err, &se) {
		return mapScoutError(se)
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request timed out."}
	case errors.Is(err, context.Canceled):
		return &MCPError{Code: ErrCodeTimeout, Message: "Request was canceled."}
	case errors.Is(err, ErrToolNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Tool not found."}
	case errors.Is(err, ErrInvalidParams):
		return &MCPError{Code: ErrCodeInvalidParams, Message: "Invalid parameters."}
	case errors.Is(err, ErrResourceNotFound):
		return &MCPError{Code: ErrCodeMethodNotFound, Message: "Resource not found."}
	default:
		return &MCPError{Code: ErrCodeInternalError, Message: "Internal server error."}
	}
}

// NewInvalidParamsError creates an error for invalid parameters with a custom message.
func NewInvalidParamsError(msg string) *MCPError {
	return &MCPError{
		Code:    ErrCodeInvalidParams,
		Message: msg,
	}
}

// NewMethodNotFoundError creates an error for unknown tools.
func NewMethodNotFoundError(name string) *MCPError {
	return &MCPError{
		Code:    ErrCodeMethodNotFound,
		Message: fmt.Sprintf("Tool '%s' not found.", name),
	}
}

// mapScoutError converts a ScoutError to an MCPError, keeping the suggestion.
func mapScoutError(se *scouterrors.ScoutError) *MCPError {
	message := se.Message
	if se.Suggestion != "" {
		message = fmt.Sprintf("%s (%s)", se.Message, se.Suggestion)
	}

	switch se.Code {
	case scouterrors.ErrCodeUnknownModel:
		return &MCPError{Code: ErrCodeUnknownModel, Message: message}
	case scouterrors.ErrCodeEngineUnavailable, scouterrors.ErrCodeNetworkUnavailable:
		return &MCPError{Code: ErrCodeEngineUnavailable, Message: message}
	case scouterrors.ErrCodeNetworkTimeout:
		return &MCPError{Code: ErrCodeTimeout, Message: message}
	case scouterrors.ErrCodeHydrationFailure:
		return &MCPError{Code: ErrCodeHydrationFailed, Message: message}
	}

	if se.Category == scouterrors.CategoryValidation {
		return &MCPError{Code: ErrCodeInvalidParams, Message: message}
	}
	return &MCPError{Code: ErrCodeInternalError, Message: message}
}
