package windlass

import (
	"errors"
	"fmt"
	"strings"
)

const (
	// ErrorCodeOperationNotSupported is returned when a tool does not
	// implement the requested operation.
	ErrorCodeOperationNotSupported = "OPERATION_NOT_SUPPORTED"
	// ErrorCodeInvalidInput is returned when request parameters fail
	// tool-level validation.
	ErrorCodeInvalidInput = "INVALID_INPUT"
	// ErrorCodeTimeout is returned when a dispatch deadline expires.
	ErrorCodeTimeout = "TIMEOUT"
	// ErrorCodeExecutionFailed is a generic fallback for tool failures.
	ErrorCodeExecutionFailed = "EXECUTION_FAILED"
)

// ToolError is a structured execution error that can flow across the
// dispatch boundary without losing its machine-readable code.
type ToolError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
	Cause   error          `json:"-"`
}

func (e *ToolError) Error() string {
	if e == nil {
		return ""
	}
	code := strings.TrimSpace(e.Code)
	msg := strings.TrimSpace(e.Message)
	switch {
	case code == "" && msg == "":
		return ErrorCodeExecutionFailed
	case code == "":
		return msg
	case msg == "":
		return code
	default:
		return fmt.Sprintf("%s: %s", code, msg)
	}
}

// Unwrap exposes the wrapped cause for errors.Is/errors.As.
func (e *ToolError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Cause
}

// NewToolError builds a ToolError with a normalized code.
func NewToolError(code, message string, cause error) *ToolError {
	cleanCode := strings.TrimSpace(code)
	if cleanCode == "" {
		cleanCode = ErrorCodeExecutionFailed
	}
	cleanMsg := strings.TrimSpace(message)
	if cleanMsg == "" && cause != nil {
		cleanMsg = cause.Error()
	}
	return &ToolError{Code: cleanCode, Message: cleanMsg, Cause: cause}
}

// ErrUnsupportedOperation builds the conventional error for an operation
// a tool does not implement. The message always contains
// "unsupported operation" so callers can match on it.
func ErrUnsupportedOperation(operation string) *ToolError {
	return &ToolError{
		Code:    ErrorCodeOperationNotSupported,
		Message: fmt.Sprintf("unsupported operation: %s", operation),
	}
}

// ErrInvalidInput builds the conventional error for parameters that fail
// tool-level validation.
func ErrInvalidInput(format string, args ...any) *ToolError {
	return &ToolError{
		Code:    ErrorCodeInvalidInput,
		Message: fmt.Sprintf(format, args...),
	}
}

// AsToolError unwraps err into a *ToolError if one is in the chain.
func AsToolError(err error) (*ToolError, bool) {
	if err == nil {
		return nil, false
	}
	var toolErr *ToolError
	if errors.As(err, &toolErr) {
		return toolErr, true
	}
	return nil, false
}
