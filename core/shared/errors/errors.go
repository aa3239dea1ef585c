package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Whole-request failures
	ErrCodeTemplateNotFound    ErrorCode = "TEMPLATE_NOT_FOUND"
	ErrCodeCompositionNotFound ErrorCode = "COMPOSITION_NOT_FOUND"
	ErrCodeBackendUnavailable  ErrorCode = "BACKEND_UNAVAILABLE"
	ErrCodeInvalidInput        ErrorCode = "INVALID_INPUT"

	// Component-level failures; isolated to one ComponentResult when raised
	// inside a composed execution, whole-request for simple templates
	ErrCodeMissingParameter   ErrorCode = "MISSING_REQUIRED_PARAMETER"
	ErrCodeExecutionFailed    ErrorCode = "EXECUTION_FAILED"
	ErrCodeRenderingRejected  ErrorCode = "RENDERING_REJECTED"

	// Infrastructure errors
	ErrCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// EngineError represents an application error with code and context
type EngineError struct {
	Code    ErrorCode
	Message string
	Err     error
	Status  int // HTTP status code
}

// Error implements the error interface
func (e *EngineError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *EngineError) Unwrap() error {
	return e.Err
}

// New creates a new engine error
func New(code ErrorCode, message string, err error) *EngineError {
	return &EngineError{
		Code:    code,
		Message: message,
		Err:     err,
		Status:  getHTTPStatus(code),
	}
}

// TemplateNotFound reports that a template name has no definition.
func TemplateNotFound(name string) *EngineError {
	return New(ErrCodeTemplateNotFound, fmt.Sprintf("template '%s' not found", name), nil)
}

// CompositionNotFound reports that a composed template has no composition
// metadata, or the composition lookup itself returned nothing.
func CompositionNotFound(name string) *EngineError {
	return New(ErrCodeCompositionNotFound, fmt.Sprintf("composition '%s' not found", name), nil)
}

// MissingRequiredParameter reports that a required parameter could not be
// resolved for one component.
func MissingRequiredParameter(component, name string) *EngineError {
	return New(ErrCodeMissingParameter,
		fmt.Sprintf("Missing required parameter for %s: %s", component, name), nil)
}

// ExecutionFailed reports that the backend raised during a component's
// execution.
func ExecutionFailed(component string, cause error) *EngineError {
	return New(ErrCodeExecutionFailed,
		fmt.Sprintf("execution failed for %s", component), cause)
}

// BackendUnavailable reports that no working backend session could be
// obtained at all.
func BackendUnavailable(cause error) *EngineError {
	return New(ErrCodeBackendUnavailable, "cannot obtain a backend session", cause)
}

// InvalidInput reports a violated structural precondition on the request.
func InvalidInput(message string) *EngineError {
	return New(ErrCodeInvalidInput, message, nil)
}

// getHTTPStatus maps error codes to HTTP status codes
func getHTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeTemplateNotFound:
		return http.StatusNotFound
	case ErrCodeCompositionNotFound, ErrCodeInvalidInput,
		ErrCodeMissingParameter, ErrCodeRenderingRejected:
		return http.StatusBadRequest
	case ErrCodeExecutionFailed, ErrCodeBackendUnavailable:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// CodeOf extracts the error code from err, or ErrCodeInternalError for
// untyped errors.
func CodeOf(err error) ErrorCode {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Code
	}
	return ErrCodeInternalError
}

// StatusOf extracts the HTTP status from err, defaulting to 500.
func StatusOf(err error) int {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Status
	}
	return http.StatusInternalServerError
}

// MessageOf extracts the human-readable message from err. Untyped errors
// return their Error() string.
func MessageOf(err error) string {
	var engErr *EngineError
	if errors.As(err, &engErr) {
		return engErr.Message
	}
	return err.Error()
}

// IsNotFound checks if the error is a not found error
func IsNotFound(err error) bool {
	code := CodeOf(err)
	return code == ErrCodeTemplateNotFound || code == ErrCodeCompositionNotFound
}
