package context

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	// requestIDKey is the context key for the per-request ID
	requestIDKey contextKey = "request_id"
	// executionIDKey is the context key for the per-execution ID assigned by
	// the engine
	executionIDKey contextKey = "execution_id"
)

// WithRequestID adds a request ID to the context
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID retrieves the request ID from context
func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}

// WithExecutionID adds an execution ID to the context
func WithExecutionID(ctx context.Context, executionID string) context.Context {
	return context.WithValue(ctx, executionIDKey, executionID)
}

// GetExecutionID retrieves the execution ID from context
func GetExecutionID(ctx context.Context) string {
	if id, ok := ctx.Value(executionIDKey).(string); ok {
		return id
	}
	return ""
}

// NewID generates a unique identifier for requests and executions
func NewID() string {
	return uuid.NewString()
}
