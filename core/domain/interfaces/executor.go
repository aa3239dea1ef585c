package interfaces

import (
	"context"

	"github.com/graphquill/graphquill/core/domain"
)

// Executor defines the interface for template execution
type Executor interface {
	// Execute runs a simple (non-composed) template by name with the caller's
	// parameter map and returns the raw record list. An empty record set is a
	// success, not an error.
	Execute(ctx context.Context, name string, input map[string]any) ([]domain.Record, error)

	// ExecuteComposed runs a composed template's components according to its
	// composition kind and returns one ComponentResult per component, ordered
	// by declared order. Per-component failures are recorded in the results,
	// never raised.
	ExecuteComposed(ctx context.Context, name string, input map[string]any) ([]domain.ComponentResult, error)
}
