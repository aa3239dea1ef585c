package interfaces

import (
	"context"

	"github.com/graphquill/graphquill/core/domain"
)

// Session is one scoped backend session. Sessions are stateful and must not
// be used concurrently from two threads of control; a SEQUENCE composition
// runs all of its components on a single session, and concurrent PARALLEL
// branches each acquire their own.
type Session interface {
	// Run executes a query with the given bound parameters and returns the
	// result records. An empty record set is a normal successful outcome.
	Run(ctx context.Context, query string, params map[string]any) ([]domain.Record, error)

	// Close releases the session back to the backend. It must be called on
	// every exit path once a session has been acquired.
	Close() error
}

// Backend is a query/storage backend capable of handing out sessions.
type Backend interface {
	// Acquire obtains a session scoped to one execution (or one parallel
	// branch). Released via Session.Close.
	Acquire(ctx context.Context) (Session, error)

	// Ping verifies backend connectivity.
	Ping(ctx context.Context) error

	// Close closes the backend and releases all resources.
	Close() error
}
