package backend

import (
	"fmt"

	"github.com/graphquill/graphquill/core/domain/interfaces"
)

// Kind identifies a backend implementation.
type Kind string

const (
	KindPostgres Kind = "postgres"
	KindMySQL    Kind = "mysql"
	KindMongoDB  Kind = "mongodb"
)

// Config describes one backend to connect to.
type Config struct {
	// Name identifies the backend in logs and in the manager.
	Name string
	// Kind selects the implementation.
	Kind Kind
	// DSN is the backend connection string.
	DSN string
}

// New creates a backend from its configuration.
func New(cfg Config) (interfaces.Backend, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("backend '%s' missing connection string", cfg.Name)
	}

	switch cfg.Kind {
	case KindPostgres:
		return NewPostgresBackend(cfg.DSN)
	case KindMySQL:
		return NewMySQLBackend(cfg.DSN)
	case KindMongoDB:
		return NewMongoBackend(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported backend kind '%s' for '%s'", cfg.Kind, cfg.Name)
	}
}
