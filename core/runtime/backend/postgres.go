package backend

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/domain/interfaces"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
)

// PostgresBackend implements the Backend interface for PostgreSQL using
// pgx/v5. Sessions are pooled connections; query bodies bind parameters with
// pgx named arguments (@name).
type PostgresBackend struct {
	pool *pgxpool.Pool
}

// NewPostgresBackend creates a new PostgreSQL backend
func NewPostgresBackend(dsn string) (*PostgresBackend, error) {
	log := logging.New("backend:postgres")
	log.Debugf("Opening PostgreSQL connection pool (pgx/v5)")

	config, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres connection string: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}

	log.Debugf("Testing connection with ping")
	if err := pool.Ping(context.Background()); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres database: %w", err)
	}

	log.Debugf("PostgreSQL connection pool opened successfully")
	return &PostgresBackend{pool: pool}, nil
}

// Acquire obtains one pooled connection as a scoped session
func (p *PostgresBackend) Acquire(ctx context.Context) (interfaces.Session, error) {
	conn, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire postgres connection: %w", err)
	}
	return &postgresSession{conn: conn}, nil
}

// Ping verifies backend connectivity
func (p *PostgresBackend) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

// Close closes the connection pool
func (p *PostgresBackend) Close() error {
	if p.pool != nil {
		p.pool.Close()
	}
	return nil
}

type postgresSession struct {
	conn *pgxpool.Conn
}

// Run executes a query on this session with named-argument binding
func (s *postgresSession) Run(ctx context.Context, query string, params map[string]any) ([]domain.Record, error) {
	rows, err := s.conn.Query(ctx, query, pgx.NamedArgs(params))
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	fieldDescriptions := rows.FieldDescriptions()
	columns := make([]string, len(fieldDescriptions))
	for i, fd := range fieldDescriptions {
		columns[i] = string(fd.Name)
	}

	var results []domain.Record
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("failed to get row values: %w", err)
		}

		record := make(domain.Record, len(columns))
		for i, col := range columns {
			if i < len(values) {
				record[col] = values[i]
			}
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// Close releases the connection back to the pool
func (s *postgresSession) Close() error {
	if s.conn != nil {
		s.conn.Release()
		s.conn = nil
	}
	return nil
}
