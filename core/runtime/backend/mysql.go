package backend

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	_ "github.com/go-sql-driver/mysql"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/domain/interfaces"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
)

// MySQLBackend implements the Backend interface for MySQL. Sessions are
// dedicated database/sql connections; query bodies bind parameters with
// :name placeholders, rewritten to positional ? arguments before execution
// since the MySQL protocol has no named binding.
type MySQLBackend struct {
	db *sql.DB
}

// NewMySQLBackend creates a new MySQL backend
func NewMySQLBackend(dsn string) (*MySQLBackend, error) {
	log := logging.New("backend:mysql")
	log.Debugf("Opening MySQL connection pool")

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	log.Debugf("Testing connection with ping")
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping mysql database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	log.Debugf("MySQL connection pool opened successfully")
	return &MySQLBackend{db: db}, nil
}

// Acquire obtains one dedicated connection as a scoped session
func (m *MySQLBackend) Acquire(ctx context.Context) (interfaces.Session, error) {
	conn, err := m.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire mysql connection: %w", err)
	}
	return &mysqlSession{conn: conn}, nil
}

// Ping verifies backend connectivity
func (m *MySQLBackend) Ping(ctx context.Context) error {
	return m.db.PingContext(ctx)
}

// Close closes the connection pool
func (m *MySQLBackend) Close() error {
	if m.db != nil {
		return m.db.Close()
	}
	return nil
}

type mysqlSession struct {
	conn *sql.Conn
}

// Named placeholder pattern: :name. Rewritten in order of appearance.
var mysqlNamedPattern = regexp.MustCompile(`:([A-Za-z_][A-Za-z0-9_]*)`)

// bindNamed rewrites :name placeholders to positional ? arguments.
func bindNamed(query string, params map[string]any) (string, []any, error) {
	var args []any
	var missing string

	rewritten := mysqlNamedPattern.ReplaceAllStringFunc(query, func(match string) string {
		name := match[1:]
		value, ok := params[name]
		if !ok {
			missing = name
			return match
		}
		args = append(args, value)
		return "?"
	})

	if missing != "" {
		return "", nil, fmt.Errorf("no value bound for parameter ':%s'", missing)
	}
	return rewritten, args, nil
}

// Run executes a query on this session
func (s *mysqlSession) Run(ctx context.Context, query string, params map[string]any) ([]domain.Record, error) {
	stmt, args, err := bindNamed(query, params)
	if err != nil {
		return nil, err
	}

	rows, err := s.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var results []domain.Record
	for rows.Next() {
		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		record := make(domain.Record, len(columns))
		for i, col := range columns {
			val := values[i]
			// Convert []byte to string for better JSON serialization
			if b, ok := val.([]byte); ok {
				record[col] = string(b)
			} else {
				record[col] = val
			}
		}
		results = append(results, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// Close returns the connection to the pool
func (s *mysqlSession) Close() error {
	if s.conn != nil {
		err := s.conn.Close()
		s.conn = nil
		return err
	}
	return nil
}
