package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/domain/interfaces"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
	"github.com/graphquill/graphquill/core/shared/errors"
)

// SQLStore is a DefinitionStore backed by a relational database via
// database/sql. Supported drivers: postgres (lib/pq) and mysql.
type SQLStore struct {
	db     *sql.DB
	driver string
	log    interfaces.Logger
}

// OpenSQL opens a SQL-backed definition store
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	if driver != "postgres" && driver != "mysql" {
		return nil, fmt.Errorf("unsupported store driver '%s'", driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s store: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s store: %w", driver, err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return NewSQLStore(db, driver), nil
}

// NewSQLStore wraps an already-open database handle
func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{
		db:     db,
		driver: driver,
		log:    logging.New("store:sql"),
	}
}

// rebind rewrites ? placeholders to $n for postgres. Queries in this file
// are written with ? placeholders.
func (s *SQLStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS templates (
		name VARCHAR(255) PRIMARY KEY,
		description TEXT,
		purpose TEXT,
		query_body TEXT,
		version VARCHAR(64),
		composition_kind VARCHAR(16),
		updated_at TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS template_parameters (
		template_name VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(64),
		description TEXT,
		required BOOLEAN NOT NULL,
		source VARCHAR(32) NOT NULL,
		PRIMARY KEY (template_name, name)
	)`,
	`CREATE TABLE IF NOT EXISTS template_returns (
		template_name VARCHAR(255) NOT NULL,
		name VARCHAR(255) NOT NULL,
		type VARCHAR(64),
		description TEXT,
		PRIMARY KEY (template_name, name)
	)`,
	`CREATE TABLE IF NOT EXISTS template_examples (
		template_name VARCHAR(255) NOT NULL,
		position INT NOT NULL,
		input_json TEXT,
		output_json TEXT,
		PRIMARY KEY (template_name, position)
	)`,
	`CREATE TABLE IF NOT EXISTS composition_components (
		composition_name VARCHAR(255) NOT NULL,
		component_name VARCHAR(255) NOT NULL,
		order_index INT NOT NULL,
		PRIMARY KEY (composition_name, order_index)
	)`,
}

// InstallSchema creates the definition tables if they do not exist
func (s *SQLStore) InstallSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to install store schema: %w", err)
		}
	}
	s.log.Info("Definition store schema installed")
	return nil
}

// Lookup returns the template definition for name
func (s *SQLStore) Lookup(ctx context.Context, name string) (*domain.Template, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT name, description, purpose, query_body, version, composition_kind, updated_at
		 FROM templates WHERE name = ?`), name)

	tpl, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, errors.TemplateNotFound(name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up template '%s': %w", name, err)
	}

	if err := s.loadParameters(ctx, tpl); err != nil {
		return nil, err
	}
	if err := s.loadReturns(ctx, tpl); err != nil {
		return nil, err
	}
	if err := s.loadExamples(ctx, tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// LookupComposition returns the composition metadata for a composed template
func (s *SQLStore) LookupComposition(ctx context.Context, name string) (*domain.Composition, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(
		`SELECT composition_kind FROM templates WHERE name = ?`), name)

	var kind sql.NullString
	if err := row.Scan(&kind); err == sql.ErrNoRows {
		return nil, errors.CompositionNotFound(name)
	} else if err != nil {
		return nil, fmt.Errorf("failed to look up composition '%s': %w", name, err)
	}
	if !kind.Valid || kind.String == "" {
		return nil, errors.CompositionNotFound(name)
	}

	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT component_name, order_index FROM composition_components
		 WHERE composition_name = ? ORDER BY order_index ASC`), name)
	if err != nil {
		return nil, fmt.Errorf("failed to load components for '%s': %w", name, err)
	}
	defer rows.Close()

	comp := &domain.Composition{
		Name: name,
		Kind: domain.CompositionKind(kind.String),
	}
	for rows.Next() {
		var ref domain.ComponentRef
		if err := rows.Scan(&ref.TemplateName, &ref.Order); err != nil {
			return nil, fmt.Errorf("failed to scan component row: %w", err)
		}
		comp.Components = append(comp.Components, ref)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating component rows: %w", err)
	}

	if len(comp.Components) == 0 {
		return nil, errors.CompositionNotFound(name)
	}
	return comp, nil
}

// Create stores a new template definition
func (s *SQLStore) Create(ctx context.Context, tpl *domain.Template) error {
	if tpl.Name == "" {
		return errors.InvalidInput("template name must not be empty")
	}

	updatedAt := tpl.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO templates (name, description, purpose, query_body, version, composition_kind, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		tpl.Name, tpl.Description, tpl.Purpose, tpl.QueryBody, tpl.Version,
		string(tpl.CompositionKind), updatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert template '%s': %w", tpl.Name, err)
	}

	for _, p := range tpl.Parameters {
		_, err = tx.ExecContext(ctx, s.rebind(
			`INSERT INTO template_parameters (template_name, name, type, description, required, source)
			 VALUES (?, ?, ?, ?, ?, ?)`),
			tpl.Name, p.Name, p.Type, p.Description, p.Required, string(p.EffectiveSource()))
		if err != nil {
			return fmt.Errorf("failed to insert parameter '%s': %w", p.Name, err)
		}
	}

	for _, r := range tpl.Returns {
		_, err = tx.ExecContext(ctx, s.rebind(
			`INSERT INTO template_returns (template_name, name, type, description)
			 VALUES (?, ?, ?, ?)`),
			tpl.Name, r.Name, r.Type, r.Description)
		if err != nil {
			return fmt.Errorf("failed to insert return '%s': %w", r.Name, err)
		}
	}

	for i, ex := range tpl.Examples {
		inputJSON, err := json.Marshal(ex.Input)
		if err != nil {
			return fmt.Errorf("failed to encode example input: %w", err)
		}
		outputJSON, err := json.Marshal(ex.Output)
		if err != nil {
			return fmt.Errorf("failed to encode example output: %w", err)
		}
		_, err = tx.ExecContext(ctx, s.rebind(
			`INSERT INTO template_examples (template_name, position, input_json, output_json)
			 VALUES (?, ?, ?, ?)`),
			tpl.Name, i, string(inputJSON), string(outputJSON))
		if err != nil {
			return fmt.Errorf("failed to insert example: %w", err)
		}
	}

	return tx.Commit()
}

// Compose creates a composed template from existing component templates
func (s *SQLStore) Compose(ctx context.Context, name, description string, kind domain.CompositionKind, componentNames []string) (*domain.Template, error) {
	if !kind.Valid() {
		return nil, errors.InvalidInput("composition_type must be SEQUENCE or PARALLEL")
	}
	if len(componentNames) == 0 {
		return nil, errors.InvalidInput("composition requires at least one component template")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// Verify all component templates exist before creating any edges
	for _, componentName := range componentNames {
		var one int
		err := tx.QueryRowContext(ctx, s.rebind(
			`SELECT 1 FROM templates WHERE name = ?`), componentName).Scan(&one)
		if err == sql.ErrNoRows {
			return nil, errors.InvalidInput("one or more templates not found")
		}
		if err != nil {
			return nil, fmt.Errorf("failed to verify component '%s': %w", componentName, err)
		}
	}

	composed := &domain.Template{
		Name:            name,
		Description:     description,
		Purpose:         "Composed template",
		Version:         "1.0",
		UpdatedAt:       time.Now().UTC(),
		CompositionKind: kind,
	}

	_, err = tx.ExecContext(ctx, s.rebind(
		`INSERT INTO templates (name, description, purpose, query_body, version, composition_kind, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`),
		composed.Name, composed.Description, composed.Purpose, "", composed.Version,
		string(kind), composed.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert composed template '%s': %w", name, err)
	}

	for i, componentName := range componentNames {
		_, err = tx.ExecContext(ctx, s.rebind(
			`INSERT INTO composition_components (composition_name, component_name, order_index)
			 VALUES (?, ?, ?)`),
			name, componentName, i)
		if err != nil {
			return nil, fmt.Errorf("failed to insert component edge '%s': %w", componentName, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return composed, nil
}

// Search returns templates whose description or purpose contains term, most
// recently updated first
func (s *SQLStore) Search(ctx context.Context, term string) ([]*domain.Template, error) {
	pattern := "%" + term + "%"
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT name, description, purpose, query_body, version, composition_kind, updated_at
		 FROM templates
		 WHERE description LIKE ? OR purpose LIKE ?
		 ORDER BY updated_at DESC`), pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to search templates: %w", err)
	}
	defer rows.Close()

	var results []*domain.Template
	for rows.Next() {
		tpl, err := scanTemplate(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan template row: %w", err)
		}
		results = append(results, tpl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template rows: %w", err)
	}

	for _, tpl := range results {
		if err := s.loadParameters(ctx, tpl); err != nil {
			return nil, err
		}
	}
	return results, nil
}

// Delete removes a template and its metadata rows in one transaction
func (s *SQLStore) Delete(ctx context.Context, name string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, s.rebind(`DELETE FROM templates WHERE name = ?`), name)
	if err != nil {
		return fmt.Errorf("failed to delete template '%s': %w", name, err)
	}
	affected, err := res.RowsAffected()
	if err == nil && affected == 0 {
		return errors.TemplateNotFound(name)
	}

	for _, stmt := range []string{
		`DELETE FROM template_parameters WHERE template_name = ?`,
		`DELETE FROM template_returns WHERE template_name = ?`,
		`DELETE FROM template_examples WHERE template_name = ?`,
		`DELETE FROM composition_components WHERE composition_name = ?`,
	} {
		if _, err := tx.ExecContext(ctx, s.rebind(stmt), name); err != nil {
			return fmt.Errorf("failed to delete template metadata: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit delete of '%s': %w", name, err)
	}
	return nil
}

// Close closes the database handle
func (s *SQLStore) Close() error {
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTemplate(row rowScanner) (*domain.Template, error) {
	var tpl domain.Template
	var description, purpose, queryBody, version, kind sql.NullString
	var updatedAt sql.NullTime

	if err := row.Scan(&tpl.Name, &description, &purpose, &queryBody, &version, &kind, &updatedAt); err != nil {
		return nil, err
	}

	tpl.Description = description.String
	tpl.Purpose = purpose.String
	tpl.QueryBody = queryBody.String
	tpl.Version = version.String
	tpl.CompositionKind = domain.CompositionKind(kind.String)
	if updatedAt.Valid {
		tpl.UpdatedAt = updatedAt.Time
	}
	return &tpl, nil
}

func (s *SQLStore) loadParameters(ctx context.Context, tpl *domain.Template) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT name, type, description, required, source
		 FROM template_parameters WHERE template_name = ? ORDER BY name ASC`), tpl.Name)
	if err != nil {
		return fmt.Errorf("failed to load parameters for '%s': %w", tpl.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var p domain.ParameterSpec
		var source string
		if err := rows.Scan(&p.Name, &p.Type, &p.Description, &p.Required, &source); err != nil {
			return fmt.Errorf("failed to scan parameter row: %w", err)
		}
		p.Source = domain.ParameterSource(source)
		tpl.Parameters = append(tpl.Parameters, p)
	}
	return rows.Err()
}

func (s *SQLStore) loadReturns(ctx context.Context, tpl *domain.Template) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT name, type, description
		 FROM template_returns WHERE template_name = ? ORDER BY name ASC`), tpl.Name)
	if err != nil {
		return fmt.Errorf("failed to load returns for '%s': %w", tpl.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var r domain.ReturnSpec
		if err := rows.Scan(&r.Name, &r.Type, &r.Description); err != nil {
			return fmt.Errorf("failed to scan return row: %w", err)
		}
		tpl.Returns = append(tpl.Returns, r)
	}
	return rows.Err()
}

func (s *SQLStore) loadExamples(ctx context.Context, tpl *domain.Template) error {
	rows, err := s.db.QueryContext(ctx, s.rebind(
		`SELECT input_json, output_json
		 FROM template_examples WHERE template_name = ? ORDER BY position ASC`), tpl.Name)
	if err != nil {
		return fmt.Errorf("failed to load examples for '%s': %w", tpl.Name, err)
	}
	defer rows.Close()

	for rows.Next() {
		var inputJSON, outputJSON string
		if err := rows.Scan(&inputJSON, &outputJSON); err != nil {
			return fmt.Errorf("failed to scan example row: %w", err)
		}
		var ex domain.Example
		if err := json.Unmarshal([]byte(inputJSON), &ex.Input); err != nil {
			return fmt.Errorf("failed to decode example input: %w", err)
		}
		if err := json.Unmarshal([]byte(outputJSON), &ex.Output); err != nil {
			return fmt.Errorf("failed to decode example output: %w", err)
		}
		tpl.Examples = append(tpl.Examples, ex)
	}
	return rows.Err()
}
