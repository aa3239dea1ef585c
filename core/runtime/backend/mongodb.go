package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoOptions "go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/domain/interfaces"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
)

// MongoBackend implements the Backend interface for MongoDB. Query bodies
// are JSON statements with "database" and "command" fields, executed via
// RunCommand; bound parameters are substituted as JSON-encoded values at
// {{ params.name }} placeholders before the statement is parsed.
//
// Example statements:
//
//	{ "database": "mydb", "command": { "find": "users", "filter": { "id": {{ params.user_id }} } } }
//	{ "database": "mydb", "command": { "count": "follows", "query": { "from": {{ params.user_id }} } } }
type MongoBackend struct {
	client *mongo.Client
}

// NewMongoBackend creates a new MongoDB backend
func NewMongoBackend(dsn string) (*MongoBackend, error) {
	log := logging.New("backend:mongodb")
	log.Debugf("Opening MongoDB connection")

	opts := mongoOptions.Client().ApplyURI(dsn)
	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	log.Debugf("Testing connection with ping")
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	log.Debugf("MongoDB connection opened successfully")
	return &MongoBackend{client: client}, nil
}

// Acquire returns a session bound to this client. The mongo client manages
// its own connection pool; the session wrapper keeps acquisition scoped the
// same way as the SQL backends.
func (m *MongoBackend) Acquire(ctx context.Context) (interfaces.Session, error) {
	return &mongoSession{client: m.client}, nil
}

// Ping verifies backend connectivity
func (m *MongoBackend) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

// Close disconnects the client
func (m *MongoBackend) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}

type mongoSession struct {
	client *mongo.Client
}

// mongoStatement represents the JSON structure for a MongoDB command.
// Command is kept as json.RawMessage so it can be parsed into an ordered
// bson.D, which RunCommand requires (the command name must be the first key).
type mongoStatement struct {
	Database string          `json:"database"`
	Command  json.RawMessage `json:"command"`
}

// Run substitutes bound parameters into the JSON statement and executes it
func (s *mongoSession) Run(ctx context.Context, query string, params map[string]any) ([]domain.Record, error) {
	statement, err := substituteParams(query, params)
	if err != nil {
		return nil, err
	}

	var stmt mongoStatement
	if err := json.Unmarshal([]byte(statement), &stmt); err != nil {
		return nil, fmt.Errorf("mongodb statement must be valid JSON: %w", err)
	}
	if stmt.Database == "" {
		return nil, fmt.Errorf("mongodb statement must include database")
	}
	if len(stmt.Command) == 0 {
		return nil, fmt.Errorf("mongodb statement must include command")
	}

	var cmd bson.D
	if err := bson.UnmarshalExtJSON(stmt.Command, false, &cmd); err != nil {
		return nil, fmt.Errorf("invalid mongodb command: %w", err)
	}

	db := s.client.Database(stmt.Database)

	var result bson.M
	if err := db.RunCommand(ctx, cmd).Decode(&result); err != nil {
		return nil, fmt.Errorf("mongodb command failed: %w", err)
	}

	return extractRecords(result), nil
}

// Close is a no-op; the client owns the underlying pool
func (s *mongoSession) Close() error {
	return nil
}

// substituteParams replaces {{ params.name }} placeholders with JSON-encoded
// values.
func substituteParams(statement string, params map[string]any) (string, error) {
	result := statement
	for name, value := range params {
		placeholders := []string{
			"{{ params." + name + " }}",
			"{{params." + name + "}}",
		}
		encoded, err := json.Marshal(value)
		if err != nil {
			return "", fmt.Errorf("cannot encode parameter '%s': %w", name, err)
		}
		for _, placeholder := range placeholders {
			result = strings.ReplaceAll(result, placeholder, string(encoded))
		}
	}
	return result, nil
}

// extractRecords converts a RunCommand reply to result records. Cursor-style
// replies (find/aggregate) yield one record per firstBatch document; other
// replies yield the reply document itself.
func extractRecords(result bson.M) []domain.Record {
	if cursor, ok := result["cursor"]; ok {
		if cursorDoc, ok := cursor.(bson.M); ok {
			if firstBatch, ok := cursorDoc["firstBatch"]; ok {
				if batch, ok := firstBatch.(bson.A); ok {
					records := make([]domain.Record, 0, len(batch))
					for _, doc := range batch {
						if m, ok := doc.(bson.M); ok {
							records = append(records, domain.Record(m))
						}
					}
					return records
				}
			}
		}
	}

	delete(result, "ok")
	return []domain.Record{domain.Record(result)}
}
