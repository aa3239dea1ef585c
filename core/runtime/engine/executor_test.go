package engine_test

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/domain/interfaces"
	"github.com/graphquill/graphquill/core/runtime/engine"
	"github.com/graphquill/graphquill/core/runtime/store"
	"github.com/graphquill/graphquill/core/shared/errors"
)

// fakeBackend hands out fakeSessions and records how many were acquired.
type fakeBackend struct {
	mu         sync.Mutex
	acquired   int
	acquireErr error
	pingErr    error
	run        func(query string, params map[string]any) ([]domain.Record, error)
}

func (b *fakeBackend) Acquire(ctx context.Context) (interfaces.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.acquireErr != nil {
		return nil, b.acquireErr
	}
	b.acquired++
	return &fakeSession{backend: b}, nil
}

func (b *fakeBackend) Ping(ctx context.Context) error { return b.pingErr }
func (b *fakeBackend) Close() error                   { return nil }

func (b *fakeBackend) sessions() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.acquired
}

type fakeSession struct {
	backend *fakeBackend
	closed  bool
}

func (s *fakeSession) Run(ctx context.Context, query string, params map[string]any) ([]domain.Record, error) {
	return s.backend.run(query, params)
}

func (s *fakeSession) Close() error {
	s.closed = true
	return nil
}

func seedStore(t *testing.T, templates ...*domain.Template) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	for _, tpl := range templates {
		require.NoError(t, s.Create(context.Background(), tpl))
	}
	return s
}

func findUserTemplate() *domain.Template {
	return &domain.Template{
		Name:        "find_user",
		Description: "Find a user by username",
		QueryBody:   "SELECT user_id, name FROM users WHERE username = :username",
		Parameters: []domain.ParameterSpec{
			{Name: "username", Type: "string", Required: true, Source: domain.SourceInput},
		},
	}
}

func countRelationshipsTemplate() *domain.Template {
	return &domain.Template{
		Name:        "count_relationships",
		Description: "Count relationships for a user",
		QueryBody:   "SELECT count(*) AS n FROM follows WHERE from_id = :user_id",
		Parameters: []domain.ParameterSpec{
			{Name: "user_id", Type: "string", Required: true, Source: domain.SourcePreviousResult},
		},
	}
}

func TestExecuteSimpleTemplate(t *testing.T) {
	s := seedStore(t, findUserTemplate())
	backend := &fakeBackend{
		run: func(query string, params map[string]any) ([]domain.Record, error) {
			assert.Equal(t, map[string]any{"username": "marcus"}, params)
			return []domain.Record{{"user_id": "u-1", "name": "Marcus"}}, nil
		},
	}

	eng := engine.New(s, backend)
	records, err := eng.Execute(context.Background(), "find_user", map[string]any{"username": "marcus"})
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.Equal(t, "u-1", records[0]["user_id"])
}

func TestExecuteEmptyResultIsSuccess(t *testing.T) {
	s := seedStore(t, findUserTemplate())
	backend := &fakeBackend{
		run: func(query string, params map[string]any) ([]domain.Record, error) {
			return nil, nil
		},
	}

	eng := engine.New(s, backend)
	records, err := eng.Execute(context.Background(), "find_user", map[string]any{"username": "nobody"})
	require.NoError(t, err)

	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestExecuteTemplateNotFound(t *testing.T) {
	eng := engine.New(seedStore(t), &fakeBackend{})

	_, err := eng.Execute(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTemplateNotFound, errors.CodeOf(err))
}

func TestExecuteMissingRequiredParameter(t *testing.T) {
	eng := engine.New(seedStore(t, findUserTemplate()), &fakeBackend{})

	_, err := eng.Execute(context.Background(), "find_user", map[string]any{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeMissingParameter, errors.CodeOf(err))
	assert.Equal(t, "Missing required parameter for find_user: username", errors.MessageOf(err))
}

func TestExecuteBackendUnavailable(t *testing.T) {
	backend := &fakeBackend{acquireErr: stderrors.New("connection refused")}
	eng := engine.New(seedStore(t, findUserTemplate()), backend)

	_, err := eng.Execute(context.Background(), "find_user", map[string]any{"username": "marcus"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBackendUnavailable, errors.CodeOf(err))
}

func TestExecuteBackendFailure(t *testing.T) {
	backend := &fakeBackend{
		run: func(query string, params map[string]any) ([]domain.Record, error) {
			return nil, stderrors.New("syntax error")
		},
	}
	eng := engine.New(seedStore(t, findUserTemplate()), backend)

	_, err := eng.Execute(context.Background(), "find_user", map[string]any{"username": "marcus"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeExecutionFailed, errors.CodeOf(err))
}

func TestExecuteRejectsComposedTemplate(t *testing.T) {
	s := seedStore(t, findUserTemplate(), countRelationshipsTemplate())
	_, err := s.Compose(context.Background(), "chain1", "", domain.KindSequence,
		[]string{"find_user", "count_relationships"})
	require.NoError(t, err)

	eng := engine.New(s, &fakeBackend{})
	_, err = eng.Execute(context.Background(), "chain1", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
}

func TestExecuteComposedNotFound(t *testing.T) {
	eng := engine.New(seedStore(t), &fakeBackend{})

	_, err := eng.ExecuteComposed(context.Background(), "missing", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeCompositionNotFound, errors.CodeOf(err))
}

func TestExecuteComposedSequenceChainsFirstRecord(t *testing.T) {
	s := seedStore(t, findUserTemplate(), countRelationshipsTemplate())
	_, err := s.Compose(context.Background(), "chain1", "", domain.KindSequence,
		[]string{"find_user", "count_relationships"})
	require.NoError(t, err)

	backend := &fakeBackend{}
	backend.run = func(query string, params map[string]any) ([]domain.Record, error) {
		if _, ok := params["username"]; ok {
			return []domain.Record{
				{"user_id": "u-9", "name": "Marcus"},
				{"user_id": "u-10", "name": "Other"},
			}, nil
		}
		// Second component must see the FIRST record of the prior result.
		assert.Equal(t, "u-9", params["user_id"])
		return []domain.Record{{"n": 12}}, nil
	}

	eng := engine.New(s, backend)
	results, err := eng.ExecuteComposed(context.Background(), "chain1", map[string]any{"username": "marcus"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "find_user", results[0].TemplateName)
	assert.Equal(t, "count_relationships", results[1].TemplateName)
	assert.False(t, results[0].Failed())
	assert.False(t, results[1].Failed())
	assert.Equal(t, 12, results[1].Records[0]["n"])

	assert.Equal(t, 1, backend.sessions(), "a sequence runs on one session")
}

func TestExecuteComposedSequenceCascade(t *testing.T) {
	s := seedStore(t, findUserTemplate(), countRelationshipsTemplate())
	_, err := s.Compose(context.Background(), "chain1", "", domain.KindSequence,
		[]string{"find_user", "count_relationships"})
	require.NoError(t, err)

	backend := &fakeBackend{
		run: func(query string, params map[string]any) ([]domain.Record, error) {
			return nil, stderrors.New("database exploded")
		},
	}

	eng := engine.New(s, backend)
	results, err := eng.ExecuteComposed(context.Background(), "chain1", map[string]any{"username": "marcus"})
	require.NoError(t, err, "component failures never fail the whole composed request")

	require.Len(t, results, 2)
	assert.True(t, results[0].Failed())
	assert.Contains(t, results[0].Error, "find_user")

	// The second component's previous_result parameter finds nothing in the
	// failed prior's empty record set and records its own failure.
	assert.True(t, results[1].Failed())
	assert.Equal(t, "Missing required parameter for count_relationships: user_id", results[1].Error)
	assert.Empty(t, results[1].Records)
}

func TestExecuteComposedSequenceEmptyPriorCascades(t *testing.T) {
	s := seedStore(t, findUserTemplate(), countRelationshipsTemplate())
	_, err := s.Compose(context.Background(), "chain1", "", domain.KindSequence,
		[]string{"find_user", "count_relationships"})
	require.NoError(t, err)

	backend := &fakeBackend{
		run: func(query string, params map[string]any) ([]domain.Record, error) {
			return []domain.Record{}, nil
		},
	}

	eng := engine.New(s, backend)
	results, err := eng.ExecuteComposed(context.Background(), "chain1", map[string]any{"username": "ghost"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.False(t, results[0].Failed(), "an empty result set is a success")
	assert.Equal(t, "Missing required parameter for count_relationships: user_id", results[1].Error)
}

func TestExecuteComposedSequenceBackendUnavailable(t *testing.T) {
	s := seedStore(t, findUserTemplate())
	_, err := s.Compose(context.Background(), "solo", "", domain.KindSequence, []string{"find_user"})
	require.NoError(t, err)

	backend := &fakeBackend{acquireErr: stderrors.New("connection refused")}
	eng := engine.New(s, backend)

	_, err = eng.ExecuteComposed(context.Background(), "solo", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBackendUnavailable, errors.CodeOf(err))
}

func TestExecuteComposedParallelIsolatesFailures(t *testing.T) {
	okTpl := &domain.Template{
		Name:      "list_users",
		QueryBody: "SELECT * FROM users",
	}
	badTpl := &domain.Template{
		Name:      "broken",
		QueryBody: "SELECT * FROM nowhere",
	}
	s := seedStore(t, okTpl, badTpl)
	_, err := s.Compose(context.Background(), "fanout", "", domain.KindParallel,
		[]string{"list_users", "broken", "list_users"})
	require.NoError(t, err)

	backend := &fakeBackend{}
	backend.run = func(query string, params map[string]any) ([]domain.Record, error) {
		if query == "SELECT * FROM nowhere" {
			return nil, stderrors.New("no such table")
		}
		return []domain.Record{{"id": 1}}, nil
	}

	eng := engine.New(s, backend)
	results, err := eng.ExecuteComposed(context.Background(), "fanout", nil)
	require.NoError(t, err)

	require.Len(t, results, 3)
	assert.Equal(t, []string{"list_users", "broken", "list_users"},
		[]string{results[0].TemplateName, results[1].TemplateName, results[2].TemplateName},
		"results keep declared order regardless of completion order")

	assert.False(t, results[0].Failed())
	assert.True(t, results[1].Failed())
	assert.False(t, results[2].Failed())

	assert.Equal(t, 3, backend.sessions(), "each parallel branch gets its own session")
}

func TestExecuteComposedParallelBranchesIgnorePriorResults(t *testing.T) {
	first := &domain.Template{
		Name:      "emit_id",
		QueryBody: "SELECT 'u-1' AS user_id",
	}
	second := countRelationshipsTemplate()
	s := seedStore(t, first, second)
	_, err := s.Compose(context.Background(), "fanout", "", domain.KindParallel,
		[]string{"emit_id", "count_relationships"})
	require.NoError(t, err)

	backend := &fakeBackend{}
	backend.run = func(query string, params map[string]any) ([]domain.Record, error) {
		if _, ok := params["user_id"]; ok {
			// previous_result in PARALLEL resolves from the original input,
			// never from a sibling branch.
			assert.Equal(t, "from-input", params["user_id"])
			return []domain.Record{{"n": 1}}, nil
		}
		return []domain.Record{{"user_id": "u-1"}}, nil
	}

	eng := engine.New(s, backend)
	results, err := eng.ExecuteComposed(context.Background(), "fanout",
		map[string]any{"user_id": "from-input"})
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.False(t, results[0].Failed())
	assert.False(t, results[1].Failed())
}

func TestExecuteComposedParallelBackendUnavailable(t *testing.T) {
	s := seedStore(t, findUserTemplate())
	_, err := s.Compose(context.Background(), "fanout", "", domain.KindParallel, []string{"find_user"})
	require.NoError(t, err)

	backend := &fakeBackend{pingErr: stderrors.New("connection refused")}
	eng := engine.New(s, backend)

	_, err = eng.ExecuteComposed(context.Background(), "fanout", nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeBackendUnavailable, errors.CodeOf(err))
}

func TestExecuteComposedComponentRenderingRejectionIsIsolated(t *testing.T) {
	tpl := &domain.Template{
		Name:      "traverse",
		QueryBody: "MATCH (a)-[r:{{ ident.relationship_type }}]->(b) RETURN b",
		Parameters: []domain.ParameterSpec{
			{Name: "relationship_type", Type: "string", Required: true},
		},
	}
	s := seedStore(t, tpl)
	_, err := s.Compose(context.Background(), "solo", "", domain.KindSequence, []string{"traverse"})
	require.NoError(t, err)

	backend := &fakeBackend{
		run: func(query string, params map[string]any) ([]domain.Record, error) {
			t.Fatal("rejected component must not reach the backend")
			return nil, nil
		},
	}

	eng := engine.New(s, backend)
	results, err := eng.ExecuteComposed(context.Background(), "solo",
		map[string]any{"relationship_type": "FOLLOWS]->(x) //"})
	require.NoError(t, err)

	require.Len(t, results, 1)
	assert.True(t, results[0].Failed())
	assert.Empty(t, results[0].Records)
}
