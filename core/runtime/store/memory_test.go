package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/runtime/store"
	"github.com/graphquill/graphquill/core/shared/errors"
)

func newSeededMemoryStore(t *testing.T) *store.MemoryStore {
	t.Helper()
	s := store.NewMemoryStore()
	ctx := context.Background()

	require.NoError(t, s.Create(ctx, &domain.Template{
		Name:        "find_user",
		Description: "Find a user by username",
		Purpose:     "user lookup",
		QueryBody:   "SELECT * FROM users WHERE username = :username",
		UpdatedAt:   time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}))
	require.NoError(t, s.Create(ctx, &domain.Template{
		Name:        "count_follows",
		Description: "Count follow relationships",
		Purpose:     "relationship counting",
		QueryBody:   "SELECT count(*) FROM follows WHERE from_id = :user_id",
		UpdatedAt:   time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC),
	}))
	return s
}

func TestMemoryStoreLookup(t *testing.T) {
	s := newSeededMemoryStore(t)

	tpl, err := s.Lookup(context.Background(), "find_user")
	require.NoError(t, err)
	assert.Equal(t, "find_user", tpl.Name)
	assert.False(t, tpl.IsComposed())

	_, err = s.Lookup(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTemplateNotFound, errors.CodeOf(err))
}

func TestMemoryStoreLookupReturnsCopy(t *testing.T) {
	s := newSeededMemoryStore(t)

	tpl, err := s.Lookup(context.Background(), "find_user")
	require.NoError(t, err)
	tpl.Description = "mutated"

	again, err := s.Lookup(context.Background(), "find_user")
	require.NoError(t, err)
	assert.Equal(t, "Find a user by username", again.Description)
}

func TestMemoryStoreCreateRequiresName(t *testing.T) {
	s := store.NewMemoryStore()
	err := s.Create(context.Background(), &domain.Template{})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
}

func TestMemoryStoreCompose(t *testing.T) {
	s := newSeededMemoryStore(t)
	ctx := context.Background()

	composed, err := s.Compose(ctx, "chain1", "user then follows", domain.KindSequence,
		[]string{"find_user", "count_follows"})
	require.NoError(t, err)
	assert.True(t, composed.IsComposed())
	assert.Equal(t, domain.KindSequence, composed.CompositionKind)

	comp, err := s.LookupComposition(ctx, "chain1")
	require.NoError(t, err)
	assert.Equal(t, domain.KindSequence, comp.Kind)

	ordered := comp.SortedComponents()
	require.Len(t, ordered, 2)
	assert.Equal(t, "find_user", ordered[0].TemplateName)
	assert.Equal(t, 0, ordered[0].Order)
	assert.Equal(t, "count_follows", ordered[1].TemplateName)
	assert.Equal(t, 1, ordered[1].Order)
}

func TestMemoryStoreComposeValidation(t *testing.T) {
	s := newSeededMemoryStore(t)
	ctx := context.Background()

	_, err := s.Compose(ctx, "bad", "", domain.CompositionKind("SIDEWAYS"), []string{"find_user"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))

	_, err = s.Compose(ctx, "bad", "", domain.KindParallel, nil)
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))

	_, err = s.Compose(ctx, "bad", "", domain.KindParallel, []string{"find_user", "ghost"})
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeInvalidInput, errors.CodeOf(err))
	assert.Equal(t, "one or more templates not found", errors.MessageOf(err))
}

func TestMemoryStoreLookupCompositionNotFound(t *testing.T) {
	s := newSeededMemoryStore(t)

	// Unknown name and simple template alike: no composition metadata.
	for _, name := range []string{"ghost", "find_user"} {
		_, err := s.LookupComposition(context.Background(), name)
		require.Error(t, err, name)
		assert.Equal(t, errors.ErrCodeCompositionNotFound, errors.CodeOf(err))
	}
}

func TestMemoryStoreSearch(t *testing.T) {
	s := newSeededMemoryStore(t)

	matches, err := s.Search(context.Background(), "relationship")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "count_follows", matches[0].Name)

	all, err := s.Search(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "count_follows", all[0].Name, "most recently updated first")
	assert.Equal(t, "find_user", all[1].Name)
}

func TestMemoryStoreDelete(t *testing.T) {
	s := newSeededMemoryStore(t)
	ctx := context.Background()

	_, err := s.Compose(ctx, "chain1", "", domain.KindSequence, []string{"find_user"})
	require.NoError(t, err)

	require.NoError(t, s.Delete(ctx, "chain1"))

	_, err = s.Lookup(ctx, "chain1")
	assert.Equal(t, errors.ErrCodeTemplateNotFound, errors.CodeOf(err))
	_, err = s.LookupComposition(ctx, "chain1")
	assert.Equal(t, errors.ErrCodeCompositionNotFound, errors.CodeOf(err))

	err = s.Delete(ctx, "chain1")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTemplateNotFound, errors.CodeOf(err))
}
