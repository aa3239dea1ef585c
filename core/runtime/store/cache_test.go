package store_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/runtime/store"
	"github.com/graphquill/graphquill/core/shared/errors"
)

func newCachedStore(t *testing.T) (*store.CachedStore, *store.MemoryStore, *miniredis.Miniredis) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	inner := store.NewMemoryStore()

	return store.NewCachedStore(inner, client, time.Minute), inner, mr
}

func TestCachedStoreLookupReadThrough(t *testing.T) {
	cached, inner, mr := newCachedStore(t)
	ctx := context.Background()

	require.NoError(t, inner.Create(ctx, &domain.Template{
		Name:      "find_user",
		QueryBody: "SELECT * FROM users WHERE username = :username",
	}))

	tpl, err := cached.Lookup(ctx, "find_user")
	require.NoError(t, err)
	assert.Equal(t, "find_user", tpl.Name)
	assert.True(t, mr.Exists("tpl:find_user"), "lookup must populate the cache")

	// Served from cache even after the inner copy disappears.
	require.NoError(t, inner.Delete(ctx, "find_user"))
	again, err := cached.Lookup(ctx, "find_user")
	require.NoError(t, err)
	assert.Equal(t, "find_user", again.Name)
}

func TestCachedStoreLookupMissIsNotCached(t *testing.T) {
	cached, _, mr := newCachedStore(t)

	_, err := cached.Lookup(context.Background(), "ghost")
	require.Error(t, err)
	assert.Equal(t, errors.ErrCodeTemplateNotFound, errors.CodeOf(err))
	assert.False(t, mr.Exists("tpl:ghost"))
}

func TestCachedStoreWritesInvalidate(t *testing.T) {
	cached, _, mr := newCachedStore(t)
	ctx := context.Background()

	require.NoError(t, cached.Create(ctx, &domain.Template{
		Name:      "find_user",
		QueryBody: "SELECT 1",
	}))

	_, err := cached.Lookup(ctx, "find_user")
	require.NoError(t, err)
	require.True(t, mr.Exists("tpl:find_user"))

	require.NoError(t, cached.Delete(ctx, "find_user"))
	assert.False(t, mr.Exists("tpl:find_user"), "delete must drop the cache entry")

	_, err = cached.Lookup(ctx, "find_user")
	assert.Equal(t, errors.ErrCodeTemplateNotFound, errors.CodeOf(err))
}

func TestCachedStoreComposeInvalidatesAndCachesComposition(t *testing.T) {
	cached, _, mr := newCachedStore(t)
	ctx := context.Background()

	require.NoError(t, cached.Create(ctx, &domain.Template{Name: "a", QueryBody: "SELECT 1"}))
	require.NoError(t, cached.Create(ctx, &domain.Template{Name: "b", QueryBody: "SELECT 2"}))

	_, err := cached.Compose(ctx, "chain", "", domain.KindSequence, []string{"a", "b"})
	require.NoError(t, err)

	comp, err := cached.LookupComposition(ctx, "chain")
	require.NoError(t, err)
	assert.Len(t, comp.Components, 2)
	assert.True(t, mr.Exists("comp:chain"))
}

func TestCachedStoreSurvivesCacheOutage(t *testing.T) {
	cached, inner, mr := newCachedStore(t)
	ctx := context.Background()

	require.NoError(t, inner.Create(ctx, &domain.Template{
		Name:      "find_user",
		QueryBody: "SELECT 1",
	}))

	mr.Close()

	// Cache failures degrade to the inner store.
	tpl, err := cached.Lookup(ctx, "find_user")
	require.NoError(t, err)
	assert.Equal(t, "find_user", tpl.Name)
}
