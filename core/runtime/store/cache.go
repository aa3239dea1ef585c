package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/graphquill/graphquill/core/domain"
	"github.com/graphquill/graphquill/core/domain/interfaces"
	"github.com/graphquill/graphquill/core/infrastructure/logging"
)

const (
	templateKeyPrefix    = "tpl:"
	compositionKeyPrefix = "comp:"
)

// CachedStore decorates a DefinitionStore with a Redis read-through cache
// for Lookup and LookupComposition. Writes go straight to the inner store
// and invalidate the affected keys; cache failures degrade to the inner
// store and are logged, never surfaced.
type CachedStore struct {
	inner  interfaces.DefinitionStore
	client *redis.Client
	ttl    time.Duration
	log    interfaces.Logger
}

// NewCachedStore wraps inner with a Redis cache. A zero ttl disables
// expiry.
func NewCachedStore(inner interfaces.DefinitionStore, client *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		inner:  inner,
		client: client,
		ttl:    ttl,
		log:    logging.New("store:cache"),
	}
}

// Lookup returns the template definition for name
func (c *CachedStore) Lookup(ctx context.Context, name string) (*domain.Template, error) {
	key := templateKeyPrefix + name

	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		var tpl domain.Template
		if err := json.Unmarshal([]byte(cached), &tpl); err == nil {
			return &tpl, nil
		}
		c.log.Warnf("Dropping undecodable cache entry for '%s'", key)
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		c.log.Warnf("Cache read for '%s' failed: %v", key, err)
	}

	tpl, err := c.inner.Lookup(ctx, name)
	if err != nil {
		return nil, err
	}

	c.put(ctx, key, tpl)
	return tpl, nil
}

// LookupComposition returns the composition metadata for a composed template
func (c *CachedStore) LookupComposition(ctx context.Context, name string) (*domain.Composition, error) {
	key := compositionKeyPrefix + name

	if cached, err := c.client.Get(ctx, key).Result(); err == nil {
		var comp domain.Composition
		if err := json.Unmarshal([]byte(cached), &comp); err == nil {
			return &comp, nil
		}
		c.log.Warnf("Dropping undecodable cache entry for '%s'", key)
		c.client.Del(ctx, key)
	} else if err != redis.Nil {
		c.log.Warnf("Cache read for '%s' failed: %v", key, err)
	}

	comp, err := c.inner.LookupComposition(ctx, name)
	if err != nil {
		return nil, err
	}

	c.put(ctx, key, comp)
	return comp, nil
}

// Create stores a new template definition and invalidates its cache entry
func (c *CachedStore) Create(ctx context.Context, tpl *domain.Template) error {
	if err := c.inner.Create(ctx, tpl); err != nil {
		return err
	}
	c.invalidate(ctx, tpl.Name)
	return nil
}

// Compose creates a composed template and invalidates its cache entries
func (c *CachedStore) Compose(ctx context.Context, name, description string, kind domain.CompositionKind, componentNames []string) (*domain.Template, error) {
	composed, err := c.inner.Compose(ctx, name, description, kind, componentNames)
	if err != nil {
		return nil, err
	}
	c.invalidate(ctx, name)
	return composed, nil
}

// Search is never cached; result sets change with every write
func (c *CachedStore) Search(ctx context.Context, term string) ([]*domain.Template, error) {
	return c.inner.Search(ctx, term)
}

// Delete removes a template and invalidates its cache entries
func (c *CachedStore) Delete(ctx context.Context, name string) error {
	if err := c.inner.Delete(ctx, name); err != nil {
		return err
	}
	c.invalidate(ctx, name)
	return nil
}

// InstallSchema delegates schema installation to the inner store when it
// supports it
func (c *CachedStore) InstallSchema(ctx context.Context) error {
	installer, ok := c.inner.(interface {
		InstallSchema(ctx context.Context) error
	})
	if !ok {
		return nil
	}
	return installer.InstallSchema(ctx)
}

// Close closes the cache client and the inner store
func (c *CachedStore) Close() error {
	if err := c.client.Close(); err != nil {
		c.log.Warnf("Failed to close cache client: %v", err)
	}
	return c.inner.Close()
}

func (c *CachedStore) put(ctx context.Context, key string, value any) {
	encoded, err := json.Marshal(value)
	if err != nil {
		c.log.Warnf("Cannot encode cache entry for '%s': %v", key, err)
		return
	}
	if err := c.client.Set(ctx, key, encoded, c.ttl).Err(); err != nil {
		c.log.Warnf("Cache write for '%s' failed: %v", key, err)
	}
}

func (c *CachedStore) invalidate(ctx context.Context, name string) {
	if err := c.client.Del(ctx, templateKeyPrefix+name, compositionKeyPrefix+name).Err(); err != nil {
		c.log.Warnf("Cache invalidation for '%s' failed: %v", name, err)
	}
}
