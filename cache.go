package routemanager

import (
	"context"
	"sync"
	"time"

	"github.com/eringen/routemanager/catalog"
)

type cacheEntry[T any] struct {
	val     T
	fetched time.Time
	loaded  bool
}

func (e *cacheEntry[T]) fresh(ttl time.Duration) bool {
	return e.loaded && time.Since(e.fetched) < ttl
}

// SourceCache is an in-memory cache of the CMS alias map and route table
// with TTL. Both change only on CMS deploys or content edits, so the catalog
// listing does not need to re-read them on every request. The two are cached
// independently: a failing route table does not discard good aliases.
type SourceCache struct {
	mu      sync.RWMutex
	aliases cacheEntry[map[string]string]
	routes  cacheEntry[catalog.RouteTable]
	ttl     time.Duration

	aliasSrc catalog.AliasSource
	routeSrc catalog.RouteSource
}

// NewSourceCache creates a SourceCache over the given sources. Either may be
// nil.
func NewSourceCache(aliases catalog.AliasSource, routes catalog.RouteSource, ttl time.Duration) *SourceCache {
	return &SourceCache{aliasSrc: aliases, routeSrc: routes, ttl: ttl}
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *SourceCache) Invalidate() {
	c.mu.Lock()
	c.aliases = cacheEntry[map[string]string]{}
	c.routes = cacheEntry[catalog.RouteTable]{}
	c.mu.Unlock()
}

// cached returns e's value, loading it when stale. It tries a read lock
// first and only takes the write lock if a reload is needed. Errors are not
// cached.
func cached[T any](ctx context.Context, c *SourceCache, e *cacheEntry[T], load func(context.Context) (T, error)) (T, error) {
	c.mu.RLock()
	if e.fresh(c.ttl) {
		v := e.val
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if e.fresh(c.ttl) {
		return e.val, nil
	}
	v, err := load(ctx)
	if err != nil {
		var zero T
		return zero, err
	}
	*e = cacheEntry[T]{val: v, fetched: time.Now(), loaded: true}
	return v, nil
}

// ActiveAliases implements catalog.AliasSource.
func (c *SourceCache) ActiveAliases(ctx context.Context) (map[string]string, error) {
	return cached(ctx, c, &c.aliases, func(ctx context.Context) (map[string]string, error) {
		if c.aliasSrc == nil {
			return map[string]string{}, nil
		}
		return c.aliasSrc.ActiveAliases(ctx)
	})
}

// RouteTable implements catalog.RouteSource.
func (c *SourceCache) RouteTable(ctx context.Context) (catalog.RouteTable, error) {
	return cached(ctx, c, &c.routes, func(ctx context.Context) (catalog.RouteTable, error) {
		if c.routeSrc == nil {
			return catalog.RouteTable{}, nil
		}
		return c.routeSrc.RouteTable(ctx)
	})
}
