// Package query caches server reads for the terminal pages. Entries are
// keyed by resource and parameters, stay fresh for a TTL and are dropped by
// prefix when a mutation changes the server state behind them.
package query

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const sep = ":"

// DefaultLoadTimeout bounds a shared load once it is detached from the
// caller that started it.
const DefaultLoadTimeout = 30 * time.Second

// Key builds a cache key from a resource name and its parameters:
// Key("products", "bmw") is "products:bmw".
func Key(resource string, params ...any) string {
	if len(params) == 0 {
		return resource
	}
	parts := make([]string, 0, len(params)+1)
	parts = append(parts, resource)
	for _, p := range params {
		parts = append(parts, fmt.Sprint(p))
	}
	return strings.Join(parts, sep)
}

type entry struct {
	value    any
	storedAt time.Time
}

// Cache is safe for concurrent use.
type Cache struct {
	ttl         time.Duration
	loadTimeout time.Duration
	now         func() time.Time

	mu      sync.Mutex
	entries map[string]entry
	gen     uint64

	group singleflight.Group
}

// Option configures a Cache.
type Option func(*Cache)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

// WithLoadTimeout bounds every shared load. Zero or less means no bound
// beyond the callers' own deadlines.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Cache) { c.loadTimeout = d }
}

// New returns a cache whose entries are fresh for ttl. A ttl of zero keeps
// entries until they are invalidated.
func New(ttl time.Duration, opts ...Option) *Cache {
	c := &Cache{ttl: ttl, loadTimeout: DefaultLoadTimeout, now: time.Now, entries: make(map[string]entry)}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Get returns a fresh value for key.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.ttl > 0 && c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.value, true
}

// Set stores v under key.
func (c *Cache) Set(key string, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{value: v, storedAt: c.now()}
}

// Invalidate drops every key equal to a prefix or nested under it
// ("products" drops "products" and "products:bmw", not "products2").
// With no prefixes everything is dropped. It returns the number of entries
// removed.
func (c *Cache) Invalidate(prefixes ...string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	n := 0
	for k := range c.entries {
		if len(prefixes) == 0 || matches(k, prefixes) {
			delete(c.entries, k)
			n++
		}
	}
	return n
}

// Len reports the number of stored entries, fresh or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Fetch returns the cached value for key or loads it. Concurrent fetches of
// one key share a single load. The load runs on ctx's values but not its
// cancellation, bounded by the cache's load timeout, so a caller that gives
// up returns ctx.Err() alone and the others still get the result. A load
// that races with Invalidate is returned but not stored.
func Fetch[T any](ctx context.Context, c *Cache, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := c.Get(key); ok {
		if t, ok := v.(T); ok {
			return t, nil
		}
	}

	ch := c.group.DoChan(key, func() (any, error) {
		c.mu.Lock()
		gen := c.gen
		c.mu.Unlock()

		lctx := context.WithoutCancel(ctx)
		if c.loadTimeout > 0 {
			var cancel context.CancelFunc
			lctx, cancel = context.WithTimeout(lctx, c.loadTimeout)
			defer cancel()
		}
		t, err := load(lctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.gen == gen {
			c.entries[key] = entry{value: t, storedAt: c.now()}
		}
		c.mu.Unlock()
		return t, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
	if res.Err != nil {
		var zero T
		return zero, res.Err
	}
	t, ok := res.Val.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("query.Fetch: %s holds %T", key, res.Val)
	}
	return t, nil
}

func matches(key string, prefixes []string) bool {
	for _, p := range prefixes {
		if key == p || strings.HasPrefix(key, p+sep) {
			return true
		}
	}
	return false
}
