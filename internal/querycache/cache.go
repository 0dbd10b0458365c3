// Package querycache keeps recent backend reads in memory, keyed by query.
package querycache

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const DefaultTTL = 30 * time.Second

type entry struct {
	value     any
	expiresAt time.Time
}

// Cache is a TTL cache with prefix invalidation. Concurrent Fetch calls for the
// same key share one loader call. Safe for concurrent use.
type Cache struct {
	ttl     time.Duration
	nowTime func() time.Time

	mu         sync.RWMutex
	entries    map[string]entry
	generation uint64 // bumped by Invalidate so in-flight loads are not stored

	group singleflight.Group
}

type Option func(*Cache)

func WithTTL(ttl time.Duration) Option {
	return func(c *Cache) {
		c.ttl = ttl
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) Option {
	return func(c *Cache) {
		c.nowTime = nowFunc
	}
}

func New(options ...Option) *Cache {
	c := &Cache{
		ttl:     DefaultTTL,
		nowTime: time.Now,
		entries: make(map[string]entry),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Fetch returns the cached value for key, calling loader when it is missing or stale.
// Loader errors are returned and never cached. A shared load keeps running when
// one of its callers gives up; that caller gets its own ctx error.
func Fetch[T any](ctx context.Context, c *Cache, key string, loader func(context.Context) (T, error)) (T, error) {
	var zero T
	if c == nil {
		return loader(ctx)
	}

	if v, ok := c.get(key); ok {
		if typed, ok := v.(T); ok {
			return typed, nil
		}
	}

	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	// Loads started before an Invalidate are never joined by later callers
	flightKey := key + "#" + strconv.FormatUint(gen, 10)
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(flightKey, func() (any, error) {
		loaded, err := loader(loadCtx)
		if err != nil {
			return nil, err
		}
		c.put(key, loaded, gen)
		return loaded, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-ch:
	}
	if res.Err != nil {
		return zero, res.Err
	}
	typed, ok := res.Val.(T)
	if !ok {
		return loader(ctx)
	}
	return typed, nil
}

// Invalidate drops every key starting with prefix. An empty prefix drops everything.
func (c *Cache) Invalidate(prefix string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.generation++
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
		}
	}
}

// Purge drops every entry
func (c *Cache) Purge() {
	c.Invalidate("")
}

// Len is the number of live entries
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	now := c.nowTime()
	n := 0
	for _, e := range c.entries {
		if now.Before(e.expiresAt) {
			n++
		}
	}
	return n
}

func (c *Cache) get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || !c.nowTime().Before(e.expiresAt) {
		return nil, false
	}
	return e.value, true
}

func (c *Cache) put(key string, value any, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if gen != c.generation {
		return
	}
	c.entries[key] = entry{value: value, expiresAt: c.nowTime().Add(c.ttl)}
}
