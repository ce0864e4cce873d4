package mapbox

import (
	"context"
	"sync"

	"github.com/accessible-nav/route-engine/internal/domain"
)

// CachedResolver wraps a LocationResolver with an in-memory LRU cache keyed
// by query text. Resolve is idempotent for identical input, so repeated
// keystrokes settling on the same query hit the cache instead of the API.
type CachedResolver struct {
	inner domain.LocationResolver
	cache *lruCache
}

// NewCachedResolver creates a cache decorator around a resolver.
func NewCachedResolver(inner domain.LocationResolver, maxEntries int) *CachedResolver {
	return &CachedResolver{
		inner: inner,
		cache: newLRUCache(maxEntries),
	}
}

func (c *CachedResolver) Resolve(ctx context.Context, text string) ([]domain.Candidate, error) {
	if candidates, ok := c.cache.get(text); ok {
		return candidates, nil
	}
	candidates, err := c.inner.Resolve(ctx, text)
	if err != nil {
		return candidates, err
	}
	// Only cache non-empty results so transient "not found" responses can be retried.
	if len(candidates) > 0 {
		c.cache.put(text, candidates)
	}
	return candidates, nil
}

// lruCache is a simple thread-safe LRU cache for candidate lists.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value []domain.Candidate
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) ([]domain.Candidate, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value []domain.Candidate) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
