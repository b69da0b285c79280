package respcache

import (
	"container/list"
	"strings"
	"sync"
	"time"
)

const (
	defaultTTL        = time.Second
	defaultMaxEntries = 128
)

type entry struct {
	key      string
	body     []byte
	storedAt time.Time
}

// Cache is safe for concurrent use from the polling goroutine and
// command-issuing callers. All methods hold the lock only for in-memory
// bookkeeping, never across I/O.
type Cache struct {
	mu         sync.Mutex
	ttl        time.Duration
	maxEntries int
	entries    map[string]*list.Element
	order      *list.List // front = most recently used
	now        func() time.Time
}

// Option customizes a Cache.
type Option func(*Cache)

// WithClock overrides the time source. Tests use this to step expiry
// without sleeping.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// New builds a cache with the given TTL and entry bound. Non-positive
// arguments fall back to 1s / 128 entries.
func New(ttl time.Duration, maxEntries int, opts ...Option) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	c := &Cache{
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup returns a copy of the live entry for key. Expired entries are
// removed and reported as a miss; an entry past its TTL is never returned.
func (c *Cache) Lookup(key string) ([]byte, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	ent := elem.Value.(*entry)
	if c.now().Sub(ent.storedAt) >= c.ttl {
		c.removeLocked(elem)
		return nil, false
	}
	c.order.MoveToFront(elem)
	body := make([]byte, len(ent.body))
	copy(body, ent.body)
	return body, true
}

// Store inserts or refreshes an entry with a fresh timestamp, evicting
// least-recently-used entries beyond the bound.
func (c *Cache) Store(key string, body []byte) {
	if c == nil {
		return
	}
	stored := make([]byte, len(body))
	copy(stored, body)

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[key]; ok {
		ent := elem.Value.(*entry)
		ent.body = stored
		ent.storedAt = c.now()
		c.order.MoveToFront(elem)
		return
	}
	c.entries[key] = c.order.PushFront(&entry{key: key, body: stored, storedAt: c.now()})
	for c.order.Len() > c.maxEntries {
		c.removeLocked(c.order.Back())
	}
}

// Invalidate removes every entry whose key starts with any of the given
// prefixes and returns the number removed.
func (c *Cache) Invalidate(prefixes ...string) int {
	if c == nil || len(prefixes) == 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, elem := range c.entries {
		for _, prefix := range prefixes {
			if strings.HasPrefix(key, prefix) {
				c.removeLocked(elem)
				removed++
				break
			}
		}
	}
	return removed
}

// Purge drops every entry.
func (c *Cache) Purge() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
}

// Len reports the current entry count, expired entries included until they
// are looked up or evicted.
func (c *Cache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *Cache) removeLocked(elem *list.Element) {
	if elem == nil {
		return
	}
	ent := elem.Value.(*entry)
	c.order.Remove(elem)
	delete(c.entries, ent.key)
}
