package content

import (
	"sync"
	"time"
)

// DefaultTTL is how long a fetched document stays valid before the next
// request for its topic triggers a re-fetch.
const DefaultTTL = 10 * time.Minute

// Cache holds fetched documents keyed by topic name. Entries expire after the
// TTL; writes are idempotent, so concurrent re-fetches of the same topic are
// safe without exclusive locking around the fetch itself.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Document
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates a Cache with the given TTL. A non-positive TTL falls back
// to DefaultTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries: make(map[string]Document),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the cached document for a topic if it is still within its TTL.
func (c *Cache) Get(topic string) (Document, bool) {
	c.mu.RLock()
	doc, ok := c.entries[topic]
	c.mu.RUnlock()

	if !ok || c.now().Sub(doc.FetchedAt) >= c.ttl {
		return Document{}, false
	}
	return doc, true
}

// Put stores a document under its topic name, replacing any previous entry.
func (c *Cache) Put(doc Document) {
	c.mu.Lock()
	c.entries[doc.TopicName] = doc
	c.mu.Unlock()
}

// Len returns the number of cached entries, expired or not.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
