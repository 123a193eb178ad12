// ABOUTME: TTL cache of chat event ids already handled by the bridge
// ABOUTME: The sync transport can replay events; replays within the window are dropped

package dedupe

import (
	"container/list"
	"sync"
	"time"
)

// Cache remembers recently handled event ids for a bounded window. It is
// size-limited: when full, the oldest id is evicted.
type Cache struct {
	mu      sync.Mutex
	entries map[string]*entry
	order   *list.List // oldest id at the front
	ttl     time.Duration
	maxSize int
}

type entry struct {
	at      time.Time
	element *list.Element
}

// New creates a cache that remembers ids for ttl, holding at most maxSize.
func New(ttl time.Duration, maxSize int) *Cache {
	return &Cache{
		entries: make(map[string]*entry),
		order:   list.New(),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// Seen atomically checks and records an event id. It returns true when the
// id was already recorded inside the window - the caller should drop the
// event - and false when the id is new and is now recorded.
func (c *Cache) Seen(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	if e, ok := c.entries[id]; ok && now.Sub(e.at) < c.ttl {
		return true
	}

	c.expire(now)

	if e, ok := c.entries[id]; ok {
		e.at = now
		c.order.MoveToBack(e.element)
		return false
	}

	if len(c.entries) >= c.maxSize {
		if front := c.order.Front(); front != nil {
			delete(c.entries, front.Value.(string))
			c.order.Remove(front)
		}
	}

	c.entries[id] = &entry{at: now, element: c.order.PushBack(id)}
	return false
}

// expire drops entries older than the window. Called with mu held; the
// list is ordered by last touch, so scanning stops at the first live one.
func (c *Cache) expire(now time.Time) {
	for front := c.order.Front(); front != nil; front = c.order.Front() {
		id := front.Value.(string)
		if now.Sub(c.entries[id].at) < c.ttl {
			return
		}
		delete(c.entries, id)
		c.order.Remove(front)
	}
}

// Len returns the number of remembered ids.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
