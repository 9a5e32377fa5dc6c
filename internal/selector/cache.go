package selector

import "sync"

// cacheCapacity bounds the per-action MRU list. Three covers the common
// case of a page serving two markup variants plus one experiment.
const cacheCapacity = 3

// mruCache remembers which strategies recently worked, most recent first.
// A hit promotes the strategy to the front; inserting past capacity drops
// the least recently used entry. Misses never evict: a strategy that
// worked yesterday may only be hidden behind an A/B variant today.
type mruCache struct {
	mu       sync.Mutex
	capacity int
	entries  map[string][]Strategy
}

func newMRUCache(capacity int) *mruCache {
	return &mruCache{
		capacity: capacity,
		entries:  make(map[string][]Strategy),
	}
}

func (c *mruCache) get(key string) []Strategy {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.entries[key]
	out := make([]Strategy, len(list))
	copy(out, list)
	return out
}

func (c *mruCache) noteSuccess(key string, s Strategy) {
	c.mu.Lock()
	defer c.mu.Unlock()

	list := c.entries[key]
	next := make([]Strategy, 0, len(list)+1)
	next = append(next, s)
	for _, cur := range list {
		if cur == s {
			continue
		}
		next = append(next, cur)
	}
	if len(next) > c.capacity {
		next = next[:c.capacity]
	}
	c.entries[key] = next
}
