package writerpool

import (
	"container/list"
	"sync"

	"github.com/segrepo/segstore/segment"
)

// DefaultInternCacheSize bounds an InternCache constructed without an
// explicit size.
const DefaultInternCacheSize = 1024

type internEntry struct {
	key string
	id  segment.RecordId
}

// InternCache is a small LRU mapping a content key (typically a hash of a
// string, a template's shape, or a node's identity) to the RecordId a
// writer already emitted for it. A miss is never an error: callers fall
// through to writing the record normally and then Put the result, so the
// cache's absence or eviction never changes what a reader decodes, only
// whether a record is re-emitted or referenced.
type InternCache struct {
	mu     sync.Mutex
	maxLen int
	ll     *list.List
	byKey  map[string]*list.Element
}

// NewInternCache constructs an InternCache holding at most maxLen entries
// (DefaultInternCacheSize if maxLen <= 0).
func NewInternCache(maxLen int) *InternCache {
	if maxLen <= 0 {
		maxLen = DefaultInternCacheSize
	}
	return &InternCache{maxLen: maxLen, ll: list.New(), byKey: make(map[string]*list.Element)}
}

// Get looks up key, moving it to the front of the LRU on a hit.
func (c *InternCache) Get(key string) (segment.RecordId, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.byKey[key]
	if !ok {
		return segment.RecordId{}, false
	}
	c.ll.MoveToFront(el)
	return el.Value.(*internEntry).id, true
}

// Put records that key now resolves to id, evicting the least recently
// used entry if the cache is at capacity.
func (c *InternCache) Put(key string, id segment.RecordId) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byKey[key]; ok {
		el.Value.(*internEntry).id = id
		c.ll.MoveToFront(el)
		return
	}

	el := c.ll.PushFront(&internEntry{key: key, id: id})
	c.byKey[key] = el

	if c.ll.Len() > c.maxLen {
		back := c.ll.Back()
		if back != nil {
			c.ll.Remove(back)
			delete(c.byKey, back.Value.(*internEntry).key)
		}
	}
}

// Len reports the number of entries currently cached.
func (c *InternCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
