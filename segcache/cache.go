package segcache

import (
	"container/list"
	"sync"
	"sync/atomic"
	"time"

	"github.com/segrepo/segstore/internal/options"
	"github.com/segrepo/segstore/segerrs"
	"github.com/segrepo/segstore/segment"
	"go.uber.org/zap"
)

// DefaultMaxWeight is the cache's default weight ceiling (spec's 256 MiB).
const DefaultMaxWeight = 256 * 1024 * 1024

// entryOverhead approximates the in-memory bookkeeping cost of one cache
// entry (the list element, the map slot, the entry struct itself) beyond
// the segment's own wire bytes, per spec.md §4.4's "segment byte size plus
// metadata overhead".
const entryOverhead = 64

// Option configures a Cache at construction.
type Option = options.Option[*Cache]

// WithMaxWeight overrides DefaultMaxWeight.
func WithMaxWeight(bytes int64) Option {
	return options.NoError(func(c *Cache) { c.maxWeight = bytes })
}

// WithLogger attaches a logger used to report evictions at debug level. A
// nil or unset logger defaults to a no-op logger, so eviction reporting is
// always safe to call.
func WithLogger(logger *zap.SugaredLogger) Option {
	return options.NoError(func(c *Cache) { c.logger = logger })
}

type entry struct {
	id     *segment.Id
	seg    *segment.Segment
	weight int64
}

// Cache is the weight-bounded, concurrent SegmentId -> Segment cache.
// Bulk segments are never stored here, per spec.
type Cache struct {
	maxWeight int64
	logger    *zap.SugaredLogger

	mu     sync.Mutex
	ll     *list.List // front = most recently used
	byId   map[*segment.Id]*list.Element
	weight int64

	hits           atomic.Uint64
	misses         atomic.Uint64
	loadSuccesses  atomic.Uint64
	loadExceptions atomic.Uint64
	loadTimeNanos  atomic.Int64
	evictions      atomic.Uint64
}

// New constructs a Cache with DefaultMaxWeight unless overridden by opts.
func New(opts ...Option) *Cache {
	c := &Cache{
		maxWeight: DefaultMaxWeight,
		ll:        list.New(),
		byId:      make(map[*segment.Id]*list.Element),
	}
	_ = options.Apply(c, opts...)
	if c.logger == nil {
		c.logger = zap.NewNop().Sugar()
	}
	return c
}

func weightOf(seg *segment.Segment) int64 {
	return int64(seg.WireSize()) + entryOverhead
}

// GetSegment implements the C4 contract: a fast path against id's
// 1st-level reference, then a slow path under id's own monitor that
// re-checks before invoking loader. A bulk segment returned by loader
// bypasses this cache entirely — it is returned to the caller but never
// stored or weighed.
func (c *Cache) GetSegment(id *segment.Id, loader func() (*segment.Segment, error)) (*segment.Segment, error) {
	if seg := id.LoadedSegment(); seg != nil {
		c.hits.Add(1)
		c.touch(id)
		return seg, nil
	}

	id.Lock()
	defer id.Unlock()

	if seg := id.LoadedSegment(); seg != nil {
		c.hits.Add(1)
		c.touch(id)
		return seg, nil
	}
	c.misses.Add(1)

	start := time.Now()
	seg, err := loader()
	c.loadTimeNanos.Add(int64(time.Since(start)))
	if err != nil {
		c.loadExceptions.Add(1)
		return nil, segerrs.LoadFailed(err)
	}
	c.loadSuccesses.Add(1)

	if seg.IsBulk() {
		return seg, nil
	}

	c.insert(id, seg)
	return seg, nil
}

// PutSegment inserts seg directly, bypassing the loader path. Bulk
// segments are silently ignored, per spec. id.SetLoaded is called before
// this cache's own map insert completes, so an observer can never see the
// cache entry without the 1st-level reference also being visible.
func (c *Cache) PutSegment(seg *segment.Segment) {
	if seg.IsBulk() {
		return
	}
	c.insert(seg.Id(), seg)
}

func (c *Cache) insert(id *segment.Id, seg *segment.Segment) {
	w := weightOf(seg)

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.byId[id]; ok {
		c.weight -= el.Value.(*entry).weight
		c.ll.Remove(el)
		delete(c.byId, id)
	}

	id.SetLoaded(seg)

	el := c.ll.PushFront(&entry{id: id, seg: seg, weight: w})
	c.byId[id] = el
	c.weight += w

	c.evictLocked()
}

func (c *Cache) touch(id *segment.Id) {
	c.mu.Lock()
	if el, ok := c.byId[id]; ok {
		c.ll.MoveToFront(el)
	}
	c.mu.Unlock()
}

// evictLocked evicts from the back of the LRU list until weight is at or
// below maxWeight. Callers must hold c.mu.
func (c *Cache) evictLocked() {
	for c.weight > c.maxWeight {
		back := c.ll.Back()
		if back == nil {
			return
		}
		e := back.Value.(*entry)
		c.ll.Remove(back)
		delete(c.byId, e.id)
		c.weight -= e.weight
		e.id.ClearLoaded()
		c.evictions.Add(1)
		c.logger.Debugw("segment cache eviction", "segment", e.id.String(), "weight", e.weight)
	}
}

// Clear invalidates every entry, running the same eviction hook
// (id.ClearLoaded) for each one. Idempotent across a concurrent Get/Put.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for el := c.ll.Front(); el != nil; el = el.Next() {
		e := el.Value.(*entry)
		e.id.ClearLoaded()
		c.evictions.Add(1)
		c.logger.Debugw("segment cache eviction", "segment", e.id.String(), "weight", e.weight, "reason", "clear")
	}
	c.ll.Init()
	c.byId = make(map[*segment.Id]*list.Element)
	c.weight = 0
}

// Stats is a point-in-time snapshot of the cache's counters.
type Stats struct {
	Elements       int
	Weight         int64
	MaxWeight      int64
	Hits           uint64
	Misses         uint64
	LoadSuccesses  uint64
	LoadExceptions uint64
	LoadTimeNanos  int64
	Evictions      uint64
}

// RequestCount is Hits + Misses.
func (s Stats) RequestCount() uint64 { return s.Hits + s.Misses }

// Stats reports the cache's current element count, weight, and cumulative
// counters. Hits served purely from a SegmentId's 1st-level reference are
// included, not hidden.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	elements := len(c.byId)
	weight := c.weight
	c.mu.Unlock()

	return Stats{
		Elements:       elements,
		Weight:         weight,
		MaxWeight:      c.maxWeight,
		Hits:           c.hits.Load(),
		Misses:         c.misses.Load(),
		LoadSuccesses:  c.loadSuccesses.Load(),
		LoadExceptions: c.loadExceptions.Load(),
		LoadTimeNanos:  c.loadTimeNanos.Load(),
		Evictions:      c.evictions.Load(),
	}
}
