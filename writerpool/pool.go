package writerpool

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/segrepo/segstore/segerrs"
	"github.com/segrepo/segstore/segment"
)

// DefaultNodesCacheDepth bounds how many levels of the content tree the
// node interning cache is consulted for, counting from the root. Beyond
// this depth nodes are assumed too numerous/unique to profitably cache.
const DefaultNodesCacheDepth = 3

// Option configures a Pool[K] at construction. It follows the same
// functional-option shape as segment.WriterOption/segcache.Option; it is
// its own generic function type rather than an instantiation of
// internal/options's machinery because Pool is itself generic over K and
// every Pool[K] option can't fail, so the error-propagating Apply/Func
// plumbing buys nothing here.
type Option[K comparable] func(*Pool[K])

// WithMaxSegmentSize threads n through to every writer this pool mints.
func WithMaxSegmentSize[K comparable](n int) Option[K] {
	return func(p *Pool[K]) {
		p.writerOpts = append(p.writerOpts, segment.WithMaxSegmentSize(n))
	}
}

// WithStringsCacheSize sets the string-record interning cache's capacity
// (writer.stringsCacheSize).
func WithStringsCacheSize[K comparable](n int) Option[K] {
	return func(p *Pool[K]) { p.strings = NewInternCache(n) }
}

// WithTemplatesCacheSize sets the template-record interning cache's
// capacity (writer.templatesCacheSize).
func WithTemplatesCacheSize[K comparable](n int) Option[K] {
	return func(p *Pool[K]) { p.templates = NewInternCache(n) }
}

// WithNodesCacheSize sets the node-record interning cache's capacity
// (writer.nodesCacheSize).
func WithNodesCacheSize[K comparable](n int) Option[K] {
	return func(p *Pool[K]) { p.nodes = NewInternCache(n) }
}

// WithNodesCacheDepth sets how many tree levels the node interning cache
// is consulted for (writer.nodesCacheDepth).
func WithNodesCacheDepth[K comparable](depth int) Option[K] {
	return func(p *Pool[K]) { p.nodesCacheDepth = depth }
}

// Pool is the thread-affinity writer dispenser (C6). K is the caller's
// affinity key type — typically a worker or shard identifier, since Go
// has no notion of the calling OS thread's identity the way the original
// protocol assumed.
//
// Pool is safe for concurrent use. A given key must not be borrowed
// concurrently by two callers at once; Execute enforces the pool's side
// of that contract but cannot prevent a caller from violating it.
type Pool[K comparable] struct {
	store segment.Store
	name  string

	writerOpts []segment.WriterOption

	strings         *InternCache
	templates       *InternCache
	nodes           *InternCache
	nodesCacheDepth int

	generation atomic.Int64
	seq        atomic.Int64

	flushMu sync.Mutex // serializes flush() calls

	poolMu        sync.Mutex // protects active/borrowed/disposed/flushAwaiting
	cond          *sync.Cond
	active        map[K]*segment.BufferWriter
	borrowed      map[K]*segment.BufferWriter
	disposed      []*segment.BufferWriter
	flushAwaiting map[*segment.BufferWriter]struct{} // non-nil only while a flush is in step 3
}

// New constructs a Pool named name (used as every minted writer's
// "<name>.<seq>" diagnostic id), writing through store.
func New[K comparable](name string, store segment.Store, opts ...Option[K]) *Pool[K] {
	p := &Pool[K]{
		store:           store,
		name:            name,
		active:          make(map[K]*segment.BufferWriter),
		borrowed:        make(map[K]*segment.BufferWriter),
		nodesCacheDepth: DefaultNodesCacheDepth,
	}
	p.cond = sync.NewCond(&p.poolMu)
	for _, opt := range opts {
		opt(p)
	}

	if p.strings == nil {
		p.strings = NewInternCache(DefaultInternCacheSize)
	}
	if p.templates == nil {
		p.templates = NewInternCache(DefaultInternCacheSize)
	}
	if p.nodes == nil {
		p.nodes = NewInternCache(DefaultInternCacheSize)
	}

	return p
}

// Strings returns the string-record interning cache.
func (p *Pool[K]) Strings() *InternCache { return p.strings }

// Templates returns the template-record interning cache.
func (p *Pool[K]) Templates() *InternCache { return p.templates }

// Nodes returns the node-record interning cache.
func (p *Pool[K]) Nodes() *InternCache { return p.nodes }

// NodesCacheDepth reports how many tree levels the node cache applies to.
func (p *Pool[K]) NodesCacheDepth() int { return p.nodesCacheDepth }

// Generation returns the pool's current writer generation.
func (p *Pool[K]) Generation() int64 { return p.generation.Load() }

// AdvanceGeneration bumps the pool's current generation (a new compaction
// cycle has begun) and returns the new value. Writers minted under a prior
// generation are disposed the next time their key is borrowed.
func (p *Pool[K]) AdvanceGeneration() int64 {
	return p.generation.Add(1)
}

// borrow removes the active writer for key, or mints a fresh one if none
// exists or the existing one's generation is stale; the stale writer (if
// any) is parked in disposed. The returned writer is recorded as borrowed.
func (p *Pool[K]) borrow(key K) *segment.BufferWriter {
	p.poolMu.Lock()
	defer p.poolMu.Unlock()

	gen := p.generation.Load()

	w, ok := p.active[key]
	if ok {
		delete(p.active, key)
	}
	if !ok || w.Generation() != gen {
		if ok {
			p.disposed = append(p.disposed, w)
		}
		seq := int(p.seq.Add(1))
		w = segment.NewBufferWriter(p.name, seq, gen, p.store, p.writerOpts...)
	}

	p.borrowed[key] = w
	return w
}

// returnWriter moves w back to active[key] if it is still the writer on
// loan under key; otherwise a flush() intervened while it was out, and it
// is parked in disposed to be picked up by that (or the next) flush.
func (p *Pool[K]) returnWriter(key K, w *segment.BufferWriter) error {
	p.poolMu.Lock()
	defer p.poolMu.Unlock()

	if cur, ok := p.borrowed[key]; ok && cur == w {
		delete(p.borrowed, key)
		if _, exists := p.active[key]; exists {
			return segerrs.ErrPoolInvariant
		}
		p.active[key] = w
	} else {
		p.disposed = append(p.disposed, w)
		if p.flushAwaiting != nil {
			delete(p.flushAwaiting, w)
		}
	}
	p.cond.Broadcast()
	return nil
}

// Execute borrows the writer for key, runs op against it, and returns the
// writer — even if op fails — before propagating op's error.
func (p *Pool[K]) Execute(key K, op func(w *segment.BufferWriter) error) error {
	w := p.borrow(key)
	opErr := op(w)
	if retErr := p.returnWriter(key, w); retErr != nil {
		return retErr
	}
	return opErr
}

// Flush durably emits every writer that was active or borrowed at the
// instant it began, via the store, outside any lock this pool holds. It
// serializes against concurrent Flush calls and waits for in-flight
// Execute calls to return their borrowed writers before proceeding.
//
// If ctx is cancelled while waiting for borrowed writers to return, Flush
// returns nil without flushing anything; the writers it had already
// collected are parked in disposed so a subsequent Flush still makes
// progress.
func (p *Pool[K]) Flush(ctx context.Context) error {
	p.flushMu.Lock()
	defer p.flushMu.Unlock()

	p.poolMu.Lock()

	toFlush := make([]*segment.BufferWriter, 0, len(p.active)+len(p.borrowed))
	for k, w := range p.active {
		toFlush = append(toFlush, w)
		delete(p.active, k)
	}

	p.flushAwaiting = make(map[*segment.BufferWriter]struct{}, len(p.borrowed))
	for k, w := range p.borrowed {
		p.flushAwaiting[w] = struct{}{}
		delete(p.borrowed, k)
	}

	stop := make(chan struct{})
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				p.poolMu.Lock()
				p.cond.Broadcast()
				p.poolMu.Unlock()
			case <-stop:
			}
		}()
	}

	interrupted := false
	for len(p.flushAwaiting) > 0 {
		if ctx != nil && ctx.Err() != nil {
			interrupted = true
			break
		}
		p.cond.Wait()
	}
	close(stop)
	p.flushAwaiting = nil

	if interrupted {
		p.disposed = append(p.disposed, toFlush...)
		p.poolMu.Unlock()
		return nil
	}

	toFlush = append(toFlush, p.disposed...)
	p.disposed = nil
	p.poolMu.Unlock()

	var firstErr error
	for _, w := range toFlush {
		if err := w.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
