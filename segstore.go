// Package segstore wires the segment storage engine's layers together
// behind a small convenience API: a durable store (store.Memory or
// store.Dir), the weighted 2nd-level segment cache (segcache.Cache), and
// the thread-affinity writer pool (writerpool.Pool). It also carries the
// one helper that genuinely spans layers — resolving a long-form string
// that lives in a record of another segment — since neither
// segment.Reader nor segcache.Cache alone has enough context to load
// across a segment boundary.
//
// This package mirrors the role the teacher's own root package played:
// a thin, documented entry point over the lower-level packages, useful
// for the common case and never required for advanced usage.
package segstore

import (
	"context"

	"github.com/segrepo/segstore/record"
	"github.com/segrepo/segstore/segcache"
	"github.com/segrepo/segstore/segment"
	"github.com/segrepo/segstore/writerpool"
)

// WriterKey is the thread-affinity key Engine's writer pool is keyed by.
// Callers pick a stable identifier per logical writer — a worker id, a
// shard name, a session id — since Go has no notion of the calling OS
// thread's identity the way the original pool protocol assumed.
type WriterKey = string

// Engine bundles a durable Store with the 2nd-level cache that sits in
// front of it and the writer pool that appends to it. It is the ordinary
// entry point; segment, segcache, writerpool, and store remain usable
// directly for callers who need finer control.
type Engine struct {
	store segment.Store
	cache *segcache.Cache
	pool  *writerpool.Pool[WriterKey]
}

// Option configures an Engine at construction.
type Option func(*engineConfig)

type engineConfig struct {
	cacheOpts []segcache.Option
	poolOpts  []writerpool.Option[WriterKey]
}

// WithCacheOptions threads options through to the engine's segcache.Cache.
func WithCacheOptions(opts ...segcache.Option) Option {
	return func(c *engineConfig) { c.cacheOpts = append(c.cacheOpts, opts...) }
}

// WithPoolOptions threads options through to the engine's writerpool.Pool.
func WithPoolOptions(opts ...writerpool.Option[WriterKey]) Option {
	return func(c *engineConfig) { c.poolOpts = append(c.poolOpts, opts...) }
}

// NewEngine wires store behind a fresh cache and writer pool named
// poolName (used as the diagnostic prefix for every writer the pool
// mints).
func NewEngine(poolName string, store segment.Store, opts ...Option) *Engine {
	cfg := &engineConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	return &Engine{
		store: store,
		cache: segcache.New(cfg.cacheOpts...),
		pool:  writerpool.New[WriterKey](poolName, store, cfg.poolOpts...),
	}
}

// Store returns the engine's underlying durable store.
func (e *Engine) Store() segment.Store { return e.store }

// Cache returns the engine's 2nd-level segment cache.
func (e *Engine) Cache() *segcache.Cache { return e.cache }

// Pool returns the engine's writer pool.
func (e *Engine) Pool() *writerpool.Pool[WriterKey] { return e.pool }

// Load resolves id to its Segment, consulting the 2nd-level cache before
// falling through to the store.
func (e *Engine) Load(id *segment.Id) (*segment.Segment, error) {
	return e.cache.GetSegment(id, func() (*segment.Segment, error) {
		return e.store.ReadSegment(id)
	})
}

// Write borrows the writer affine to key and runs op against it, per
// writerpool.Pool.Execute.
func (e *Engine) Write(key WriterKey, op func(w *segment.BufferWriter) error) error {
	return e.pool.Execute(key, op)
}

// Flush durably emits every writer the pool currently holds active or
// borrowed, per writerpool.Pool.Flush.
func (e *Engine) Flush(ctx context.Context) error {
	return e.pool.Flush(ctx)
}

// ResolveString returns sv's string value, loading and reading its
// referent segment for the long (out-of-line) form. The inline
// (small/medium) form is returned directly with no further I/O.
func (e *Engine) ResolveString(sv segment.StringValue) (string, error) {
	if sv.Kind != record.Long {
		return sv.Inline, nil
	}

	seg, err := e.Load(sv.Ref.Referent)
	if err != nil {
		return "", err
	}
	reader, err := segment.NewReader(seg)
	if err != nil {
		return "", err
	}
	length, err := reader.RecordLength(sv.Ref.Number)
	if err != nil {
		return "", err
	}
	b, err := reader.ReadBytes(sv.Ref.Number, 0, length)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
