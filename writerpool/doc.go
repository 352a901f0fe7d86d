// Package writerpool implements the thread-affinity writer pool (C6): a
// dispenser of segment.BufferWriter values keyed by a caller-chosen
// affinity key, with generation-aware disposal and the two-monitor flush
// protocol that durably emits every writer that was active or borrowed at
// the moment flush began.
//
// It also carries the string/template/node record interning caches
// described alongside the pool: pure space optimizations a writer
// consults before emitting a record it may already have written.
package writerpool
