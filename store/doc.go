// Package store provides the C7 durable-storage implementations of
// segment.Store: Memory, an in-process map for tests, and
// Dir, a one-file-per-segment directory-backed store that optionally
// compresses bulk (BLOCK-record) segment payloads before they hit disk.
package store
