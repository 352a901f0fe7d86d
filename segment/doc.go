// Package segment implements segment identity (C5), the segment reader
// (C2), and the buffered segment writer (C3).
//
// A Segment is an immutable, parsed view over one segment's bytes: its
// header, reference table, record table, and payload. An Id is the 128-bit
// identity of a segment plus the bookkeeping the rest of the engine hangs
// off it — a 1st-level cache reference, a generation tag, and a
// reclamation note used for not-found diagnostics. Neither type knows
// about a store or a 2nd-level cache; segcache.Cache is the caller that
// wires Id.SetLoaded/ClearLoaded to its own insert and eviction lifecycle.
package segment
