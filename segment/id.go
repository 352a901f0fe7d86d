package segment

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Id is the 128-bit identity of a segment, plus the bookkeeping the rest of
// the engine attaches to it: a generation tag (set lazily on first load), an
// optional reclamation note explaining a GC decision, and the 1st-level
// cache reference to its loaded Segment.
//
// Exactly one Id exists per (msb, lsb) per store; Tracker enforces that by
// interning. Equality is pointer equality on an interned Id.
type Id struct {
	msb, lsb uint64

	createdAt time.Time

	mu              sync.Mutex // the "id's monitor" referenced by the loader protocol
	generation      atomic.Int64
	reclamationNote atomic.Pointer[string]
	loaded          atomic.Pointer[Segment] // the 1st-level cache reference
}

// dataNibble and bulkNibble are the only two top-nibble values a persisted
// low-64-bits identifier may carry.
const (
	dataNibble = 0xA
	bulkNibble = 0xB
)

// unknownGeneration marks a generation that has not yet been filled in by a
// load; it is distinct from any valid generation number (generations start
// at 0 in writerpool).
const unknownGeneration = -1

func newId(msb, lsb uint64) *Id {
	id := &Id{msb: msb, lsb: lsb, createdAt: time.Now()}
	id.generation.Store(unknownGeneration)
	return id
}

// MSB returns the high 64 bits of the identifier.
func (id *Id) MSB() uint64 { return id.msb }

// LSB returns the low 64 bits of the identifier.
func (id *Id) LSB() uint64 { return id.lsb }

// IsDataSegment reports whether this id names a data segment: structured
// header, reference table, record table, payload.
func (id *Id) IsDataSegment() bool {
	return (id.lsb >> 60) == dataNibble
}

// IsBulkSegment reports whether this id names a bulk segment: opaque bytes,
// no outbound references, never cached.
func (id *Id) IsBulkSegment() bool {
	return (id.lsb >> 60) == bulkNibble
}

// String renders the id as zero-padded msb and lsb hex joined by '-'.
func (id *Id) String() string {
	return fmt.Sprintf("%016x-%016x", id.msb, id.lsb)
}

// Generation returns the GC generation tag, or unknownGeneration if no load
// has filled it in yet.
func (id *Id) Generation() int64 {
	return id.generation.Load()
}

// SetGeneration fills in the generation tag, normally done once by whatever
// loaded this id's Segment.
func (id *Id) SetGeneration(gen int64) {
	id.generation.Store(gen)
}

// ReclamationNote returns the explanatory text set when GC reclaimed this
// segment, or "" if none was set.
func (id *Id) ReclamationNote() string {
	p := id.reclamationNote.Load()
	if p == nil {
		return ""
	}
	return *p
}

// SetReclamationNote records why GC reclaimed this segment.
func (id *Id) SetReclamationNote(note string) {
	id.reclamationNote.Store(&note)
}

// GCInfo composes the diagnostic string attached to a not-found error: the
// id's age, its reclamation note (if any), and its generation.
func (id *Id) GCInfo() string {
	age := time.Since(id.createdAt)
	note := id.ReclamationNote()
	if note == "" {
		note = "none"
	}
	gen := id.Generation()
	genStr := "unknown"
	if gen != unknownGeneration {
		genStr = fmt.Sprintf("%d", gen)
	}
	return fmt.Sprintf("age=%s reclamation=%s generation=%s", age.Round(time.Millisecond), note, genStr)
}

// LoadedSegment returns the 1st-level cache reference, or nil if this id's
// Segment is not currently resident.
func (id *Id) LoadedSegment() *Segment {
	return id.loaded.Load()
}

// SetLoaded publishes seg as the 1st-level cache reference. Callers (the
// segment cache, on insert) must call this before their own insert
// completes so an observer can never see the cache entry without also
// being able to see the 1st-level reference.
func (id *Id) SetLoaded(seg *Segment) {
	id.loaded.Store(seg)
}

// ClearLoaded clears the 1st-level cache reference. The segment cache calls
// this from its eviction callback.
func (id *Id) ClearLoaded() {
	id.loaded.Store(nil)
}

// Lock and Unlock expose the id's monitor for the double-checked-locking
// load protocol described for the 1st-level cache: callers re-check
// LoadedSegment after acquiring the lock, since another goroutine may have
// completed a load while the lock was being acquired.
func (id *Id) Lock()   { id.mu.Lock() }
func (id *Id) Unlock() { id.mu.Unlock() }

// Tracker interns Ids so exactly one Id instance exists per (msb, lsb)
// within a store's lifetime.
type Tracker struct {
	mu  sync.Mutex
	ids map[[2]uint64]*Id
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{ids: make(map[[2]uint64]*Id)}
}

// Intern returns the single Id for (msb, lsb), creating and registering one
// on first reference.
func (t *Tracker) Intern(msb, lsb uint64) *Id {
	key := [2]uint64{msb, lsb}

	t.mu.Lock()
	defer t.mu.Unlock()

	if id, ok := t.ids[key]; ok {
		return id
	}
	id := newId(msb, lsb)
	t.ids[key] = id
	return id
}

// Len reports the number of distinct ids this tracker has interned.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}
