package segment

import (
	"encoding/binary"
	"fmt"

	"github.com/segrepo/segstore/internal/options"
	"github.com/segrepo/segstore/internal/pool"
	"github.com/segrepo/segstore/record"
	"github.com/segrepo/segstore/segerrs"
)

// DefaultMaxSegmentSize is the writer's default ceiling on a segment's
// total wire size (header + reference table + record table + payload +
// checksum), per spec's 256 KiB default.
const DefaultMaxSegmentSize = 256 * 1024

// WriterOption configures a BufferWriter at construction.
type WriterOption = options.Option[*BufferWriter]

// WithMaxSegmentSize overrides DefaultMaxSegmentSize.
func WithMaxSegmentSize(n int) WriterOption {
	return options.NoError(func(w *BufferWriter) { w.maxSize = n })
}

// BufferWriter accumulates records into an in-memory segment buffer and
// emits them to a Store on Flush. It implements the "segment buffer
// writer" role (C3): single-writer, never shared across goroutines; the
// writer pool (writerpool.Pool) enforces that affinity.
type BufferWriter struct {
	store      Store
	tracker    *Tracker
	poolName   string
	writerID   string
	generation int64
	maxSize    int

	id      *Id
	buf     *pool.ByteBuffer
	refs    []*Id
	refIdx  map[*Id]uint16
	records []wireRecordEntry

	nextRecordNumber uint32
	remaining        int   // bytes still reservable in the record currently being written
	recordStarts     []int // buf.Len() at Prepare time, parallel to records
}

// NewBufferWriter constructs a writer named "<poolName>.<seq mod 10000>"
// (zero-padded to 4 digits), tagged with generation, backed by store. The
// writer mints a fresh data segment id immediately; Flush replaces it with
// another fresh id so the writer is reusable after a flush.
func NewBufferWriter(poolName string, seq int, generation int64, store Store, opts ...WriterOption) *BufferWriter {
	w := &BufferWriter{
		store:      store,
		tracker:    store.Tracker(),
		poolName:   poolName,
		writerID:   fmt.Sprintf("%s.%04d", poolName, seq%10000),
		generation: generation,
		maxSize:    DefaultMaxSegmentSize,
	}
	_ = options.Apply(w, opts...)

	w.reset()
	return w
}

// WriterID returns this writer's "W.NNNN" diagnostic name.
func (w *BufferWriter) WriterID() string { return w.writerID }

// Generation returns the GC generation this writer was minted under.
func (w *BufferWriter) Generation() int64 { return w.generation }

// SegmentId returns the id of the segment currently being accumulated.
func (w *BufferWriter) SegmentId() *Id { return w.id }

func (w *BufferWriter) reset() {
	if w.buf != nil {
		pool.PutSegmentBuffer(w.buf)
	}
	w.buf = pool.GetSegmentBuffer()
	w.refs = nil
	w.refIdx = make(map[*Id]uint16)
	w.records = nil
	w.nextRecordNumber = 0
	w.remaining = 0
	w.recordStarts = nil
	w.id = MintDataSegmentId(w.tracker)
}

// refIndex returns id's index into this writer's reference table,
// deduplicating references by identity as spec mandates.
func (w *BufferWriter) refIndex(id *Id) uint16 {
	if idx, ok := w.refIdx[id]; ok {
		return idx
	}
	idx := uint16(len(w.refs))
	w.refs = append(w.refs, id)
	w.refIdx[id] = idx
	return idx
}

// wouldOverflow reports whether reserving size payload bytes and refCount
// new reference-table slots could push the segment past maxSize, using a
// conservative (over-)estimate that treats every ref as new.
func (w *BufferWriter) wouldOverflow(size, refCount int) bool {
	projRefs := len(w.refs) + refCount
	projRecords := len(w.records) + 1
	projPayload := w.buf.Len() + size
	total := headerSize + projRefs*refEntrySize + projRecords*recordEntrySize + projPayload + checksumSize
	return total > w.maxSize
}

// Prepare reserves size payload bytes and enough reference-table capacity
// for refCount distinct references, flushing and starting a fresh segment
// first if the reservation would overflow maxSize. It returns the RecordId
// the caller should use to refer to the record it is about to write.
func (w *BufferWriter) Prepare(recordType RecordType, size, refCount int) (RecordId, error) {
	if size < 0 || refCount < 0 {
		return RecordId{}, segerrs.ErrBadRecord
	}

	if w.wouldOverflow(size, refCount) {
		if err := w.Flush(); err != nil {
			return RecordId{}, err
		}
	}

	recordNumber := w.nextRecordNumber
	w.records = append(w.records, wireRecordEntry{RecordNumber: recordNumber, Type: recordType})
	w.recordStarts = append(w.recordStarts, w.buf.Len())
	w.nextRecordNumber++
	w.remaining = size

	return RecordId{Referent: w.id, Number: recordNumber}, nil
}

func (w *BufferWriter) advance(n int) error {
	if n > w.remaining {
		return segerrs.ErrBadRecord
	}
	w.remaining -= n
	return nil
}

// WriteByte appends one byte to the record currently being written.
func (w *BufferWriter) WriteByte(b byte) error {
	if err := w.advance(1); err != nil {
		return err
	}
	_, _ = w.buf.Write([]byte{b})
	return nil
}

// WriteShort appends a big-endian uint16.
func (w *BufferWriter) WriteShort(v uint16) error {
	if err := w.advance(2); err != nil {
		return err
	}
	var tmp [2]byte
	binary.BigEndian.PutUint16(tmp[:], v)
	_, _ = w.buf.Write(tmp[:])
	return nil
}

// WriteInt appends a big-endian uint32.
func (w *BufferWriter) WriteInt(v uint32) error {
	if err := w.advance(4); err != nil {
		return err
	}
	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], v)
	_, _ = w.buf.Write(tmp[:])
	return nil
}

// WriteLong appends a big-endian uint64.
func (w *BufferWriter) WriteLong(v uint64) error {
	if err := w.advance(8); err != nil {
		return err
	}
	var tmp [8]byte
	binary.BigEndian.PutUint64(tmp[:], v)
	_, _ = w.buf.Write(tmp[:])
	return nil
}

// WriteBytes appends data verbatim.
func (w *BufferWriter) WriteBytes(data []byte) error {
	if err := w.advance(len(data)); err != nil {
		return err
	}
	_, _ = w.buf.Write(data)
	return nil
}

// WriteRecordId appends the 6-byte wire form of id, interning its referent
// into this segment's reference table.
func (w *BufferWriter) WriteRecordId(id RecordId) error {
	if err := w.advance(record.RecordRefSize); err != nil {
		return err
	}
	ref := record.RecordRef{Index: w.refIndex(id.Referent), Number: id.Number}
	_, _ = w.buf.Write(record.WriteRecordRef(nil, ref))
	return nil
}

// WriteLength appends a small/medium/long length header for n.
func (w *BufferWriter) WriteLength(n uint64) error {
	size := record.LengthSize(n)
	if err := w.advance(size); err != nil {
		return err
	}
	b, err := record.WriteLength(nil, n)
	if err != nil {
		return err
	}
	_, _ = w.buf.Write(b)
	return nil
}

// Flush assembles the accumulated segment, writes it durably via the
// store, and starts a fresh segment so the writer can be reused. Flushing
// an empty writer (no records prepared) is a no-op that still mints a new
// segment id, matching the pool's idempotent-flush guarantee.
func (w *BufferWriter) Flush() error {
	if len(w.records) == 0 {
		w.reset()
		return nil
	}

	payloadLen := w.buf.Len()
	for i, start := range w.recordStarts {
		w.records[i].OffsetFromSegmentEnd = uint32(payloadLen - start)
	}

	data := Assemble(w.generation, w.refs, w.records, w.buf.Bytes())
	if err := w.store.WriteSegment(w.id, data); err != nil {
		return err
	}

	w.reset()
	return nil
}
