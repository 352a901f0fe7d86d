package segment

import "github.com/segrepo/segstore/segerrs"

// RecordType identifies the shape of a record's payload. It determines
// decoding only; every record is byte-addressable uniformly regardless of
// type.
type RecordType uint8

const (
	Leaf RecordType = iota
	Branch
	Bucket
	List
	Node
	Template
	Value
	Block
)

func (t RecordType) String() string {
	switch t {
	case Leaf:
		return "LEAF"
	case Branch:
		return "BRANCH"
	case Bucket:
		return "BUCKET"
	case List:
		return "LIST"
	case Node:
		return "NODE"
	case Template:
		return "TEMPLATE"
	case Value:
		return "VALUE"
	case Block:
		return "BLOCK"
	default:
		return "UNKNOWN"
	}
}

// RecordId is a resolved (SegmentId, recordNumber) pair: the in-memory
// counterpart of record.RecordRef, once its Index has been resolved
// against a reference table to an actual *Id.
type RecordId struct {
	Referent *Id
	Number   uint32
}

// recordEntry is a record table entry with its wire offset already
// resolved to an extent (Start, Length) within the segment's payload.
type recordEntry struct {
	Type   RecordType
	Start  int
	Length int
}

// Segment is a fully parsed, immutable view over one segment's bytes: its
// id, generation, resolved reference table, record table, and payload.
// Bulk segments carry only id, generation and payload; Refs and Records
// are empty for them.
type Segment struct {
	id         *Id
	generation int64
	bulk       bool

	refs    []*Id
	records []recordEntry
	payload []byte
}

// Id returns the segment's identity.
func (s *Segment) Id() *Id { return s.id }

// Generation returns the GC generation this segment was written under.
func (s *Segment) Generation() int64 { return s.generation }

// IsBulk reports whether this is a bulk segment (opaque bytes, no
// reference table, not eligible for the 2nd-level cache).
func (s *Segment) IsBulk() bool { return s.bulk }

// Payload returns the raw bulk-segment bytes. Only meaningful when IsBulk
// is true; data segments expose their payload only through a Reader.
func (s *Segment) Payload() []byte { return s.payload }

// RecordCount returns the number of records in this segment's record
// table. Zero for bulk segments.
func (s *Segment) RecordCount() int { return len(s.records) }

// ReferenceCount returns the number of entries in this segment's reference
// table. Zero for bulk segments.
func (s *Segment) ReferenceCount() int { return len(s.refs) }

// WireSize estimates this segment's on-wire byte size: the sum of its
// header, reference table, record table, payload and checksum for a data
// segment, or its raw byte length for a bulk segment. segcache uses this as
// the basis for a cache entry's weight.
func (s *Segment) WireSize() int {
	if s.bulk {
		return len(s.payload)
	}
	return headerSize + len(s.refs)*refEntrySize + len(s.records)*recordEntrySize + len(s.payload) + checksumSize
}

// Reference returns the resolved referent Id at the given reference table
// index.
func (s *Segment) Reference(index uint16) (*Id, error) {
	if int(index) >= len(s.refs) {
		return nil, segerrs.ErrBadRecord
	}
	return s.refs[index], nil
}

func (s *Segment) entry(recordNumber uint32) (recordEntry, error) {
	if int(recordNumber) >= len(s.records) {
		return recordEntry{}, segerrs.ErrBadRecord
	}
	return s.records[recordNumber], nil
}

// NewBulkSegment wraps raw bytes as a bulk segment under id. Bulk segments
// have no header, no reference table, and no record table: payload is the
// entire byte range as given to the store.
func NewBulkSegment(id *Id, payload []byte) (*Segment, error) {
	if !id.IsBulkSegment() {
		return nil, segerrs.ErrBadRecord
	}
	return &Segment{id: id, bulk: true, payload: payload}, nil
}
