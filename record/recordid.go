package record

import (
	"encoding/binary"

	"github.com/segrepo/segstore/segerrs"
)

// RecordRefSize is the wire size of a RecordRef: a u16 segment-table index
// plus a u32 record number.
const RecordRefSize = 6

// RecordRef is the raw 6-byte form of a RecordId as it appears on the wire:
// an index into the enclosing segment's reference table, and a record
// number local to the segment that index resolves to. Resolving Index to a
// SegmentId requires the enclosing segment's reference table, so that step
// lives in the segment package rather than here.
type RecordRef struct {
	Index  uint16
	Number uint32
}

// WriteRecordRef appends the 6-byte wire form of r to buf.
func WriteRecordRef(buf []byte, r RecordRef) []byte {
	var tmp [RecordRefSize]byte
	binary.BigEndian.PutUint16(tmp[0:2], r.Index)
	binary.BigEndian.PutUint32(tmp[2:6], r.Number)
	return append(buf, tmp[:]...)
}

// ReadRecordRef decodes a RecordRef from the front of data.
func ReadRecordRef(data []byte) (RecordRef, int, error) {
	if len(data) < RecordRefSize {
		return RecordRef{}, 0, segerrs.ErrBadRecord
	}
	return RecordRef{
		Index:  binary.BigEndian.Uint16(data[0:2]),
		Number: binary.BigEndian.Uint32(data[2:6]),
	}, RecordRefSize, nil
}
