package segment

import (
	"github.com/segrepo/segstore/endian"
	"github.com/segrepo/segstore/internal/hash"
	"github.com/segrepo/segstore/segerrs"
)

// Wire layout of a data segment (format v1):
//
//	magic(4) version(2) reserved(2) generation(4) refCount(2) recordCount(2)  = 16 bytes
//	reference table: refCount * 16 bytes, each (msb uint64, lsb uint64) little-endian
//	record table: recordCount * 9 bytes, each (recordNumber u32, type u8, offsetFromSegmentEnd u32)
//	payload: remainder, minus the trailing checksum
//	checksum: 8 bytes, xxHash64 of everything from the end of the header to here
const (
	headerSize      = 16
	refEntrySize    = 16
	recordEntrySize = 9
	checksumSize    = 8

	formatVersion uint16 = 1
)

var magicBytes = [4]byte{'S', 'S', 'T', '1'}

var endianness = endian.GetLittleEndianEngine()

type wireHeader struct {
	Generation  uint32
	RefCount    uint16
	RecordCount uint16
}

func encodeHeader(buf []byte, h wireHeader) []byte {
	var tmp [headerSize]byte
	copy(tmp[0:4], magicBytes[:])
	endianness.PutUint16(tmp[4:6], formatVersion)
	// tmp[6:8] reserved, left zero.
	endianness.PutUint32(tmp[8:12], h.Generation)
	endianness.PutUint16(tmp[12:14], h.RefCount)
	endianness.PutUint16(tmp[14:16], h.RecordCount)
	return append(buf, tmp[:]...)
}

func decodeHeader(data []byte) (wireHeader, error) {
	if len(data) < headerSize {
		return wireHeader{}, segerrs.ErrBadRecord
	}
	if [4]byte(data[0:4]) != magicBytes {
		return wireHeader{}, segerrs.ErrBadRecord
	}
	if endianness.Uint16(data[4:6]) != formatVersion {
		return wireHeader{}, segerrs.ErrBadRecord
	}
	return wireHeader{
		Generation:  endianness.Uint32(data[8:12]),
		RefCount:    endianness.Uint16(data[12:14]),
		RecordCount: endianness.Uint16(data[14:16]),
	}, nil
}

func encodeReferenceTable(buf []byte, refs []*Id) []byte {
	for _, id := range refs {
		var tmp [refEntrySize]byte
		endianness.PutUint64(tmp[0:8], id.MSB())
		endianness.PutUint64(tmp[8:16], id.LSB())
		buf = append(buf, tmp[:]...)
	}
	return buf
}

func decodeReferenceTable(data []byte, count int, resolve func(msb, lsb uint64) *Id) ([]*Id, int, error) {
	size := count * refEntrySize
	if len(data) < size {
		return nil, 0, segerrs.ErrBadRecord
	}
	refs := make([]*Id, count)
	for i := 0; i < count; i++ {
		off := i * refEntrySize
		msb := endianness.Uint64(data[off : off+8])
		lsb := endianness.Uint64(data[off+8 : off+16])
		refs[i] = resolve(msb, lsb)
	}
	return refs, size, nil
}

// wireRecordEntry is a record table entry as it appears on the wire, before
// its offsetFromSegmentEnd has been resolved to a payload-relative extent.
type wireRecordEntry struct {
	RecordNumber         uint32
	Type                 RecordType
	OffsetFromSegmentEnd uint32
}

func encodeRecordTable(buf []byte, entries []wireRecordEntry) []byte {
	for _, e := range entries {
		var tmp [recordEntrySize]byte
		endianness.PutUint32(tmp[0:4], e.RecordNumber)
		tmp[4] = byte(e.Type)
		endianness.PutUint32(tmp[5:9], e.OffsetFromSegmentEnd)
		buf = append(buf, tmp[:]...)
	}
	return buf
}

func decodeRecordTable(data []byte, count int) ([]wireRecordEntry, int, error) {
	size := count * recordEntrySize
	if len(data) < size {
		return nil, 0, segerrs.ErrBadRecord
	}
	entries := make([]wireRecordEntry, count)
	for i := 0; i < count; i++ {
		off := i * recordEntrySize
		entries[i] = wireRecordEntry{
			RecordNumber:         endianness.Uint32(data[off : off+4]),
			Type:                 RecordType(data[off+4]),
			OffsetFromSegmentEnd: endianness.Uint32(data[off+5 : off+9]),
		}
	}
	return entries, size, nil
}

// Parse decodes a segment's raw bytes. Bulk segments (IsBulkSegment) have no
// structured layout: the bytes are the payload verbatim. Data segments are
// parsed per the v1 wire layout above; resolve maps a reference table
// entry's (msb, lsb) to the interned *Id the store's tracker already holds.
func Parse(data []byte, id *Id, resolve func(msb, lsb uint64) *Id) (*Segment, error) {
	if id.IsBulkSegment() {
		return NewBulkSegment(id, data)
	}
	if !id.IsDataSegment() {
		return nil, segerrs.ErrBadRecord
	}

	h, err := decodeHeader(data)
	if err != nil {
		return nil, err
	}

	off := headerSize
	refs, n, err := decodeReferenceTable(data[off:], int(h.RefCount), resolve)
	if err != nil {
		return nil, err
	}
	off += n

	wireRecords, n, err := decodeRecordTable(data[off:], int(h.RecordCount))
	if err != nil {
		return nil, err
	}
	off += n

	if len(data) < off+checksumSize {
		return nil, segerrs.ErrBadRecord
	}
	payload := data[off : len(data)-checksumSize]

	want := endianness.Uint64(data[len(data)-checksumSize:])
	got := hash.Checksum(data[headerSize : len(data)-checksumSize])
	if want != got {
		return nil, segerrs.ErrSegmentChecksum
	}

	records, err := resolveExtents(wireRecords, len(payload))
	if err != nil {
		return nil, err
	}

	return &Segment{
		id:         id,
		generation: int64(h.Generation),
		refs:       refs,
		records:    records,
		payload:    payload,
	}, nil
}

// resolveExtents converts offsetFromSegmentEnd values (measured from the
// end of the payload) into payload-relative (start, length) extents.
// Records are append-only and numbered 0..N-1 in write order, so record i's
// length runs until record i+1's start, or the end of the payload for the
// last record.
func resolveExtents(entries []wireRecordEntry, payloadLen int) ([]recordEntry, error) {
	out := make([]recordEntry, len(entries))
	for i, e := range entries {
		if int(e.RecordNumber) != i {
			return nil, segerrs.ErrBadRecord
		}
		start := payloadLen - int(e.OffsetFromSegmentEnd)
		if start < 0 || start > payloadLen {
			return nil, segerrs.ErrBadRecord
		}
		out[i] = recordEntry{Type: e.Type, Start: start}
	}
	for i := range out {
		if i+1 < len(out) {
			out[i].Length = out[i+1].Start - out[i].Start
		} else {
			out[i].Length = payloadLen - out[i].Start
		}
		if out[i].Length < 0 {
			return nil, segerrs.ErrBadRecord
		}
	}
	return out, nil
}

// Assemble packs a data segment's generation, resolved reference table,
// record table (in recordNumber order) and raw payload bytes into its final
// wire form, appending the trailing checksum.
func Assemble(generation int64, refs []*Id, entries []wireRecordEntry, payload []byte) []byte {
	buf := make([]byte, 0, headerSize+len(refs)*refEntrySize+len(entries)*recordEntrySize+len(payload)+checksumSize)

	buf = encodeHeader(buf, wireHeader{
		Generation:  uint32(generation),
		RefCount:    uint16(len(refs)),
		RecordCount: uint16(len(entries)),
	})
	buf = encodeReferenceTable(buf, refs)
	buf = encodeRecordTable(buf, entries)
	buf = append(buf, payload...)

	sum := hash.Checksum(buf[headerSize:])
	var tmp [checksumSize]byte
	endianness.PutUint64(tmp[:], sum)
	buf = append(buf, tmp[:]...)

	return buf
}
