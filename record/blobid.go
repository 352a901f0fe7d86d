package record

import "github.com/segrepo/segstore/segerrs"

// BlobSmallLimit is the exclusive upper bound on a blob stored inline with
// the small blob id encoding; at or above it a blob is always stored
// out-of-line behind a RecordRef.
const BlobSmallLimit = 4096

const (
	blobSmallTag byte = 0xE0 // top nibble 1110
	blobLongTag  byte = 0xF0 // 1111 0000, followed by a RecordRef
)

// WriteSmallBlobID appends the small blob id header for a payload of the
// given length to buf. The caller appends the payload bytes itself.
func WriteSmallBlobID(buf []byte, length int) ([]byte, error) {
	if length < 0 || length >= BlobSmallLimit {
		return buf, segerrs.ErrInvalidLength
	}
	b0 := blobSmallTag | byte((length>>8)&0x0F)
	b1 := byte(length & 0xFF)
	return append(buf, b0, b1), nil
}

// WriteLongBlobID appends the long blob id header, pointing at ref, to buf.
func WriteLongBlobID(buf []byte, ref RecordRef) []byte {
	buf = append(buf, blobLongTag)
	return WriteRecordRef(buf, ref)
}

// BlobIDKind distinguishes the two blob id wire forms.
type BlobIDKind uint8

const (
	BlobSmall BlobIDKind = iota
	BlobLong
)

// ReadBlobID inspects the marker byte at the front of data and decodes
// either a small blob id (returning its inline length) or a long blob id
// (returning the RecordRef it points to).
func ReadBlobID(data []byte) (kind BlobIDKind, length int, ref RecordRef, consumed int, err error) {
	if len(data) == 0 {
		return 0, 0, RecordRef{}, 0, segerrs.ErrBadRecord
	}

	b0 := data[0]
	switch {
	case b0&0xF0 == blobSmallTag:
		if len(data) < 2 {
			return 0, 0, RecordRef{}, 0, segerrs.ErrBadRecord
		}
		n := (int(b0&0x0F) << 8) | int(data[1])
		return BlobSmall, n, RecordRef{}, 2, nil
	case b0 == blobLongTag:
		r, n, err := ReadRecordRef(data[1:])
		if err != nil {
			return 0, 0, RecordRef{}, 0, err
		}
		return BlobLong, 0, r, 1 + n, nil
	default:
		return 0, 0, RecordRef{}, 0, segerrs.ErrInvalidLength
	}
}
