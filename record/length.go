package record

import (
	"encoding/binary"

	"github.com/segrepo/segstore/segerrs"
)

// Kind identifies which of the three length encodings was used to write a
// value. A Long length never carries its payload inline: the bytes live in a
// separate record and the length header is followed by a RecordRef pointer.
type Kind uint8

const (
	Small Kind = iota
	Medium
	Long
)

const (
	smallLimit  = 128               // exclusive upper bound of the small form
	mediumSpan  = 1 << 14           // width of the medium form's range
	mediumLimit = smallLimit + mediumSpan // exclusive upper bound of the medium form
	longMask    = 1<<61 - 1         // data bits available in the 8-byte long form

	// MaxLength is the largest length this codec will encode or decode.
	// Values at or above it are rejected with segerrs.ErrInvalidLength,
	// mirroring the historic Int.MAX_VALUE ceiling on string/blob sizes.
	MaxLength = 1 << 31
)

const (
	mediumTag byte = 0x80 // top 2 bits "10"
	longTag   byte = 0xC0 // top 3 bits "110"
	longMask8 byte = 0xE0 // mask for reading back the top 3 bits
)

// LengthSize returns the number of header bytes WriteLength will emit for n,
// without writing anything. Callers size buffers with it before a Grow.
func LengthSize(n uint64) int {
	switch {
	case n < smallLimit:
		return 1
	case n < mediumLimit:
		return 2
	default:
		return 8
	}
}

// WriteLength appends the small/medium/long encoding of n to buf and returns
// the extended slice. n must be less than MaxLength.
func WriteLength(buf []byte, n uint64) ([]byte, error) {
	switch {
	case n >= MaxLength:
		return buf, segerrs.ErrInvalidLength
	case n < smallLimit:
		return append(buf, byte(n)), nil
	case n < mediumLimit:
		v := uint16(n - smallLimit)
		var tmp [2]byte
		binary.BigEndian.PutUint16(tmp[:], v)
		tmp[0] = mediumTag | (tmp[0] & 0x3F)
		return append(buf, tmp[:]...), nil
	default:
		v := (n - mediumLimit) & longMask
		var tmp [8]byte
		binary.BigEndian.PutUint64(tmp[:], v)
		tmp[0] = longTag | (tmp[0] & 0x1F)
		return append(buf, tmp[:]...), nil
	}
}

// ReadLength decodes a length header from the front of data, returning the
// decoded value, the Kind of encoding used, and the number of bytes
// consumed. data must hold at least the bytes the marker's top bits declare.
func ReadLength(data []byte) (value uint64, kind Kind, consumed int, err error) {
	if len(data) == 0 {
		return 0, Small, 0, segerrs.ErrBadRecord
	}

	b0 := data[0]
	switch {
	case b0&0x80 == 0:
		return uint64(b0), Small, 1, nil
	case b0&0xC0 == mediumTag:
		if len(data) < 2 {
			return 0, Medium, 0, segerrs.ErrBadRecord
		}
		v := binary.BigEndian.Uint16(data[:2]) & 0x3FFF
		return uint64(v) + smallLimit, Medium, 2, nil
	case b0&longMask8 == longTag:
		if len(data) < 8 {
			return 0, Long, 0, segerrs.ErrBadRecord
		}
		v := binary.BigEndian.Uint64(data[:8]) & longMask
		if v >= MaxLength-mediumLimit {
			return 0, Long, 0, segerrs.ErrInvalidLength
		}
		return v + mediumLimit, Long, 8, nil
	default:
		return 0, Small, 0, segerrs.ErrInvalidLength
	}
}
