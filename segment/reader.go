package segment

import (
	"encoding/binary"

	"github.com/segrepo/segstore/record"
	"github.com/segrepo/segstore/segerrs"
)

// Reader is a random-access view over one Segment's payload: it resolves
// (recordNumber, offset) pairs to typed values using the record codec,
// refusing any read that would cross the record's declared boundary.
type Reader struct {
	seg *Segment
}

// NewReader wraps seg for random access. seg must not be a bulk segment;
// bulk segments are read via Segment.Payload directly.
func NewReader(seg *Segment) (*Reader, error) {
	if seg.IsBulk() {
		return nil, segerrs.ErrBadRecord
	}
	return &Reader{seg: seg}, nil
}

// RecordType returns the declared type of a record.
func (r *Reader) RecordType(recordNumber uint32) (RecordType, error) {
	e, err := r.seg.entry(recordNumber)
	if err != nil {
		return 0, err
	}
	return e.Type, nil
}

// RecordLength returns a record's full declared length, as used to bound a
// whole-record read (for instance an out-of-line blob or long-string
// payload stored as a standalone record with no further length header).
func (r *Reader) RecordLength(recordNumber uint32) (int, error) {
	e, err := r.seg.entry(recordNumber)
	if err != nil {
		return 0, err
	}
	return e.Length, nil
}

// bounded returns the bytes of record recordNumber starting at offset,
// rejecting a read that would start outside the record's declared extent.
func (r *Reader) bounded(recordNumber uint32, offset int) ([]byte, error) {
	e, err := r.seg.entry(recordNumber)
	if err != nil {
		return nil, err
	}
	if offset < 0 || offset > e.Length {
		return nil, segerrs.ErrBadRecord
	}
	start := e.Start + offset
	end := e.Start + e.Length
	return r.seg.payload[start:end], nil
}

// ReadByte reads one byte at (recordNumber, offset).
func (r *Reader) ReadByte(recordNumber uint32, offset int) (byte, error) {
	b, err := r.bounded(recordNumber, offset)
	if err != nil {
		return 0, err
	}
	if len(b) < 1 {
		return 0, segerrs.ErrBadRecord
	}
	return b[0], nil
}

// ReadShort reads a big-endian uint16 at (recordNumber, offset).
func (r *Reader) ReadShort(recordNumber uint32, offset int) (uint16, error) {
	b, err := r.bounded(recordNumber, offset)
	if err != nil {
		return 0, err
	}
	if len(b) < 2 {
		return 0, segerrs.ErrBadRecord
	}
	return binary.BigEndian.Uint16(b[:2]), nil
}

// ReadInt reads a big-endian uint32 at (recordNumber, offset).
func (r *Reader) ReadInt(recordNumber uint32, offset int) (uint32, error) {
	b, err := r.bounded(recordNumber, offset)
	if err != nil {
		return 0, err
	}
	if len(b) < 4 {
		return 0, segerrs.ErrBadRecord
	}
	return binary.BigEndian.Uint32(b[:4]), nil
}

// ReadLong reads a big-endian uint64 at (recordNumber, offset).
func (r *Reader) ReadLong(recordNumber uint32, offset int) (uint64, error) {
	b, err := r.bounded(recordNumber, offset)
	if err != nil {
		return 0, err
	}
	if len(b) < 8 {
		return 0, segerrs.ErrBadRecord
	}
	return binary.BigEndian.Uint64(b[:8]), nil
}

// ReadBytes reads length bytes at (recordNumber, offset).
func (r *Reader) ReadBytes(recordNumber uint32, offset, length int) ([]byte, error) {
	b, err := r.bounded(recordNumber, offset)
	if err != nil {
		return nil, err
	}
	if len(b) < length {
		return nil, segerrs.ErrBadRecord
	}
	out := make([]byte, length)
	copy(out, b[:length])
	return out, nil
}

// ReadRecordId reads a 6-byte RecordRef at (recordNumber, offset) and
// resolves it against this segment's reference table.
func (r *Reader) ReadRecordId(recordNumber uint32, offset int) (RecordId, int, error) {
	b, err := r.bounded(recordNumber, offset)
	if err != nil {
		return RecordId{}, 0, err
	}
	ref, n, err := record.ReadRecordRef(b)
	if err != nil {
		return RecordId{}, 0, err
	}
	referent, err := r.seg.Reference(ref.Index)
	if err != nil {
		return RecordId{}, 0, err
	}
	return RecordId{Referent: referent, Number: ref.Number}, n, nil
}

// ReadLength reads a small/medium/long length header at (recordNumber,
// offset).
func (r *Reader) ReadLength(recordNumber uint32, offset int) (uint64, record.Kind, int, error) {
	b, err := r.bounded(recordNumber, offset)
	if err != nil {
		return 0, 0, 0, err
	}
	return record.ReadLength(b)
}

// StringValue is the result of ReadString: either the inline decoded
// string (small/medium form) or a pointer to an out-of-line record holding
// it (long form).
type StringValue struct {
	Kind   record.Kind
	Inline string
	Ref    RecordId
}

// ReadString reads a length-prefixed string at (recordNumber, offset). For
// the long form, the payload lives in a separate record referenced by the
// embedded RecordId; the caller resolves it (loading another segment if
// necessary) and reads RecordLength(Ref.Number) bytes from offset 0 of
// record Ref.Number in that referent segment.
func (r *Reader) ReadString(recordNumber uint32, offset int) (StringValue, error) {
	n, kind, consumed, err := r.ReadLength(recordNumber, offset)
	if err != nil {
		return StringValue{}, err
	}

	if kind == record.Long {
		ref, _, err := r.ReadRecordId(recordNumber, offset+consumed)
		if err != nil {
			return StringValue{}, err
		}
		return StringValue{Kind: kind, Ref: ref}, nil
	}

	b, err := r.ReadBytes(recordNumber, offset+consumed, int(n))
	if err != nil {
		return StringValue{}, err
	}
	return StringValue{Kind: kind, Inline: string(b)}, nil
}

// Template mirrors record.Template with every RecordRef resolved to a
// RecordId against this segment's reference table.
type Template struct {
	HasPrimaryType bool
	HasMixins      bool
	NoChildren     bool
	ManyChildren   bool

	PrimaryType     RecordId
	Mixins          []RecordId
	SingleChildName RecordId
	PropertyNames   RecordId
	PropertyTypes   []byte
}

// ReadTemplate reads a Template record at (recordNumber, offset).
func (r *Reader) ReadTemplate(recordNumber uint32, offset int) (Template, error) {
	b, err := r.bounded(recordNumber, offset)
	if err != nil {
		return Template{}, err
	}

	raw, _, err := record.ReadTemplate(b)
	if err != nil {
		return Template{}, err
	}

	t := Template{
		HasPrimaryType: raw.HasPrimaryType,
		HasMixins:      raw.HasMixins,
		NoChildren:     raw.NoChildren,
		ManyChildren:   raw.ManyChildren,
		PropertyTypes:  raw.PropertyTypes,
	}

	resolve := func(ref record.RecordRef) (RecordId, error) {
		referent, err := r.seg.Reference(ref.Index)
		if err != nil {
			return RecordId{}, err
		}
		return RecordId{Referent: referent, Number: ref.Number}, nil
	}

	if t.HasPrimaryType {
		if t.PrimaryType, err = resolve(raw.PrimaryType); err != nil {
			return Template{}, err
		}
	}
	if t.HasMixins {
		t.Mixins = make([]RecordId, len(raw.Mixins))
		for i, ref := range raw.Mixins {
			if t.Mixins[i], err = resolve(ref); err != nil {
				return Template{}, err
			}
		}
	}
	if !t.NoChildren && !t.ManyChildren {
		if t.SingleChildName, err = resolve(raw.SingleChildName); err != nil {
			return Template{}, err
		}
	}
	if len(raw.PropertyTypes) > 0 {
		if t.PropertyNames, err = resolve(raw.PropertyNames); err != nil {
			return Template{}, err
		}
	}

	return t, nil
}
