package record

import (
	"encoding/binary"

	"github.com/segrepo/segstore/segerrs"
)

// Flag bits packed into the low 4 bits of a Template header. At most one
// of NoChildren/ManyChildren may be set; when neither is, the template
// carries a single named child and SingleChildName is present.
const (
	flagHasPrimaryType = 1 << 0
	flagHasMixins      = 1 << 1
	flagNoChildren     = 1 << 2
	flagManyChildren   = 1 << 3
)

const (
	// MaxMixinCount is the largest mixin list a Template header can encode
	// in its 10-bit count field.
	MaxMixinCount = 1<<10 - 1
	// MaxPropertyCount is the largest property list a Template header can
	// encode in its 18-bit count field.
	MaxPropertyCount = 1<<18 - 1
)

// Template describes the shared "hidden class" of a node: its primary type,
// mixin list, child-node mode, and the ordered list of property names and
// types every node sharing this template carries.
type Template struct {
	HasPrimaryType bool
	HasMixins      bool
	NoChildren     bool
	ManyChildren   bool

	PrimaryType     RecordRef // valid iff HasPrimaryType
	Mixins          []RecordRef
	SingleChildName RecordRef // valid iff !NoChildren && !ManyChildren
	PropertyNames   RecordRef // valid iff len(PropertyTypes) > 0
	PropertyTypes   []byte
}

// hasSingleChild reports whether t names one specific child rather than
// "no children" or "many children, unspecified".
func (t Template) hasSingleChild() bool {
	return !t.NoChildren && !t.ManyChildren
}

// Validate checks the Template's bit-packing invariants, returning
// segerrs.ErrInvalidLength if count fields would overflow their header
// width or both child-mode flags are set.
func (t Template) Validate() error {
	if t.NoChildren && t.ManyChildren {
		return segerrs.ErrInvalidLength
	}
	if len(t.Mixins) > MaxMixinCount {
		return segerrs.ErrInvalidLength
	}
	if len(t.PropertyTypes) > MaxPropertyCount {
		return segerrs.ErrInvalidLength
	}
	return nil
}

// WriteTemplate appends the encoded form of t to buf.
func WriteTemplate(buf []byte, t Template) ([]byte, error) {
	if err := t.Validate(); err != nil {
		return buf, err
	}

	var header uint32
	if t.HasPrimaryType {
		header |= flagHasPrimaryType
	}
	if t.HasMixins {
		header |= flagHasMixins
	}
	if t.NoChildren {
		header |= flagNoChildren
	}
	if t.ManyChildren {
		header |= flagManyChildren
	}
	header |= uint32(len(t.Mixins)) << 4
	header |= uint32(len(t.PropertyTypes)) << 14

	var tmp [4]byte
	binary.BigEndian.PutUint32(tmp[:], header)
	buf = append(buf, tmp[:]...)

	if t.HasPrimaryType {
		buf = WriteRecordRef(buf, t.PrimaryType)
	}
	if t.HasMixins {
		for _, m := range t.Mixins {
			buf = WriteRecordRef(buf, m)
		}
	}
	if t.hasSingleChild() {
		buf = WriteRecordRef(buf, t.SingleChildName)
	}
	if len(t.PropertyTypes) > 0 {
		buf = WriteRecordRef(buf, t.PropertyNames)
		buf = append(buf, t.PropertyTypes...)
	}

	return buf, nil
}

// ReadTemplate decodes a Template from the front of data, returning the
// number of bytes consumed.
func ReadTemplate(data []byte) (Template, int, error) {
	if len(data) < 4 {
		return Template{}, 0, segerrs.ErrBadRecord
	}

	header := binary.BigEndian.Uint32(data[:4])
	off := 4

	t := Template{
		HasPrimaryType: header&flagHasPrimaryType != 0,
		HasMixins:      header&flagHasMixins != 0,
		NoChildren:     header&flagNoChildren != 0,
		ManyChildren:   header&flagManyChildren != 0,
	}
	mixinCount := int((header >> 4) & 0x3FF)
	propertyCount := int((header >> 14) & 0x3FFFF)

	if t.HasPrimaryType {
		ref, n, err := ReadRecordRef(data[off:])
		if err != nil {
			return Template{}, 0, err
		}
		t.PrimaryType = ref
		off += n
	}

	if t.HasMixins {
		t.Mixins = make([]RecordRef, mixinCount)
		for i := 0; i < mixinCount; i++ {
			ref, n, err := ReadRecordRef(data[off:])
			if err != nil {
				return Template{}, 0, err
			}
			t.Mixins[i] = ref
			off += n
		}
	}

	if t.hasSingleChild() {
		ref, n, err := ReadRecordRef(data[off:])
		if err != nil {
			return Template{}, 0, err
		}
		t.SingleChildName = ref
		off += n
	}

	if propertyCount > 0 {
		ref, n, err := ReadRecordRef(data[off:])
		if err != nil {
			return Template{}, 0, err
		}
		t.PropertyNames = ref
		off += n

		if len(data) < off+propertyCount {
			return Template{}, 0, segerrs.ErrBadRecord
		}
		t.PropertyTypes = make([]byte, propertyCount)
		copy(t.PropertyTypes, data[off:off+propertyCount])
		off += propertyCount
	}

	return t, off, nil
}
