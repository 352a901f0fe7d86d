package segment

import (
	"testing"

	"github.com/segrepo/segstore/segerrs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssembleParse_RoundTrip(t *testing.T) {
	tracker := NewTracker()
	self := tracker.Intern(0x10, dataNibble<<60)
	other := tracker.Intern(0x20, dataNibble<<60)

	refs := []*Id{other}
	entries := []wireRecordEntry{
		{RecordNumber: 0, Type: Value, OffsetFromSegmentEnd: 10},
		{RecordNumber: 1, Type: Block, OffsetFromSegmentEnd: 4},
	}
	payload := []byte{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}

	data := Assemble(3, refs, entries, payload)

	seg, err := Parse(data, self, func(msb, lsb uint64) *Id { return tracker.Intern(msb, lsb) })
	require.NoError(t, err)

	assert.Equal(t, int64(3), seg.Generation())
	assert.Equal(t, 1, seg.ReferenceCount())
	assert.Equal(t, 2, seg.RecordCount())
	assert.False(t, seg.IsBulk())

	got, err := seg.Reference(0)
	require.NoError(t, err)
	assert.Same(t, other, got)

	r, err := NewReader(seg)
	require.NoError(t, err)

	b0, err := r.ReadBytes(0, 0, 6)
	require.NoError(t, err)
	assert.Equal(t, payload[0:6], b0)

	b1, err := r.ReadBytes(1, 0, 4)
	require.NoError(t, err)
	assert.Equal(t, payload[6:10], b1)
}

func TestParse_ChecksumMismatch(t *testing.T) {
	tracker := NewTracker()
	id := tracker.Intern(0x10, dataNibble<<60)

	data := Assemble(1, nil, nil, []byte{1, 2, 3})
	data[len(data)-1] ^= 0xFF // corrupt the trailing checksum byte

	_, err := Parse(data, id, func(msb, lsb uint64) *Id { return tracker.Intern(msb, lsb) })
	require.ErrorIs(t, err, segerrs.ErrSegmentChecksum)
}

func TestParse_BulkSegmentIsOpaque(t *testing.T) {
	tracker := NewTracker()
	id := tracker.Intern(0x10, bulkNibble<<60)

	payload := []byte{0xDE, 0xAD, 0xBE, 0xEF}
	seg, err := Parse(payload, id, nil)
	require.NoError(t, err)
	assert.True(t, seg.IsBulk())
	assert.Equal(t, payload, seg.Payload())
}

func TestParse_RejectsShortHeader(t *testing.T) {
	tracker := NewTracker()
	id := tracker.Intern(0x10, dataNibble<<60)

	_, err := Parse([]byte{1, 2, 3}, id, func(msb, lsb uint64) *Id { return tracker.Intern(msb, lsb) })
	require.ErrorIs(t, err, segerrs.ErrBadRecord)
}
