package segment

import "crypto/rand"

// MintDataSegmentId generates a fresh random 128-bit identifier for a new
// data segment (top nibble of the low 64 bits forced to dataNibble) and
// interns it with tracker. Called by a BufferWriter whenever it needs a new
// segment to accumulate into.
func MintDataSegmentId(tracker *Tracker) *Id {
	var buf [16]byte
	_, _ = rand.Read(buf[:])

	msb := beUint64(buf[0:8])
	lsb := beUint64(buf[8:16])
	lsb = (lsb &^ (0xF << 60)) | (dataNibble << 60)

	return tracker.Intern(msb, lsb)
}

func beUint64(b []byte) uint64 {
	var v uint64
	for _, c := range b {
		v = v<<8 | uint64(c)
	}
	return v
}
