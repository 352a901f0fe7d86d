package hash

import "github.com/cespare/xxhash/v2"

// Checksum computes the xxHash64 digest of a data segment's serialized
// reference table, record table and payload. The segment reader rejects a
// segment whose trailing checksum does not match this value.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}
