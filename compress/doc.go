// Package compress provides the codecs store.Dir applies to bulk-segment
// (BLOCK-record) payloads before they are written durably, and reverses on
// read. Compression is orthogonal to the record codec: a record's length
// and RecordId pointer are always computed against the uncompressed bytes,
// so a payload decodes to the same value whether or not a codec sat between
// it and the store.
//
// Four algorithms are available, selected per store.Dir via
// format.CompressionType: CompressionNone (no-op, for payloads already
// incompressible or where CPU matters more than size), CompressionZstd
// (best ratio, the store.Dir default), CompressionS2 (fast, moderate
// ratio), and CompressionLZ4 (fastest decompression). The chosen type is
// recorded alongside each compressed payload so a reader never has to
// guess which codec produced it.
package compress
