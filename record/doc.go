// Package record implements the bit-exact binary codec shared by every
// record stored inside a segment: variable-length size markers, the 6-byte
// RecordId wire form, blob identifier encoding, and the compact Template
// record that describes a node's "hidden class".
//
// Every encoder in this package is a pure function over a []byte buffer; it
// has no notion of a segment, a store, or a SegmentId. segment.Reader and
// segment.BufferWriter layer segment/record-table bounds checking and
// SegmentId resolution on top of these primitives.
package record
