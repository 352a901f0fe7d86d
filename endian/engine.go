// Package endian provides byte order utilities for binary encoding and
// decoding.
//
// It combines encoding/binary's ByteOrder and AppendByteOrder interfaces into
// one EndianEngine type so segment codec code can take a single parameter
// instead of threading two. The segment header codec uses the little-endian
// engine for its fixed-width fields:
//
//	import "github.com/segrepo/segstore/endian"
//
//	engine := endian.GetLittleEndianEngine()
//	engine.PutUint32(buf, generation)
//
// All functions and the returned EndianEngine values are stateless and safe
// for concurrent use.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary
// into a single interface. binary.LittleEndian and binary.BigEndian both
// satisfy it already.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
