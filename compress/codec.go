package compress

import (
	"fmt"

	"github.com/segrepo/segstore/format"
)

// Compressor compresses a bulk-segment payload before store.Dir writes it.
// The input is never modified; the returned slice may alias it
// (NoOpCompressor returns its input unchanged).
type Compressor interface {
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses Compressor. Implementations must tolerate a nil or
// empty input (the empty bulk segment).
type Decompressor interface {
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both directions. Every compression algorithm store.Dir
// supports implements Codec.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec builds a Codec for compressionType. target names the caller
// for the error message when compressionType is not one of the four
// format.CompressionType values.
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves the shared Codec instance for compressionType. Unlike
// CreateCodec, every returned instance is the same stateless value for its
// type, which is fine since these codecs carry no per-call state.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
