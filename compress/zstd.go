package compress

// ZstdCompressor is format.CompressionZstd, store.Dir's default: the best
// compression ratio of the four codecs at the cost of compression speed.
// Compress/Decompress live in zstd_pure.go (pure-Go, cgo-free) or
// zstd_cgo.go (libzstd via cgo), selected by build tag.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor returns a ZstdCompressor.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
