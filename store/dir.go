package store

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/segrepo/segstore/compress"
	"github.com/segrepo/segstore/format"
	"github.com/segrepo/segstore/internal/options"
	"github.com/segrepo/segstore/segerrs"
	"github.com/segrepo/segstore/segment"
)

// DefaultCompressionThreshold is the minimum bulk-segment payload size
// (bytes) Dir will bother compressing; smaller payloads aren't worth a
// codec's per-call overhead.
const DefaultCompressionThreshold = 4096

const (
	flagRaw        byte = 0
	flagCompressed byte = 1
)

// DirOption configures a Dir at construction.
type DirOption = options.Option[*Dir]

// WithCompressionCodec selects the codec Dir uses for bulk-segment
// payloads at or above its threshold. Defaults to format.CompressionZstd.
func WithCompressionCodec(t format.CompressionType) DirOption {
	return options.New(func(d *Dir) error {
		codec, err := compress.CreateCodec(t, "store.Dir")
		if err != nil {
			return err
		}
		d.codecType = t
		d.codec = codec
		return nil
	})
}

// WithCompressionThreshold overrides DefaultCompressionThreshold.
func WithCompressionThreshold(bytes int) DirOption {
	return options.NoError(func(d *Dir) { d.threshold = bytes })
}

// Dir is a directory-backed segment.Store: one file per segment, named
// seg_<msb>_<lsb>.bin. Bulk (BLOCK-record) segment payloads at or above
// the configured threshold are compressed before being written and
// transparently decompressed on read; data segments are always written
// as their exact assembled wire bytes, since their trailing checksum and
// fixed header are meaningless once recompressed.
type Dir struct {
	baseDir   string
	tracker   *segment.Tracker
	codecType format.CompressionType
	codec     compress.Codec
	threshold int
}

// NewDir constructs a Dir rooted at baseDir, creating it if necessary.
func NewDir(baseDir string, opts ...DirOption) (*Dir, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("store: create base dir: %w", err)
	}

	d := &Dir{
		baseDir:   baseDir,
		tracker:   segment.NewTracker(),
		threshold: DefaultCompressionThreshold,
	}
	if err := options.Apply(d, opts...); err != nil {
		return nil, err
	}
	if d.codec == nil {
		codec, err := compress.CreateCodec(format.CompressionZstd, "store.Dir")
		if err != nil {
			return nil, err
		}
		d.codecType = format.CompressionZstd
		d.codec = codec
	}

	return d, nil
}

func (d *Dir) path(id *segment.Id) string {
	return filepath.Join(d.baseDir, fmt.Sprintf("seg_%016x_%016x.bin", id.MSB(), id.LSB()))
}

// ContainsSegment reports whether id has a corresponding file on disk.
func (d *Dir) ContainsSegment(id *segment.Id) bool {
	_, err := os.Stat(d.path(id))
	return err == nil
}

// ReadSegment loads id's file, decompressing its payload if it was
// stored compressed, and parses the result.
func (d *Dir) ReadSegment(id *segment.Id) (*segment.Segment, error) {
	raw, err := os.ReadFile(d.path(id))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, segerrs.NotFound(id.GCInfo(), segerrs.ErrSegmentNotFound)
		}
		return nil, fmt.Errorf("store: read %s: %w", d.path(id), err)
	}
	if len(raw) == 0 {
		return nil, segerrs.NotFound(id.GCInfo(), segerrs.ErrSegmentNotFound)
	}

	flag, body := raw[0], raw[1:]
	var data []byte
	switch flag {
	case flagRaw:
		data = body
	case flagCompressed:
		if len(body) == 0 {
			return nil, segerrs.ErrBadRecord
		}
		codecType, payload := format.CompressionType(body[0]), body[1:]
		codec, err := compress.GetCodec(codecType)
		if err != nil {
			return nil, err
		}
		data, err = codec.Decompress(payload)
		if err != nil {
			return nil, fmt.Errorf("store: decompress %s: %w", d.path(id), err)
		}
	default:
		return nil, segerrs.ErrBadRecord
	}

	return parseStored(id, data, d.tracker)
}

// WriteSegment durably writes data under id. Bulk-segment payloads at or
// above the compression threshold are compressed first.
func (d *Dir) WriteSegment(id *segment.Id, data []byte) error {
	var out []byte

	if id.IsBulkSegment() && len(data) >= d.threshold {
		compressed, err := d.codec.Compress(data)
		if err != nil {
			return fmt.Errorf("store: compress segment %s: %w", id.String(), err)
		}
		out = make([]byte, 0, len(compressed)+2)
		out = append(out, flagCompressed, byte(d.codecType))
		out = append(out, compressed...)
	} else {
		out = make([]byte, 0, len(data)+1)
		out = append(out, flagRaw)
		out = append(out, data...)
	}

	tmp := d.path(id) + ".tmp"
	if err := os.WriteFile(tmp, out, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, d.path(id)); err != nil {
		return fmt.Errorf("store: rename %s: %w", tmp, err)
	}
	return nil
}

// Tracker returns this store's SegmentId intern table.
func (d *Dir) Tracker() *segment.Tracker { return d.tracker }
