// Package segerrs defines the sentinel errors surfaced by the segment
// storage engine.
//
// Callers compare against these with errors.Is; wrapped causes (a store's
// underlying I/O error, for instance) stay reachable with errors.Unwrap.
package segerrs

import "errors"

var (
	// ErrSegmentNotFound is returned when a store has no segment for a
	// requested SegmentId. Never retried internally.
	ErrSegmentNotFound = errors.New("segstore: segment not found")

	// ErrInvalidLength is returned by the record codec when a length marker's
	// top bits don't match small/medium/long, or the decoded length would
	// exceed the codec's 2^31 ceiling.
	ErrInvalidLength = errors.New("segstore: invalid length marker")

	// ErrBadRecord is returned when a read would cross a record's declared
	// boundary, or a record number has no entry in the segment's record
	// table.
	ErrBadRecord = errors.New("segstore: bad record access")

	// ErrLoadFailed wraps an error returned by a cache loader or a store's
	// readSegment; the original error is reachable via errors.Unwrap.
	ErrLoadFailed = errors.New("segstore: segment load failed")

	// ErrPoolInvariant marks a fatal internal inconsistency in the writer
	// pool, such as returning a writer to a thread slot that is already
	// occupied.
	ErrPoolInvariant = errors.New("segstore: writer pool invariant violated")

	// ErrSegmentChecksum is returned when a loaded segment's trailing
	// xxHash64 digest doesn't match its reference table, record table and
	// payload bytes.
	ErrSegmentChecksum = errors.New("segstore: segment checksum mismatch")

	// ErrSegmentOverflow names a record that would not fit in the remaining
	// space of the segment's configured maximum size. No code in this module
	// returns it: BufferWriter.Prepare checks for that case itself and
	// flushes and starts a new segment instead.
	ErrSegmentOverflow = errors.New("segstore: segment size exceeded")
)

// NotFound wraps ErrSegmentNotFound with diagnostic context (age,
// reclamation note, generation) gathered from the SegmentId.
func NotFound(gcInfo string, cause error) error {
	if cause == nil {
		cause = ErrSegmentNotFound
	}

	return &notFoundError{gcInfo: gcInfo, cause: cause}
}

type notFoundError struct {
	gcInfo string
	cause  error
}

func (e *notFoundError) Error() string {
	return ErrSegmentNotFound.Error() + ": " + e.gcInfo + ": " + e.cause.Error()
}

func (e *notFoundError) Unwrap() error {
	return e.cause
}

func (e *notFoundError) Is(target error) bool {
	return target == ErrSegmentNotFound
}

// LoadFailed wraps cause so errors.Is(err, ErrLoadFailed) holds while
// errors.Unwrap(err) still reaches the underlying store/loader error.
func LoadFailed(cause error) error {
	return &loadFailedError{cause: cause}
}

type loadFailedError struct {
	cause error
}

func (e *loadFailedError) Error() string {
	return ErrLoadFailed.Error() + ": " + e.cause.Error()
}

func (e *loadFailedError) Unwrap() error {
	return e.cause
}

func (e *loadFailedError) Is(target error) bool {
	return target == ErrLoadFailed
}
