// Package segcache implements the weighted, concurrent 2nd-level segment
// cache (C4): a bounded SegmentId -> Segment map that a Store's readSegment
// populates on miss. Hits served from a SegmentId's own 1st-level
// reference are counted the same as hits served from this cache, per the
// contract segment.Id.LoadedSegment/SetLoaded/ClearLoaded expose.
package segcache
