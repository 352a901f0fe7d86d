package store

import (
	"sync"

	"github.com/segrepo/segstore/segerrs"
	"github.com/segrepo/segstore/segment"
)

// Memory is an in-process segment.Store backed by a plain map. It never
// touches disk; constructed fresh, it holds nothing. Useful for tests.
type Memory struct {
	tracker *segment.Tracker

	mu   sync.RWMutex
	data map[*segment.Id][]byte
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{
		tracker: segment.NewTracker(),
		data:    make(map[*segment.Id][]byte),
	}
}

// ContainsSegment reports whether id has been written to this store.
func (m *Memory) ContainsSegment(id *segment.Id) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.data[id]
	return ok
}

// ReadSegment loads and parses the segment named by id.
func (m *Memory) ReadSegment(id *segment.Id) (*segment.Segment, error) {
	m.mu.RLock()
	data, ok := m.data[id]
	m.mu.RUnlock()

	if !ok {
		return nil, segerrs.NotFound(id.GCInfo(), segerrs.ErrSegmentNotFound)
	}
	return parseStored(id, data, m.tracker)
}

// WriteSegment durably (within process lifetime) persists data under id.
func (m *Memory) WriteSegment(id *segment.Id, data []byte) error {
	cp := append([]byte(nil), data...)
	m.mu.Lock()
	m.data[id] = cp
	m.mu.Unlock()
	return nil
}

// Tracker returns this store's SegmentId intern table.
func (m *Memory) Tracker() *segment.Tracker { return m.tracker }

func parseStored(id *segment.Id, data []byte, tracker *segment.Tracker) (*segment.Segment, error) {
	resolve := func(msb, lsb uint64) *segment.Id { return tracker.Intern(msb, lsb) }
	if id.IsBulkSegment() {
		return segment.NewBulkSegment(id, data)
	}
	return segment.Parse(data, id, resolve)
}
