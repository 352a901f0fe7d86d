package segment

import (
	"sync"

	"github.com/segrepo/segstore/segerrs"
)

// memStore is a minimal in-memory Store used to exercise BufferWriter and
// Reader together without depending on the store package (which itself
// depends on segment).
type memStore struct {
	mu      sync.Mutex
	tracker *Tracker
	data    map[*Id][]byte
}

func newMemStore() *memStore {
	return &memStore{tracker: NewTracker(), data: make(map[*Id][]byte)}
}

func (s *memStore) ContainsSegment(id *Id) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.data[id]
	return ok
}

func (s *memStore) ReadSegment(id *Id) (*Segment, error) {
	s.mu.Lock()
	data, ok := s.data[id]
	s.mu.Unlock()
	if !ok {
		return nil, segerrs.NotFound(id.GCInfo(), segerrs.ErrSegmentNotFound)
	}
	return Parse(data, id, func(msb, lsb uint64) *Id { return s.tracker.Intern(msb, lsb) })
}

func (s *memStore) WriteSegment(id *Id, data []byte) error {
	cp := append([]byte(nil), data...)
	s.mu.Lock()
	s.data[id] = cp
	s.mu.Unlock()
	return nil
}

func (s *memStore) Tracker() *Tracker { return s.tracker }
