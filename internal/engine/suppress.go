package engine

import (
	"sync"
	"time"
)

// suppressor remembers remote identifiers this engine has just written so
// that the next pass does not mistake the echo of our own write for an
// external change. Identifiers added during a pass are released together by
// a timer scheduled at the end of that pass.
//
// Add and scheduleRelease are only called from the sequential resolution
// phase; the mutex exists because release timers fire on their own
// goroutines.
type suppressor struct {
	mu      sync.Mutex
	ids     map[string]struct{}
	pending []string
	timers  []*time.Timer
	closed  bool
}

func newSuppressor() *suppressor {
	return &suppressor{ids: make(map[string]struct{})}
}

// Has reports whether id is currently suppressed.
func (s *suppressor) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[id]
	return ok
}

// Add marks id as suppressed until the next scheduled release fires.
func (s *suppressor) Add(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return
	}
	s.ids[id] = struct{}{}
	s.pending = append(s.pending, id)
}

// scheduleRelease arms a timer that clears every identifier added since the
// previous call, after the given window.
func (s *suppressor) scheduleRelease(window time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || len(s.pending) == 0 {
		return
	}
	batch := s.pending
	s.pending = nil
	t := time.AfterFunc(window, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		for _, id := range batch {
			delete(s.ids, id)
		}
	})
	s.timers = append(s.timers, t)
}

// Close cancels all outstanding release timers.
func (s *suppressor) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil
}
