package events

import (
	"sync"
	"time"

	"roomguard/internal/model"
)

// Store is an append-only, capacity-bounded event buffer. Oldest entries are
// evicted once the cap is exceeded. Eviction advances a head index and the
// backing slice is compacted once the dead prefix reaches half the slice, so
// the amortized cost per append stays constant.
type Store struct {
	mu    sync.RWMutex
	buf   []model.Event
	head  int
	limit int
}

func NewStore(limit int) *Store {
	if limit <= 0 {
		limit = 10000
	}
	return &Store{limit: limit}
}

func (s *Store) Append(ev model.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, ev)
	for s.len() > s.limit {
		s.head++
	}
	if s.head > 0 && s.head*2 >= len(s.buf) {
		s.buf = append([]model.Event{}, s.buf[s.head:]...)
		s.head = 0
	}
}

func (s *Store) len() int {
	return len(s.buf) - s.head
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.len()
}

func (s *Store) Cap() int {
	return s.limit
}

func (s *Store) FillRatio() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return float64(s.len()) / float64(s.limit)
}

// Recent returns a copy of the last n events in insertion order. If n is
// non-positive or exceeds the live count, all live events are returned.
func (s *Store) Recent(n int) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	live := s.len()
	if n <= 0 || n > live {
		n = live
	}
	start := len(s.buf) - n
	out := make([]model.Event, n)
	copy(out, s.buf[start:])
	return out
}

// Since returns a copy of all live events with Timestamp >= ts.
func (s *Store) Since(ts time.Time) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, 0)
	for i := s.head; i < len(s.buf); i++ {
		if !s.buf[i].Timestamp.Before(ts) {
			out = append(out, s.buf[i])
		}
	}
	return out
}

// MatchSince returns events of the given type and actor key recorded at or
// after ts, in insertion order. This is the analyzer's windowed subsequence.
func (s *Store) MatchSince(t model.EventType, actor string, ts time.Time) []model.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Event, 0)
	for i := s.head; i < len(s.buf); i++ {
		ev := s.buf[i]
		if ev.Type != t || ev.Timestamp.Before(ts) {
			continue
		}
		if ev.ActorKey() != actor {
			continue
		}
		out = append(out, ev)
	}
	return out
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = nil
	s.head = 0
}
