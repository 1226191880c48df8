package activity

import (
	"sort"
	"sync"
)

// Stream is the ordered event store, newest first.
//
// Insertion is always at the head; there is no reordering, no deduplication,
// and no individual deletion. Clear is the only way to remove events and it
// drops everything at once. One writer per session; concurrent sessions use
// independent Stream instances.
type Stream struct {
	mu     sync.RWMutex
	events []Event
}

// NewStream creates an empty event stream.
func NewStream() *Stream {
	return &Stream{}
}

// Append inserts an event at the head of the stream.
func (s *Stream) Append(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append([]Event{e}, s.events...)
}

// ImportBatch inserts externally supplied pre-scored events, sorted
// newest-first by timestamp before insertion. The batch lands ahead of any
// existing events. An empty batch leaves the stream unchanged.
func (s *Stream) ImportBatch(batch []Event) {
	if len(batch) == 0 {
		return
	}

	sorted := make([]Event, len(batch))
	copy(sorted, batch)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.After(sorted[j].Timestamp)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(sorted, s.events...)
}

// Clear removes all events. Derived risk state is owned by the engine and
// must be reset by the caller in the same operation.
func (s *Stream) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}

// All returns a newest-first copy of the stream.
func (s *Stream) All() []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Event, len(s.events))
	copy(out, s.events)
	return out
}

// Recent returns up to n events from the head of the stream, newest first.
func (s *Stream) Recent(n int) []Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n > len(s.events) {
		n = len(s.events)
	}
	out := make([]Event, n)
	copy(out, s.events[:n])
	return out
}

// Len returns the number of events in the stream. The stream is append-only
// between Clears, so this is also the total recorded this session.
func (s *Stream) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}
