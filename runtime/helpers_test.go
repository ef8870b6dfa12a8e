package runtime

import (
	"context"
	"sync"

	"chat-relay/domain"
	"chat-relay/domain/event"
)

// recordingSink captures every event a connection would receive.
type recordingSink struct {
	id string

	mu     sync.Mutex
	events []event.DomainEvent
}

func newRecordingSink(id string) *recordingSink {
	return &recordingSink{id: id}
}

func (s *recordingSink) ID() string {
	return s.id
}

func (s *recordingSink) Consume(_ context.Context, e event.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return nil
}

func (s *recordingSink) Events() []event.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]event.DomainEvent(nil), s.events...)
}

func (s *recordingSink) CountOf(match func(e event.DomainEvent) bool) int {
	count := 0
	for _, e := range s.Events() {
		if match(e) {
			count++
		}
	}
	return count
}

// fakeHistory serves canned entries and records appends.
type fakeHistory struct {
	mu      sync.Mutex
	entries map[domain.RoomID][]domain.HistoryEntry
}

func newFakeHistory() *fakeHistory {
	return &fakeHistory{entries: make(map[domain.RoomID][]domain.HistoryEntry)}
}

func (f *fakeHistory) Append(_ context.Context, room domain.RoomID, entry domain.HistoryEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries[room] = append(f.entries[room], entry)
	return nil
}

func (f *fakeHistory) ReadRange(_ context.Context, room domain.RoomID, limit int) ([]domain.HistoryEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entries := f.entries[room]
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return append([]domain.HistoryEntry(nil), entries...), nil
}

func (f *fakeHistory) Clear(_ context.Context, room domain.RoomID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, room)
	return nil
}
