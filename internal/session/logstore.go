package session

import (
	"sync"

	"galleryupload/internal/domain"
)

// LogStore keeps upload log entries newest first.
type LogStore struct {
	mu       sync.RWMutex
	entries  []domain.UploadLogEntry
	expanded int
}

func NewLogStore() *LogStore {
	return &LogStore{expanded: -1}
}

// Prepend inserts entries at the front, keeping their order.
func (s *LogStore) Prepend(entries ...domain.UploadLogEntry) {
	if len(entries) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := make([]domain.UploadLogEntry, 0, len(entries)+len(s.entries))
	merged = append(merged, entries...)
	s.entries = append(merged, s.entries...)
}

func (s *LogStore) Entries() []domain.UploadLogEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.UploadLogEntry(nil), s.entries...)
}

func (s *LogStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *LogStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
	s.expanded = -1
}

// ToggleExpand opens the entry at index, or closes it if it is already open.
// It returns the new expanded index, -1 meaning none.
func (s *LogStore) ToggleExpand(index int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.expanded == index {
		s.expanded = -1
	} else {
		s.expanded = index
	}
	return s.expanded
}

func (s *LogStore) Expanded() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expanded
}
