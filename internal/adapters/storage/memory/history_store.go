package memory

import (
	"sync"

	"github.com/asub927/human-vs-ai-app/internal/domain"
)

type HistoryStore struct {
	mu      sync.RWMutex
	entries map[domain.UserID][]*domain.HistoryEntry
}

func NewHistoryStore() *HistoryStore {
	return &HistoryStore{
		entries: make(map[domain.UserID][]*domain.HistoryEntry),
	}
}

func (s *HistoryStore) AppendHistory(entry *domain.HistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.UserID] = append(s.entries[entry.UserID], entry)
	return nil
}

// ListHistoryByUser returns the last `limit` entries, oldest first.
func (s *HistoryStore) ListHistoryByUser(userID domain.UserID, limit int) ([]*domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.entries[userID]
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	out := make([]*domain.HistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

func (s *HistoryStore) DeleteHistoryByUser(userID domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entries, userID)
	return nil
}
