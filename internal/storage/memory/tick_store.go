// Package memory provides in-memory storage implementations used by unit
// tests and by pipeline runs that keep results local.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/jackson97010/api-holdwin/internal/domain"
	"github.com/jackson97010/api-holdwin/internal/storage"
)

// TickStore is an in-memory implementation of storage.TickStore.
type TickStore struct {
	mu   sync.RWMutex
	data map[string][]*domain.Tick // keyed by (date, stock)
}

// NewTickStore creates a new in-memory tick store.
func NewTickStore() *TickStore {
	return &TickStore{data: make(map[string][]*domain.Tick)}
}

func dayKey(date, stockID string) string {
	return fmt.Sprintf("%s|%s", date, stockID)
}

// InsertDay persists one instrument-day series. Returns ErrDuplicateKey if
// the series already exists.
func (s *TickStore) InsertDay(_ context.Context, date, stockID string, ticks []*domain.Tick) error {
	if date == "" || stockID == "" {
		return storage.ErrInvalidInput
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := dayKey(date, stockID)
	if _, exists := s.data[key]; exists {
		return storage.ErrDuplicateKey
	}

	stored := make([]*domain.Tick, len(ticks))
	copy(stored, ticks)
	s.data[key] = stored
	return nil
}

// GetDay retrieves one instrument-day series in persisted order.
func (s *TickStore) GetDay(_ context.Context, date, stockID string) ([]*domain.Tick, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ticks, ok := s.data[dayKey(date, stockID)]
	if !ok {
		return nil, storage.ErrNotFound
	}

	result := make([]*domain.Tick, len(ticks))
	copy(result, ticks)
	return result, nil
}

// SavedInstruments returns ids with a persisted series for the date.
func (s *TickStore) SavedInstruments(_ context.Context, date string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	saved := make(map[string]struct{})
	prefix := date + "|"
	for key := range s.data {
		if len(key) > len(prefix) && key[:len(prefix)] == prefix {
			saved[key[len(prefix):]] = struct{}{}
		}
	}
	return saved, nil
}

var _ storage.TickStore = (*TickStore)(nil)
