package memory

import (
	"context"
	"sync"

	"github.com/jackson97010/api-holdwin/internal/domain"
	"github.com/jackson97010/api-holdwin/internal/storage"
)

// LimitUpStore is an in-memory implementation of storage.LimitUpStore.
type LimitUpStore struct {
	mu     sync.RWMutex
	events []*domain.LimitUpEvent
	keys   map[string]struct{} // (date, stock) uniqueness
}

// NewLimitUpStore creates a new in-memory limit-up event store.
func NewLimitUpStore() *LimitUpStore {
	return &LimitUpStore{keys: make(map[string]struct{})}
}

// GetAll reads the whole event list in insertion order.
func (s *LimitUpStore) GetAll(_ context.Context) ([]*domain.LimitUpEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*domain.LimitUpEvent, len(s.events))
	for i, e := range s.events {
		eventCopy := *e
		result[i] = &eventCopy
	}
	return result, nil
}

// InsertBulk adds events. Fails the entire batch on any duplicate
// (date, stock) pair, existing or intra-batch.
func (s *LimitUpStore) InsertBulk(_ context.Context, events []*domain.LimitUpEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	batchKeys := make(map[string]struct{}, len(events))
	for _, e := range events {
		if e == nil || e.Date == "" || e.StockID == "" {
			return storage.ErrInvalidInput
		}
		key := dayKey(e.Date, e.StockID)
		if _, exists := s.keys[key]; exists {
			return storage.ErrDuplicateKey
		}
		if _, exists := batchKeys[key]; exists {
			return storage.ErrDuplicateKey
		}
		batchKeys[key] = struct{}{}
	}

	for _, e := range events {
		eventCopy := *e
		s.events = append(s.events, &eventCopy)
		s.keys[dayKey(e.Date, e.StockID)] = struct{}{}
	}
	return nil
}

var _ storage.LimitUpStore = (*LimitUpStore)(nil)
