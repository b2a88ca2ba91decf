// Package storage defines the persistence interfaces consumed by the batch
// pipeline: the columnar tick-series store and the limit-up event list.
package storage

import (
	"context"

	"github.com/jackson97010/api-holdwin/internal/domain"
)

// TickStore persists decoded instrument-day series. Series are written
// once, pre-sorted by derived datetime, and never mutated afterwards.
type TickStore interface {
	// InsertDay persists one instrument-day series. Returns
	// ErrDuplicateKey if the (date, stock) series is already stored.
	InsertDay(ctx context.Context, date, stockID string, ticks []*domain.Tick) error

	// GetDay retrieves one instrument-day series in persisted order.
	// Returns ErrNotFound if no rows exist for the (date, stock).
	GetDay(ctx context.Context, date, stockID string) ([]*domain.Tick, error)

	// SavedInstruments returns the ids with a persisted series for the
	// date. The batch pipeline's idempotent-resume check.
	SavedInstruments(ctx context.Context, date string) (map[string]struct{}, error)
}

// LimitUpStore provides the external limit-up event list.
type LimitUpStore interface {
	// GetAll reads the whole event list. The batch pipeline groups it
	// into a limitup.Calendar once per run.
	GetAll(ctx context.Context) ([]*domain.LimitUpEvent, error)

	// InsertBulk adds events. Returns ErrDuplicateKey if any
	// (date, stock) pair already exists.
	InsertBulk(ctx context.Context, events []*domain.LimitUpEvent) error
}
