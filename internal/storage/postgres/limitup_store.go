package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jackson97010/api-holdwin/internal/domain"
	"github.com/jackson97010/api-holdwin/internal/storage"
)

// dateLayout is the wire format for trade dates, YYYYMMDD.
const dateLayout = "20060102"

// LimitUpStore implements storage.LimitUpStore using PostgreSQL.
type LimitUpStore struct {
	pool *Pool
}

// NewLimitUpStore creates a new LimitUpStore.
func NewLimitUpStore(pool *Pool) *LimitUpStore {
	return &LimitUpStore{pool: pool}
}

// Compile-time interface check.
var _ storage.LimitUpStore = (*LimitUpStore)(nil)

// GetAll retrieves every recorded limit-up event ordered by date then stock.
func (s *LimitUpStore) GetAll(ctx context.Context) ([]*domain.LimitUpEvent, error) {
	query := `
		SELECT trade_date, stock_id
		FROM limit_up_events
		ORDER BY trade_date ASC, stock_id ASC
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("get all limit-up events: %w", err)
	}
	defer rows.Close()

	return scanLimitUpEvents(rows)
}

// InsertBulk adds events atomically. Fails the entire batch on any duplicate
// (trade_date, stock_id) pair.
func (s *LimitUpStore) InsertBulk(ctx context.Context, events []*domain.LimitUpEvent) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	query := `
		INSERT INTO limit_up_events (trade_date, stock_id)
		VALUES ($1, $2)
	`

	for _, e := range events {
		if e == nil || e.Date == "" || e.StockID == "" {
			return storage.ErrInvalidInput
		}
		day, err := time.Parse(dateLayout, e.Date)
		if err != nil {
			return fmt.Errorf("%w: bad trade date %q", storage.ErrInvalidInput, e.Date)
		}
		if _, err := tx.Exec(ctx, query, day, e.StockID); err != nil {
			if isDuplicateKeyError(err) {
				return storage.ErrDuplicateKey
			}
			return fmt.Errorf("insert limit-up event: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetByDate retrieves events for a single trade date.
func (s *LimitUpStore) GetByDate(ctx context.Context, date string) ([]*domain.LimitUpEvent, error) {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return nil, fmt.Errorf("%w: bad trade date %q", storage.ErrInvalidInput, date)
	}

	query := `
		SELECT trade_date, stock_id
		FROM limit_up_events
		WHERE trade_date = $1
		ORDER BY stock_id ASC
	`

	rows, err := s.pool.Query(ctx, query, day)
	if err != nil {
		return nil, fmt.Errorf("get limit-up events by date: %w", err)
	}
	defer rows.Close()

	return scanLimitUpEvents(rows)
}

// scanLimitUpEvents scans rows into a slice of LimitUpEvent. Dates are
// re-serialized to YYYYMMDD so the domain sees the feed's own format.
func scanLimitUpEvents(rows pgx.Rows) ([]*domain.LimitUpEvent, error) {
	var events []*domain.LimitUpEvent

	for rows.Next() {
		var (
			day     time.Time
			stockID string
		)
		if err := rows.Scan(&day, &stockID); err != nil {
			return nil, fmt.Errorf("scan limit-up event row: %w", err)
		}
		events = append(events, &domain.LimitUpEvent{
			Date:    day.Format(dateLayout),
			StockID: stockID,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate limit-up event rows: %w", err)
	}

	return events, nil
}
