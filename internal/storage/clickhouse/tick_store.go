package clickhouse

import (
	"context"
	"fmt"
	"time"

	"github.com/jackson97010/api-holdwin/internal/domain"
	"github.com/jackson97010/api-holdwin/internal/storage"
)

// TickStore implements storage.TickStore on ClickHouse.
//
// One row per record, keyed (trade_date, stock_id, row_no) where row_no is
// the position within the persisted (datetime-sorted) series. Prices are
// stored as scaled Int64 so exactness survives the round trip.
type TickStore struct {
	conn *Conn
}

// NewTickStore creates a new TickStore.
func NewTickStore(conn *Conn) *TickStore {
	return &TickStore{conn: conn}
}

// Compile-time interface check.
var _ storage.TickStore = (*TickStore)(nil)

const tickColumns = `
	trade_date, stock_id, row_no, seq, kind, ts_raw, event_time,
	trial, price, volume, total_volume, side,
	bid_count, ask_count,
	bid_price_1, bid_volume_1, bid_price_2, bid_volume_2, bid_price_3, bid_volume_3,
	bid_price_4, bid_volume_4, bid_price_5, bid_volume_5,
	ask_price_1, ask_volume_1, ask_price_2, ask_volume_2, ask_price_3, ask_volume_3,
	ask_price_4, ask_volume_4, ask_price_5, ask_volume_5
`

// InsertDay persists one instrument-day series in the given order.
func (s *TickStore) InsertDay(ctx context.Context, date, stockID string, ticks []*domain.Tick) error {
	if date == "" || stockID == "" {
		return storage.ErrInvalidInput
	}

	exists, err := s.exists(ctx, date, stockID)
	if err != nil {
		return fmt.Errorf("check exists: %w", err)
	}
	if exists {
		return storage.ErrDuplicateKey
	}

	batch, err := s.conn.PrepareBatch(ctx,
		"INSERT INTO tick_series ("+tickColumns+")")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}

	for rowNo, t := range ticks {
		if err := appendTick(batch, date, stockID, uint32(rowNo), t); err != nil {
			return fmt.Errorf("append row %d: %w", rowNo, err)
		}
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

// batchAppender is the subset of driver.Batch used by appendTick.
type batchAppender interface {
	Append(v ...any) error
}

func appendTick(batch batchAppender, date, stockID string, rowNo uint32, t *domain.Tick) error {
	var (
		eventTime   *time.Time
		trial       *int16
		price       *int64
		volume      *int64
		totalVolume *int64
		side        *string
		bidCount    *int16
		askCount    *int16
		bidLevels   [domain.MaxDepthLevels]*domain.PriceLevel
		askLevels   [domain.MaxDepthLevels]*domain.PriceLevel
	)

	if ts := t.Time(); !ts.IsZero() {
		eventTime = &ts
	}

	switch t.Kind {
	case domain.KindTrade:
		tr := t.Trade
		trial = ptrInt16(int16(tr.Trial))
		price = ptrInt64(tr.Price.Scaled())
		volume = ptrInt64(tr.Volume)
		totalVolume = ptrInt64(tr.TotalVolume)
		if code := tr.Side.Code(); code != "" {
			side = &code
		}
	case domain.KindDepth:
		d := t.Depth
		bidCount = ptrInt16(int16(d.BidCount))
		askCount = ptrInt16(int16(d.AskCount))
		bidLevels = d.Bids
		askLevels = d.Asks
	default:
		return storage.ErrInvalidInput
	}

	args := []any{
		date, stockID, rowNo, uint64(t.Seq), t.Kind.Code(), uint64(t.TSRaw()), eventTime,
		trial, price, volume, totalVolume, side,
		bidCount, askCount,
	}
	args = appendLevels(args, bidLevels)
	args = appendLevels(args, askLevels)

	return batch.Append(args...)
}

func appendLevels(args []any, levels [domain.MaxDepthLevels]*domain.PriceLevel) []any {
	for _, lvl := range levels {
		if lvl == nil {
			args = append(args, (*int64)(nil), (*int64)(nil))
			continue
		}
		args = append(args, ptrInt64(lvl.Price.Scaled()), ptrInt64(lvl.Volume))
	}
	return args
}

// GetDay retrieves one instrument-day series in persisted order.
func (s *TickStore) GetDay(ctx context.Context, date, stockID string) ([]*domain.Tick, error) {
	query := "SELECT " + tickColumns + `
		FROM tick_series
		WHERE trade_date = ? AND stock_id = ?
		ORDER BY row_no ASC
	`

	rows, err := s.conn.Query(ctx, query, date, stockID)
	if err != nil {
		return nil, fmt.Errorf("query day: %w", err)
	}
	defer rows.Close()

	var ticks []*domain.Tick
	for rows.Next() {
		t, err := scanTick(rows)
		if err != nil {
			return nil, err
		}
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tick rows: %w", err)
	}
	if len(ticks) == 0 {
		return nil, storage.ErrNotFound
	}
	return ticks, nil
}

// SavedInstruments returns ids with at least one persisted row for the date.
func (s *TickStore) SavedInstruments(ctx context.Context, date string) (map[string]struct{}, error) {
	rows, err := s.conn.Query(ctx,
		"SELECT DISTINCT stock_id FROM tick_series WHERE trade_date = ?", date)
	if err != nil {
		return nil, fmt.Errorf("query saved instruments: %w", err)
	}
	defer rows.Close()

	saved := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan stock id: %w", err)
		}
		saved[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate stock ids: %w", err)
	}
	return saved, nil
}

func (s *TickStore) exists(ctx context.Context, date, stockID string) (bool, error) {
	var count uint64
	err := s.conn.QueryRow(ctx,
		"SELECT count(*) FROM tick_series WHERE trade_date = ? AND stock_id = ?",
		date, stockID).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// tickRow is the scan target mirroring tickColumns.
type tickRow struct {
	TradeDate   string
	StockID     string
	RowNo       uint32
	Seq         uint64
	Kind        string
	TSRaw       uint64
	EventTime   *time.Time
	Trial       *int16
	Price       *int64
	Volume      *int64
	TotalVolume *int64
	Side        *string
	BidCount    *int16
	AskCount    *int16
	Levels      [4 * domain.MaxDepthLevels]*int64 // bid p/v x5, ask p/v x5
}

type chRows interface {
	Scan(dest ...any) error
}

func scanTick(rows chRows) (*domain.Tick, error) {
	var r tickRow

	dest := []any{
		&r.TradeDate, &r.StockID, &r.RowNo, &r.Seq, &r.Kind, &r.TSRaw, &r.EventTime,
		&r.Trial, &r.Price, &r.Volume, &r.TotalVolume, &r.Side,
		&r.BidCount, &r.AskCount,
	}
	for i := range r.Levels {
		dest = append(dest, &r.Levels[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, fmt.Errorf("scan tick row: %w", err)
	}

	tick := &domain.Tick{
		Date:    r.TradeDate,
		StockID: r.StockID,
		Seq:     int64(r.Seq),
		Kind:    domain.KindFromCode(r.Kind),
	}

	var eventTime time.Time
	if r.EventTime != nil {
		eventTime = *r.EventTime
	}

	switch tick.Kind {
	case domain.KindTrade:
		tr := &domain.TradeRecord{
			StockID: r.StockID,
			TSRaw:   int64(r.TSRaw),
			Time:    eventTime,
		}
		if r.Trial != nil {
			tr.Trial = domain.TrialFlag(*r.Trial)
		}
		if r.Price != nil {
			tr.Price = domain.PriceFromScaled(*r.Price)
		}
		if r.Volume != nil {
			tr.Volume = *r.Volume
		}
		if r.TotalVolume != nil {
			tr.TotalVolume = *r.TotalVolume
		}
		if r.Side != nil {
			switch *r.Side {
			case "1":
				tr.Side = domain.SideBuy
			case "2":
				tr.Side = domain.SideSell
			}
		}
		tick.Trade = tr
	case domain.KindDepth:
		d := &domain.DepthRecord{
			StockID: r.StockID,
			TSRaw:   int64(r.TSRaw),
			Time:    eventTime,
		}
		if r.BidCount != nil {
			d.BidCount = int(*r.BidCount)
		}
		if r.AskCount != nil {
			d.AskCount = int(*r.AskCount)
		}
		for i := 0; i < domain.MaxDepthLevels; i++ {
			d.Bids[i] = levelFrom(r.Levels[2*i], r.Levels[2*i+1])
			d.Asks[i] = levelFrom(r.Levels[2*domain.MaxDepthLevels+2*i], r.Levels[2*domain.MaxDepthLevels+2*i+1])
		}
		tick.Depth = d
	default:
		return nil, fmt.Errorf("unknown tick kind %q", r.Kind)
	}

	return tick, nil
}

func levelFrom(price, volume *int64) *domain.PriceLevel {
	if price == nil || volume == nil {
		return nil
	}
	return &domain.PriceLevel{Price: domain.PriceFromScaled(*price), Volume: *volume}
}

func ptrInt16(v int16) *int16 { return &v }
func ptrInt64(v int64) *int64 { return &v }
