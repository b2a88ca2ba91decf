// Package verification re-decodes persisted instrument-day series from the
// source quote files and compares them field by field against storage.
// Prices are fixed-point integers, so comparison is exact; there is no
// tolerance.
package verification

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/jackson97010/api-holdwin/internal/batch"
	"github.com/jackson97010/api-holdwin/internal/domain"
	"github.com/jackson97010/api-holdwin/internal/limitup"
	"github.com/jackson97010/api-holdwin/internal/storage"
)

// FieldDivergence represents a mismatch between a stored and a re-decoded
// value at one row.
type FieldDivergence struct {
	Row      int
	Field    string
	Expected any // stored value
	Actual   any // re-decoded value
}

// SeriesResult is the comparison outcome of one instrument-day.
type SeriesResult struct {
	Date        string
	StockID     string
	Match       bool
	StoredRows  int
	DecodedRows int
	Divergences []FieldDivergence
}

// Report aggregates series results for a verification run.
type Report struct {
	TotalSeries     int
	MatchedSeries   int
	DivergentSeries int
	Results         []SeriesResult
}

// Verifier re-decodes and compares persisted series.
type Verifier struct {
	store    storage.TickStore
	calendar limitup.Calendar
	dataDir  string
	logger   *zap.Logger
}

// NewVerifier creates a Verifier.
func NewVerifier(store storage.TickStore, calendar limitup.Calendar, dataDir string, logger *zap.Logger) *Verifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{store: store, calendar: calendar, dataDir: dataDir, logger: logger}
}

// VerifyDate re-decodes one trading date and compares every persisted
// target series against the fresh decode.
func (v *Verifier) VerifyDate(ctx context.Context, date string) (*Report, error) {
	targets := v.calendar.Targets(date)
	if len(targets) == 0 {
		return &Report{}, nil
	}

	decoded, err := batch.DecodeDay(ctx, v.dataDir, date, targets, v.logger)
	if err != nil {
		return nil, fmt.Errorf("re-decode date %s: %w", date, err)
	}

	saved, err := v.store.SavedInstruments(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("list saved instruments: %w", err)
	}

	report := &Report{}
	for stockID := range saved {
		if _, ok := targets[stockID]; !ok {
			continue
		}

		stored, err := v.store.GetDay(ctx, date, stockID)
		if err != nil {
			return nil, fmt.Errorf("load series %s/%s: %w", date, stockID, err)
		}

		result := CompareSeries(stored, decoded[stockID])
		result.Date = date
		result.StockID = stockID

		report.TotalSeries++
		if result.Match {
			report.MatchedSeries++
		} else {
			report.DivergentSeries++
			v.logger.Warn("series diverges from re-decode",
				zap.String("date", date),
				zap.String("stock_id", stockID),
				zap.Int("divergences", len(result.Divergences)))
		}
		report.Results = append(report.Results, result)
	}

	return report, nil
}

// CompareSeries compares a stored series against a re-decoded one row by
// row. Every field must match exactly.
func CompareSeries(stored, decoded []*domain.Tick) SeriesResult {
	result := SeriesResult{
		StoredRows:  len(stored),
		DecodedRows: len(decoded),
	}

	n := len(stored)
	if len(decoded) < n {
		n = len(decoded)
	}
	if len(stored) != len(decoded) {
		result.Divergences = append(result.Divergences, FieldDivergence{
			Row:      n,
			Field:    "len",
			Expected: len(stored),
			Actual:   len(decoded),
		})
	}

	for i := 0; i < n; i++ {
		result.Divergences = append(result.Divergences, compareTick(i, stored[i], decoded[i])...)
	}

	result.Match = len(result.Divergences) == 0
	return result
}

func compareTick(row int, stored, decoded *domain.Tick) []FieldDivergence {
	var divs []FieldDivergence
	diff := func(field string, expected, actual any) {
		if expected != actual {
			divs = append(divs, FieldDivergence{Row: row, Field: field, Expected: expected, Actual: actual})
		}
	}

	diff("Kind", stored.Kind, decoded.Kind)
	if stored.Kind != decoded.Kind {
		return divs
	}

	diff("StockID", stored.StockID, decoded.StockID)
	diff("TSRaw", stored.TSRaw(), decoded.TSRaw())
	if !stored.Time().Equal(decoded.Time()) {
		divs = append(divs, FieldDivergence{Row: row, Field: "Time", Expected: stored.Time(), Actual: decoded.Time()})
	}

	switch stored.Kind {
	case domain.KindTrade:
		s, d := stored.Trade, decoded.Trade
		diff("Trial", s.Trial, d.Trial)
		diff("Price", s.Price, d.Price)
		diff("Volume", s.Volume, d.Volume)
		diff("TotalVolume", s.TotalVolume, d.TotalVolume)
		diff("Side", s.Side, d.Side)
	case domain.KindDepth:
		s, d := stored.Depth, decoded.Depth
		diff("BidCount", s.BidCount, d.BidCount)
		diff("AskCount", s.AskCount, d.AskCount)
		for lvl := 0; lvl < domain.MaxDepthLevels; lvl++ {
			compareLevel(&divs, row, fmt.Sprintf("Bids[%d]", lvl), s.Bids[lvl], d.Bids[lvl])
			compareLevel(&divs, row, fmt.Sprintf("Asks[%d]", lvl), s.Asks[lvl], d.Asks[lvl])
		}
	}

	return divs
}

func compareLevel(divs *[]FieldDivergence, row int, field string, stored, decoded *domain.PriceLevel) {
	if stored == nil && decoded == nil {
		return
	}
	if stored == nil || decoded == nil || *stored != *decoded {
		*divs = append(*divs, FieldDivergence{Row: row, Field: field, Expected: stored, Actual: decoded})
	}
}
