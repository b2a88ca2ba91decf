package book

import (
	"sort"

	"github.com/jackson97010/api-holdwin/internal/domain"
)

// LabelSeries assigns aggressor sides to every trade in an instrument-day
// series using a backward as-of join: each trade is matched with the most
// recent depth snapshot whose raw timestamp is <= the trade's, most recent
// wins. Trades preceding the first snapshot stay unresolved.
//
// The join key is the raw numeric timestamp, not the derived datetime, so
// records with an unparsable datetime still participate. Sides are written
// in place; the slice order is not changed.
func LabelSeries(ticks []*domain.Tick) {
	var trades []*domain.TradeRecord
	var depths []*domain.DepthRecord
	for _, t := range ticks {
		switch t.Kind {
		case domain.KindTrade:
			trades = append(trades, t.Trade)
		case domain.KindDepth:
			depths = append(depths, t.Depth)
		}
	}
	if len(trades) == 0 || len(depths) == 0 {
		return
	}

	// Stable sorts keep arrival order among equal timestamps.
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].TSRaw < trades[j].TSRaw
	})
	sort.SliceStable(depths, func(i, j int) bool {
		return depths[i].TSRaw < depths[j].TSRaw
	})

	di := 0
	var cur *domain.DepthRecord
	for _, tr := range trades {
		for di < len(depths) && depths[di].TSRaw <= tr.TSRaw {
			cur = depths[di]
			di++
		}
		tr.Side = Classify(tr.Price, cur)
	}
}
