package book

import "github.com/jackson97010/api-holdwin/internal/domain"

// Classify assigns the aggressor side of a trade price against a book
// snapshot. Rules, in priority order:
//
//  1. nil snapshot: unresolved.
//  2. price >= best ask: buy (hit the ask).
//  3. price <= best bid: sell.
//  4. strictly between with both sides quoted: the closer quote wins;
//     an exact tie resolves to buy. The tie-break is part of the output
//     contract and must not change.
//  5. one side quoted: that side decides (ask-only buy, bid-only sell).
func Classify(price domain.Price, snap *domain.DepthRecord) domain.Side {
	if snap == nil {
		return domain.SideUnknown
	}

	bid, ask := snap.BestBid(), snap.BestAsk()

	if ask != nil && price >= ask.Price {
		return domain.SideBuy
	}
	if bid != nil && price <= bid.Price {
		return domain.SideSell
	}

	switch {
	case bid != nil && ask != nil:
		distAsk := ask.Price.Sub(price).Abs()
		distBid := price.Sub(bid.Price).Abs()
		if distAsk <= distBid {
			return domain.SideBuy
		}
		return domain.SideSell
	case ask != nil:
		return domain.SideBuy
	case bid != nil:
		return domain.SideSell
	default:
		return domain.SideUnknown
	}
}

// ClassifyLatest classifies against the cached latest snapshot for the
// trade's instrument. This is the live-mode path.
func ClassifyLatest(t *domain.TradeRecord, cache *Cache) domain.Side {
	return Classify(t.Price, cache.Latest(t.StockID))
}
