// Package domain holds the decoded feed record types shared by the decoder,
// classifier, dispatcher and storage layers.
package domain

import "time"

// Side is the aggressor side assigned to a trade by the classifier.
type Side uint8

// Side values. The wire codes ("1" buy, "2" sell) match the upstream
// disclosure convention and must be preserved for output parity.
const (
	SideUnknown Side = iota
	SideBuy
	SideSell
)

// Code returns the persisted side code: "1" buy-initiated, "2"
// sell-initiated, "" unresolved.
func (s Side) Code() string {
	switch s {
	case SideBuy:
		return "1"
	case SideSell:
		return "2"
	default:
		return ""
	}
}

func (s Side) String() string {
	switch s {
	case SideBuy:
		return "buy"
	case SideSell:
		return "sell"
	default:
		return "unknown"
	}
}

// TrialFlag distinguishes normal disclosure from trial-match (pre-open
// indicative) prints. Stored as the raw integer from the feed.
type TrialFlag int

// TrialFlag values.
const (
	TrialNormal TrialFlag = 0
	TrialMatch  TrialFlag = 1
)

// IsTrial reports whether the print is a trial-match disclosure.
func (f TrialFlag) IsTrial() bool {
	return f == TrialMatch
}

// MaxDepthLevels is the number of book levels the feed discloses per side.
const MaxDepthLevels = 5

// PriceLevel is a single (price, volume) book level.
type PriceLevel struct {
	Price  Price
	Volume int64
}

// TradeRecord is one executed transaction print.
type TradeRecord struct {
	StockID string

	// TSRaw is the raw numeric timestamp (HHMMSSuuuuuu). Zero when the
	// field was not numeric. It is the as-of join key in batch mode.
	TSRaw int64

	// Time is the derived absolute datetime (reference date + time of
	// day, microsecond resolution). Zero when underivable; the record
	// stays valid, the timestamp is advisory for sorting only.
	Time time.Time

	Trial       TrialFlag
	Price       Price
	Volume      int64
	TotalVolume int64

	// Side is unset until the classifier runs.
	Side Side
}

// DepthRecord is a five-level order book snapshot.
//
// Levels are kept in declared order, best-first as disclosed by the feed;
// the decoder never re-sorts them. Unpopulated slots are nil, never zero.
type DepthRecord struct {
	StockID string
	TSRaw   int64
	Time    time.Time

	// BidCount and AskCount are the declared level counts, which may
	// exceed the populated levels when the feed under-populates.
	BidCount int
	AskCount int

	Bids [MaxDepthLevels]*PriceLevel
	Asks [MaxDepthLevels]*PriceLevel
}

// BestBid returns the first bid level, or nil when absent.
func (d *DepthRecord) BestBid() *PriceLevel {
	return d.Bids[0]
}

// BestAsk returns the first ask level, or nil when absent.
func (d *DepthRecord) BestAsk() *PriceLevel {
	return d.Asks[0]
}

// LimitUpEvent is one row of the external limit-up event list: the
// instrument hit its price limit on the given trading date.
type LimitUpEvent struct {
	Date    string // YYYYMMDD
	StockID string
}
