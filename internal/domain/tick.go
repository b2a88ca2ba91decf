package domain

import "time"

// Kind discriminates the two record kinds in a persisted series.
type Kind uint8

// Kind values.
const (
	KindTrade Kind = iota + 1
	KindDepth
)

// Code returns the single-character kind code used in storage.
func (k Kind) Code() string {
	switch k {
	case KindTrade:
		return "T"
	case KindDepth:
		return "D"
	default:
		return ""
	}
}

// KindFromCode is the inverse of Code. Returns 0 for unknown codes.
func KindFromCode(code string) Kind {
	switch code {
	case "T":
		return KindTrade
	case "D":
		return KindDepth
	default:
		return 0
	}
}

// Tick is one record of an instrument-day series: exactly one of Trade or
// Depth is set, according to Kind.
type Tick struct {
	Date    string // YYYYMMDD trading date
	StockID string

	// Seq is the arrival position within the day's source files. It is
	// the stable tie-break when sorting by derived datetime.
	Seq int64

	Kind  Kind
	Trade *TradeRecord
	Depth *DepthRecord
}

// Time returns the derived datetime of the underlying record.
func (t *Tick) Time() time.Time {
	switch t.Kind {
	case KindTrade:
		return t.Trade.Time
	case KindDepth:
		return t.Depth.Time
	default:
		return time.Time{}
	}
}

// TSRaw returns the raw numeric timestamp of the underlying record.
func (t *Tick) TSRaw() int64 {
	switch t.Kind {
	case KindTrade:
		return t.Trade.TSRaw
	case KindDepth:
		return t.Depth.TSRaw
	default:
		return 0
	}
}
