// Package protocol decodes the line-oriented Taiwan equities quote feed.
//
// Every entry point (batch pipeline, dispatcher, verification) calls this
// one implementation, so batch and live decoding cannot drift.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jackson97010/api-holdwin/internal/domain"
)

// Line tags. A line belongs to a record kind iff its first comma-delimited
// field equals the tag exactly.
const (
	TagTrade = "Trade"
	TagDepth = "Depth"
)

const (
	minTradeFields = 7
	minDepthFields = 4

	bidTag = "BID:"
	askTag = "ASK:"
)

// Decoded is the result of decoding one line: Kind selects which of the two
// records is set.
type Decoded struct {
	Kind  domain.Kind
	Trade *domain.TradeRecord
	Depth *domain.DepthRecord
}

// StockID returns the instrument id of the decoded record.
func (d *Decoded) StockID() string {
	if d.Kind == domain.KindTrade {
		return d.Trade.StockID
	}
	return d.Depth.StockID
}

// Tag returns the first comma-delimited field of a raw line.
func Tag(line string) string {
	if i := strings.IndexByte(line, ','); i >= 0 {
		return line[:i]
	}
	return strings.TrimSpace(line)
}

// InstrumentID extracts the trimmed second field of a raw line without a
// full split. Used as the cheap pre-decode instrument filter; returns ""
// when the line has no second field.
func InstrumentID(line string) string {
	i := strings.IndexByte(line, ',')
	if i < 0 {
		return ""
	}
	rest := line[i+1:]
	if j := strings.IndexByte(rest, ','); j >= 0 {
		rest = rest[:j]
	}
	return strings.TrimSpace(rest)
}

// DecodeLine decodes a raw feed line against a reference date (YYYYMMDD).
// Lines with an unrecognized tag return ErrNotARecord.
func DecodeLine(line, refDate string) (*Decoded, error) {
	switch Tag(line) {
	case TagTrade:
		t, err := DecodeTrade(line, refDate)
		if err != nil {
			return nil, err
		}
		return &Decoded{Kind: domain.KindTrade, Trade: t}, nil
	case TagDepth:
		d, err := DecodeDepth(line, refDate)
		if err != nil {
			return nil, err
		}
		return &Decoded{Kind: domain.KindDepth, Depth: d}, nil
	default:
		return nil, ErrNotARecord
	}
}

// DecodeTrade decodes a trade print:
//
//	Trade,<id>,<ts>,<flag>,<price*1e4>,<vol>,<cumvol>[,<seq>]
//
// The instrument id arrives right-padded to a fixed width and is trimmed.
// The price field is a scaled integer kept as domain.Price; it is never
// routed through floating point.
func DecodeTrade(line, refDate string) (*domain.TradeRecord, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if fields[0] != TagTrade || len(fields) < minTradeFields {
		return nil, ErrNotARecord
	}

	rawTS := strings.TrimSpace(fields[2])

	flag, err := strconv.Atoi(strings.TrimSpace(fields[3]))
	if err != nil {
		return nil, fmt.Errorf("%w: trial flag %q", ErrMalformedField, fields[3])
	}
	price, err := domain.ParsePrice(strings.TrimSpace(fields[4]))
	if err != nil {
		return nil, fmt.Errorf("%w: price %q", ErrMalformedField, fields[4])
	}
	volume, err := strconv.ParseInt(strings.TrimSpace(fields[5]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: volume %q", ErrMalformedField, fields[5])
	}
	total, err := strconv.ParseInt(strings.TrimSpace(fields[6]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: total volume %q", ErrMalformedField, fields[6])
	}

	return &domain.TradeRecord{
		StockID:     strings.TrimSpace(fields[1]),
		TSRaw:       RawTimestamp(rawTS),
		Time:        DeriveTime(rawTS, refDate),
		Trial:       domain.TrialFlag(flag),
		Price:       price,
		Volume:      volume,
		TotalVolume: total,
	}, nil
}

// DecodeDepth decodes a five-level book snapshot:
//
//	Depth,<id>,<ts>,BID:<n>,<p*v>...,ASK:<n>,<p*v>...[,<seq>]
//
// Fields after the timestamp are scanned linearly; BID:<n> and ASK:<n>
// switch the current side. A level token contains '*'; a trailing token
// without '*' is an optional sequence number and is ignored. Exactly the
// first min(declared count, 5) valid level tokens per side are kept; extra
// levels are ignored and under-populated slots stay nil.
func DecodeDepth(line, refDate string) (*domain.DepthRecord, error) {
	fields := strings.Split(strings.TrimSpace(line), ",")
	if fields[0] != TagDepth || len(fields) < minDepthFields {
		return nil, ErrNotARecord
	}

	rawTS := strings.TrimSpace(fields[2])
	rec := &domain.DepthRecord{
		StockID:  strings.TrimSpace(fields[1]),
		TSRaw:    RawTimestamp(rawTS),
		Time:     DeriveTime(rawTS, refDate),
		BidCount: -1,
		AskCount: -1,
	}

	type sideState struct {
		levels *[domain.MaxDepthLevels]*domain.PriceLevel
		keep   int // min(declared, 5)
		seen   int
	}
	var cur *sideState
	var bids, asks sideState
	bids.levels = &rec.Bids
	asks.levels = &rec.Asks

	for _, f := range fields[3:] {
		f = strings.TrimSpace(f)

		switch {
		case strings.HasPrefix(f, bidTag):
			n, err := strconv.Atoi(f[len(bidTag):])
			if err != nil {
				return nil, fmt.Errorf("%w: bid count %q", ErrMissingSection, f)
			}
			rec.BidCount = n
			bids.keep = min(n, domain.MaxDepthLevels)
			cur = &bids

		case strings.HasPrefix(f, askTag):
			n, err := strconv.Atoi(f[len(askTag):])
			if err != nil {
				return nil, fmt.Errorf("%w: ask count %q", ErrMissingSection, f)
			}
			rec.AskCount = n
			asks.keep = min(n, domain.MaxDepthLevels)
			cur = &asks

		case strings.Contains(f, "*"):
			if cur == nil || cur.seen >= cur.keep {
				continue // levels beyond the declared count or 5 are ignored
			}
			lvl, err := parseLevel(f)
			if err != nil {
				return nil, err
			}
			cur.levels[cur.seen] = lvl
			cur.seen++

		default:
			// Trailing sequence number or other non-level token.
		}
	}

	if rec.BidCount < 0 || rec.AskCount < 0 {
		return nil, ErrMissingSection
	}
	return rec, nil
}

// parseLevel parses a <price>*<volume> token.
func parseLevel(tok string) (*domain.PriceLevel, error) {
	i := strings.IndexByte(tok, '*')
	price, err := domain.ParsePrice(tok[:i])
	if err != nil {
		return nil, fmt.Errorf("%w: level price %q", ErrMalformedField, tok)
	}
	volume, err := strconv.ParseInt(tok[i+1:], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: level volume %q", ErrMalformedField, tok)
	}
	return &domain.PriceLevel{Price: price, Volume: volume}, nil
}
