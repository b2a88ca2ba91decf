package domain

import (
	"strconv"

	"github.com/shopspring/decimal"
)

// PriceScale is the number of implied decimal digits in feed prices.
// The feed transmits prices as integers scaled by 10^4.
const PriceScale = 4

// Price is a fixed-point price stored exactly as it appears on the wire
// (value * 10^4). Keeping the scaled integer makes equality and ordering
// exact; conversion to decimal happens only at output boundaries.
type Price int64

// PriceFromScaled builds a Price from a wire-format scaled integer.
func PriceFromScaled(v int64) Price {
	return Price(v)
}

// ParsePrice parses a wire-format scaled integer field.
func ParsePrice(s string) (Price, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	return Price(v), nil
}

// Scaled returns the raw scaled integer.
func (p Price) Scaled() int64 {
	return int64(p)
}

// Decimal converts to an exact decimal value (e.g. 333500 -> 33.35).
func (p Price) Decimal() decimal.Decimal {
	return decimal.New(int64(p), -PriceScale)
}

// Float64 converts to a binary float. Downstream consumers that require
// floats get the conversion here, at the edge, never internally.
func (p Price) Float64() float64 {
	f, _ := p.Decimal().Float64()
	return f
}

// String formats the price in decimal notation without trailing zeros.
func (p Price) String() string {
	return p.Decimal().String()
}

// Sub returns p - q in scaled units.
func (p Price) Sub(q Price) Price {
	return p - q
}

// Abs returns the absolute value.
func (p Price) Abs() Price {
	if p < 0 {
		return -p
	}
	return p
}
