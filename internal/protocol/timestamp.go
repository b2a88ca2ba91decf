package protocol

import (
	"strconv"
	"time"
)

// Taipei is the exchange timezone. Taiwan has no daylight saving, so a
// fixed offset is exact.
var Taipei = time.FixedZone("Asia/Taipei", 8*60*60)

const rawTimestampLen = 12 // HHMMSSuuuuuu

// DeriveTime combines an 8-digit reference date with a raw feed timestamp
// (HHMMSSuuuuuu, left-zero-padded to 12 digits) into an absolute datetime
// with microsecond resolution.
//
// A raw value that fails to parse yields the zero time without invalidating
// the record: the timestamp is advisory for sorting, not a correctness gate.
func DeriveTime(raw, refDate string) time.Time {
	if len(refDate) != 8 || len(raw) > rawTimestampLen {
		return time.Time{}
	}

	padded := raw
	for len(padded) < rawTimestampLen {
		padded = "0" + padded
	}

	t, err := time.ParseInLocation(
		"20060102150405.000000",
		refDate+padded[:6]+"."+padded[6:],
		Taipei,
	)
	if err != nil {
		return time.Time{}
	}
	return t
}

// RawTimestamp parses the raw timestamp field as an integer join key.
// Returns 0 when the field is not numeric.
func RawTimestamp(raw string) int64 {
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
