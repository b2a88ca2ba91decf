package protocol

import "errors"

// Decode failure taxonomy. No decode error is ever fatal to the enclosing
// file or stream; callers skip the line and, except for ErrNotARecord,
// count the failure.
var (
	// ErrNotARecord marks a line whose tag is neither Trade nor Depth,
	// or which carries fewer than the minimum required fields. Skipped
	// silently.
	ErrNotARecord = errors.New("not a quote record")

	// ErrMalformedField marks a Trade or Depth line with a field that
	// fails integer parsing. The record is dropped, not retried.
	ErrMalformedField = errors.New("malformed field")

	// ErrMissingSection marks a Depth line without a parseable BID or
	// ASK count tag. Partial order books are never produced.
	ErrMissingSection = errors.New("missing BID/ASK section")
)
