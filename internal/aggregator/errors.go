package aggregator

import "errors"

var (
	// ErrStaleDataRejected means pool state needed by the quote was past
	// the staleness threshold and could not be refreshed in time.
	ErrStaleDataRejected = errors.New("stale pool data rejected")

	// ErrQuoteTimeout means the quote deadline passed before any
	// candidate route finished simulating.
	ErrQuoteTimeout = errors.New("quote timed out")
)
