package market

import "errors"

var (
	// ErrDataFeedUnavailable means a refresh could not reach or read the
	// chain. Callers keep serving the last known pool state.
	ErrDataFeedUnavailable = errors.New("pool data feed unavailable")
)
