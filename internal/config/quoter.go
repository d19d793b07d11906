package config

import (
	"errors"
	"time"

	"github.com/andrew-solarstorm/go-packages/common"
)

type QuoterConfig struct {
	// MaxHops caps route length in pools. Default: 3
	MaxHops int

	// MaxCandidates caps how many routes the pathfinder hands to the
	// simulator per request. Default: 10
	MaxCandidates int

	// StalenessThresholdMs is how old pool state may be before a quote
	// forces a refresh. Default: 400
	StalenessThresholdMs int

	// QuoteTimeoutMs bounds end-to-end quote latency. Default: 500
	QuoteTimeoutMs int

	// RefreshIntervalMs drives the background pool refresh loop.
	// Default: 200
	RefreshIntervalMs int

	// EvictAfterMisses removes a pool after this many consecutive
	// refresh cycles without data. Default: 3
	EvictAfterMisses int

	// DefaultSlippageBps applies when a request carries no tolerance.
	// Default: 50
	DefaultSlippageBps int
}

func (c *QuoterConfig) Key() string {
	return QUOTER_CONFIG_KEY
}

func (c *QuoterConfig) Load() error {
	c.MaxHops = common.GetEnvOrDefaultInt("MAX_HOPS", 3)
	c.MaxCandidates = common.GetEnvOrDefaultInt("MAX_CANDIDATES", 10)
	c.StalenessThresholdMs = common.GetEnvOrDefaultInt("STALENESS_THRESHOLD_MS", 400)
	c.QuoteTimeoutMs = common.GetEnvOrDefaultInt("QUOTE_TIMEOUT_MS", 500)
	c.RefreshIntervalMs = common.GetEnvOrDefaultInt("REFRESH_INTERVAL_MS", 200)
	c.EvictAfterMisses = common.GetEnvOrDefaultInt("EVICT_AFTER_MISSES", 3)
	c.DefaultSlippageBps = common.GetEnvOrDefaultInt("DEFAULT_SLIPPAGE_BPS", 50)
	return c.Validate()
}

func (c *QuoterConfig) Validate() error {
	if c.MaxHops < 1 || c.MaxCandidates < 1 {
		return errors.New("invalid quoter config")
	}
	if c.EvictAfterMisses < 1 {
		return errors.New("invalid quoter config: evict threshold")
	}
	if c.DefaultSlippageBps < 0 || c.DefaultSlippageBps >= 10_000 {
		return errors.New("invalid quoter config: slippage")
	}
	return nil
}

func (c *QuoterConfig) StalenessThreshold() time.Duration {
	return time.Duration(c.StalenessThresholdMs) * time.Millisecond
}

func (c *QuoterConfig) QuoteTimeout() time.Duration {
	return time.Duration(c.QuoteTimeoutMs) * time.Millisecond
}

func (c *QuoterConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshIntervalMs) * time.Millisecond
}
