package config

import (
	"github.com/andrew-solarstorm/go-packages/common"
)

type TokensConfig struct {
	// TokenListURL points at a Solana token-list style JSON document.
	// Empty disables the remote fetch and the catalog runs on seeds only.
	TokenListURL string

	// PriceAPIURL is the base URL of the USD price source.
	PriceAPIURL string

	// PriceCacheTTLSeconds bounds how long a fetched price is served
	// before re-fetching. Default: 30
	PriceCacheTTLSeconds int
}

func (c *TokensConfig) Key() string {
	return TOKENS_CONFIG_KEY
}

func (c *TokensConfig) Load() error {
	c.TokenListURL = common.GetEnvOrDefault("TOKEN_LIST_URL", "")
	c.PriceAPIURL = common.GetEnvOrDefault("PRICE_API_URL", "")
	c.PriceCacheTTLSeconds = common.GetEnvOrDefaultInt("PRICE_CACHE_TTL_SECONDS", 30)
	return nil
}

func (c *TokensConfig) Validate() error {
	return nil
}
