package main

import (
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/solpath/quote-engine/internal/aggregator"
	"github.com/solpath/quote-engine/internal/common"
	"github.com/solpath/quote-engine/internal/config"
	"github.com/solpath/quote-engine/internal/http"
	"github.com/solpath/quote-engine/internal/registry"
	"github.com/solpath/quote-engine/internal/services/market"
	"github.com/solpath/quote-engine/internal/services/tokens"
)

// @title Solpath Quote Engine API
// @version 1.0
// @description Swap route discovery and quote simulation for Solana AMM pools.
// @description
// @description ## Features
// @description - **Route Discovery**: Direct and multi-hop routes up to 4 pools deep
// @description - **Quote Simulation**: Constant-product and stableswap curves with exact integer math
// @description - **Freshness Guarantees**: Quotes never serve pool state past the staleness threshold
// @description - **Price Impact Analysis**: Per-hop and cumulative impact with severity warnings
// @description - **Slippage Protection**: Configurable tolerance with minimum-output thresholds
// @description
// @description ## Usage Tips
// @description - Use smallest token units (lamports for SOL, base units for SPL tokens)
// @description - SOL has 9 decimals: 1 SOL = 1,000,000,000 lamports
// @description - USDC has 6 decimals: 1 USDC = 1,000,000 base units
// @description - Default slippage is 50 bps (0.5%)
// @description
// @BasePath /
// @schemes https http
// @tag.name quote
// @tag.description Get the best swap quote with price impact analysis and routing information
// @tag.name pools
// @tag.description Inspect and administer the tracked pool set
// @tag.name tokens
// @tag.description Token metadata and USD prices
// @tag.name balances
// @tag.description Wallet SOL and SPL token balances

func main() {
	// Runtime tuning (GOGC, GOMAXPROCS, GOMEMLIMIT) for low-latency quoting
	common.InitRuntimeForQuoting()

	// load env
	err := godotenv.Load()
	if err != nil {
		log.Error().Err(err).Msg("failed to load env")
		return
	}

	// di container config
	conf := container.NewConf(
		&config.GeneralConfig{},
		&config.RPCConfig{},
		&config.QuoterConfig{},
		&config.PersistenceConfig{},
		&config.TokensConfig{},
	)

	// di container
	dic, err := container.New(
		// config
		conf,

		// services
		&registry.Registry{},
		&market.Service{},
		&tokens.Service{},
		&aggregator.Service{},

		&http.HTTPService{},
	)
	if err != nil {
		log.Error().Err(err).Msg("failed to create di container")
		return
	}

	if err := dic.Run(); err != nil {
		log.Error().Err(err).Msg("failed to run di container")
		return
	}

	// Run() returns on SIGINT/SIGTERM without stopping services
	log.Info().Msg("Shutting down services...")
	if err := dic.Stop(); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
	log.Info().Msg("Shutdown complete")
}
