package domain

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// QuoteRequest is the normalized form of an incoming quote call after
// the HTTP layer has parsed mints and amounts.
type QuoteRequest struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	AmountIn   *big.Int

	// SlippageBps defaults to the configured tolerance when zero.
	SlippageBps uint16

	// UserWallet is optional. When set, the aggregator checks whether
	// the wallet can fund AmountIn and reports it on the quote.
	UserWallet solana.PublicKey
	HasWallet  bool

	MaxHops int
}
