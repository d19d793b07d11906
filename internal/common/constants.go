// Package common contains common constants and variables used across services
package common

import "github.com/gagliardetto/solana-go"

var (
	// Well-known mints used as routing anchors and catalog seeds.
	WSOLMint = solana.MustPublicKeyFromBase58("So11111111111111111111111111111111111111112")
	USDCMint = solana.MustPublicKeyFromBase58("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
	USDTMint = solana.MustPublicKeyFromBase58("Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB")
)

// BpsDenominator is the basis point scale used for fees, slippage and
// price impact throughout the engine.
const BpsDenominator = 10_000
