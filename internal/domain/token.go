package domain

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// TokenInfo is a catalog entry for a known mint.
type TokenInfo struct {
	Mint     solana.PublicKey `json:"mint"`
	Symbol   string           `json:"symbol"`
	Name     string           `json:"name"`
	Decimals uint8            `json:"decimals"`
	LogoURI  string           `json:"logoURI,omitempty"`
}

// TokenBalance is a wallet's holding of a single mint.
type TokenBalance struct {
	Mint     solana.PublicKey `json:"mint"`
	Amount   *big.Int         `json:"amount"`
	Decimals uint8            `json:"decimals"`
}

// WalletBalances is the full token account scan for a wallet.
type WalletBalances struct {
	Wallet   solana.PublicKey `json:"wallet"`
	Lamports uint64           `json:"lamports"`
	Tokens   []TokenBalance   `json:"tokens"`
}
