package chain

import (
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	"github.com/solpath/quote-engine/internal/domain"
)

// Curve kind discriminants as stored on-chain.
const (
	curveKindConstantProduct uint8 = 0
	curveKindStableSwap      uint8 = 1
)

// poolAccountData is the borsh layout of an AMM pool account.
type poolAccountData struct {
	Discriminator [8]byte
	TokenMintA    solana.PublicKey
	TokenMintB    solana.PublicKey
	TokenVaultA   solana.PublicKey
	TokenVaultB   solana.PublicKey
	ReserveA      uint64
	ReserveB      uint64
	FeeRateBps    uint16
	CurveKind     uint8
	AmpFactor     uint64
}

// PoolState is one decoded pool account.
type PoolState struct {
	Address     solana.PublicKey
	TokenMintA  solana.PublicKey
	TokenMintB  solana.PublicKey
	TokenVaultA solana.PublicKey
	TokenVaultB solana.PublicKey
	ReserveA    uint64
	ReserveB    uint64
	FeeRateBps  uint16
	Curve       domain.CurveType
	AmpFactor   uint64
}

// DecodePoolAccount parses a raw pool account into a PoolState.
func DecodePoolAccount(address solana.PublicKey, data []byte) (*PoolState, error) {
	var raw poolAccountData
	if err := bin.NewBorshDecoder(data).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode pool account %s: %w", address, err)
	}

	var curve domain.CurveType
	switch raw.CurveKind {
	case curveKindConstantProduct:
		curve = domain.CurveConstantProduct
	case curveKindStableSwap:
		curve = domain.CurveStableSwap
	default:
		return nil, fmt.Errorf("pool account %s: unknown curve kind %d", address, raw.CurveKind)
	}

	if curve == domain.CurveStableSwap && raw.AmpFactor == 0 {
		return nil, fmt.Errorf("pool account %s: stableswap with zero amp", address)
	}

	return &PoolState{
		Address:     address,
		TokenMintA:  raw.TokenMintA,
		TokenMintB:  raw.TokenMintB,
		TokenVaultA: raw.TokenVaultA,
		TokenVaultB: raw.TokenVaultB,
		ReserveA:    raw.ReserveA,
		ReserveB:    raw.ReserveB,
		FeeRateBps:  raw.FeeRateBps,
		Curve:       curve,
		AmpFactor:   raw.AmpFactor,
	}, nil
}
