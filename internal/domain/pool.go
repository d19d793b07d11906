package domain

import (
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
)

type CurveType uint8

const (
	CurveConstantProduct CurveType = iota
	CurveStableSwap
)

func (c CurveType) String() string {
	switch c {
	case CurveConstantProduct:
		return "ConstantProduct"
	case CurveStableSwap:
		return "StableSwap"
	default:
		return "UNKNOWN"
	}
}

type PoolFlags uint64

const (
	FlagActive          PoolFlags = 1 << 0
	FlagReady           PoolFlags = 1 << 1
	FlagConstantProduct PoolFlags = 1 << 2
	FlagStableSwap      PoolFlags = 1 << 3
	FlagLowFee          PoolFlags = 1 << 4
)

const (
	FlagReadyMask       = FlagActive | FlagReady
	FlagReadyCPMask     = FlagActive | FlagReady | FlagConstantProduct
	FlagReadyStableMask = FlagActive | FlagReady | FlagStableSwap
)

type Pool struct {
	Address       solana.PublicKey `json:"address"`
	Curve         CurveType        `json:"curve"`
	ProgramID     solana.PublicKey `json:"programId"`
	TokenMintA    solana.PublicKey `json:"tokenMintA"`
	TokenMintB    solana.PublicKey `json:"tokenMintB"`
	TokenVaultA   solana.PublicKey `json:"tokenVaultA"`
	TokenVaultB   solana.PublicKey `json:"tokenVaultB"`
	ReserveA      *big.Int         `json:"reserveA"`
	ReserveB      *big.Int         `json:"reserveB"`
	FeeRateBps    uint16           `json:"feeRateBps"`
	AmpFactor     uint64           `json:"ampFactor,omitempty"`
	Active        bool             `json:"active"`
	Ready         bool             `json:"ready"`
	LastRefreshed time.Time        `json:"lastRefreshed"`
	Flags         PoolFlags        `json:"-"`

	// uint64 shadow fields for zero-allocation hot path (router/quoter)
	// These are kept in sync with ReserveA/ReserveB via UpdateReserves()
	ReserveAU64 uint64 `json:"-"`
	ReserveBU64 uint64 `json:"-"`
}

func (p *Pool) IsReady() bool {
	return p.Flags&FlagReadyMask == FlagReadyMask
}

// IsStale reports whether the pool state is older than the given threshold.
func (p *Pool) IsStale(threshold time.Duration, now time.Time) bool {
	return now.Sub(p.LastRefreshed) > threshold
}

func (p *Pool) UpdateFlags() {
	p.Flags = 0
	if p.Active {
		p.Flags |= FlagActive
	}
	if p.Ready {
		p.Flags |= FlagReady
	}
	switch p.Curve {
	case CurveConstantProduct:
		p.Flags |= FlagConstantProduct
	case CurveStableSwap:
		p.Flags |= FlagStableSwap
	}
	if p.FeeRateBps < 30 {
		p.Flags |= FlagLowFee
	}
}

func (p *Pool) SetActive(active bool) {
	p.Active = active
	if active {
		p.Flags |= FlagActive
	} else {
		p.Flags &^= FlagActive
	}
}

func (p *Pool) SetReady(ready bool) {
	p.Ready = ready
	if ready {
		p.Flags |= FlagReady
	} else {
		p.Flags &^= FlagReady
	}
}

func (p *Pool) HasFlags(mask PoolFlags) bool {
	return p.Flags&mask == mask
}

func (p *Pool) UpdateReserveA(reserve *big.Int) {
	p.ReserveA = reserve
	if reserve != nil && reserve.IsUint64() {
		p.ReserveAU64 = reserve.Uint64()
	} else if reserve != nil {
		// Clamp to max uint64 for very large reserves
		p.ReserveAU64 = ^uint64(0)
	} else {
		p.ReserveAU64 = 0
	}
}

func (p *Pool) UpdateReserveB(reserve *big.Int) {
	p.ReserveB = reserve
	if reserve != nil && reserve.IsUint64() {
		p.ReserveBU64 = reserve.Uint64()
	} else if reserve != nil {
		p.ReserveBU64 = ^uint64(0)
	} else {
		p.ReserveBU64 = 0
	}
}

func (p *Pool) UpdateReserves(reserveA, reserveB *big.Int) {
	p.UpdateReserveA(reserveA)
	p.UpdateReserveB(reserveB)
}

// SyncU64Reserves syncs uint64 shadow fields from existing big.Int reserves
// Call this after loading a pool from persistence or when reserves were set directly
func (p *Pool) SyncU64Reserves() {
	if p.ReserveA != nil && p.ReserveA.IsUint64() {
		p.ReserveAU64 = p.ReserveA.Uint64()
	} else if p.ReserveA != nil {
		p.ReserveAU64 = ^uint64(0)
	}
	if p.ReserveB != nil && p.ReserveB.IsUint64() {
		p.ReserveBU64 = p.ReserveB.Uint64()
	} else if p.ReserveB != nil {
		p.ReserveBU64 = ^uint64(0)
	}
}

// ReservesFor returns the (in, out) reserves for a swap in the given direction.
func (p *Pool) ReservesFor(aToB bool) (*big.Int, *big.Int) {
	if aToB {
		return p.ReserveA, p.ReserveB
	}
	return p.ReserveB, p.ReserveA
}

// OutputMint returns the mint received when swapping in the given direction.
func (p *Pool) OutputMint(aToB bool) solana.PublicKey {
	if aToB {
		return p.TokenMintB
	}
	return p.TokenMintA
}
