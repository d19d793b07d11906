package router

import (
	"math/big"
)

// Price impact thresholds in basis points (bps)
const (
	PriceImpactLow      uint16 = 100  // 1% - Low impact
	PriceImpactModerate uint16 = 300  // 3% - Moderate impact
	PriceImpactHigh     uint16 = 500  // 5% - High impact
	PriceImpactExtreme  uint16 = 1000 // 10% - Extreme impact
)

// PriceImpactSeverity represents the severity level of price impact
type PriceImpactSeverity string

const (
	SeverityNone     PriceImpactSeverity = "none"     // < 1%
	SeverityLow      PriceImpactSeverity = "low"      // 1-3%
	SeverityModerate PriceImpactSeverity = "moderate" // 3-5%
	SeverityHigh     PriceImpactSeverity = "high"     // 5-10%
	SeverityExtreme  PriceImpactSeverity = "extreme"  // > 10%
)

// GetPriceImpactSeverity returns the severity level based on price impact bps
func GetPriceImpactSeverity(priceImpactBps uint16) PriceImpactSeverity {
	switch {
	case priceImpactBps < PriceImpactLow:
		return SeverityNone
	case priceImpactBps < PriceImpactModerate:
		return SeverityLow
	case priceImpactBps < PriceImpactHigh:
		return SeverityModerate
	case priceImpactBps < PriceImpactExtreme:
		return SeverityHigh
	default:
		return SeverityExtreme
	}
}

// CalculatePriceImpactRatio computes price impact in basis points from
// an executed fill against the pre-swap spot price spotNum/spotDen
// (output per input).
//
//	impact = 1 - execPrice / spotPrice
//	       = (effIn * spotNum - out * spotDen) / (effIn * spotNum)
//
// The fee is already stripped from effIn so the figure reflects pure
// curve slippage.
func CalculatePriceImpactRatio(amountInEffective, amountOut, spotNum, spotDen *big.Int) uint16 {
	if amountInEffective == nil || amountOut == nil || spotNum == nil || spotDen == nil {
		return 0
	}
	if amountInEffective.Sign() <= 0 || amountOut.Sign() < 0 || spotNum.Sign() <= 0 || spotDen.Sign() <= 0 {
		return 0
	}

	execSide := GetBigInt()
	spotSide := GetBigInt()
	impact := GetBigInt()

	defer func() {
		PutBigInt(execSide)
		PutBigInt(spotSide)
		PutBigInt(impact)
	}()

	// spotSide = effIn * spotNum, execSide = out * spotDen
	spotSide.Mul(amountInEffective, spotNum)
	execSide.Mul(amountOut, spotDen)

	if spotSide.Sign() <= 0 {
		return 0
	}

	// Positive slippage clamps to zero
	if execSide.Cmp(spotSide) >= 0 {
		return 0
	}

	impact.Sub(spotSide, execSide)
	impact.Mul(impact, BPS_DENOM)
	impact.Quo(impact, spotSide)

	if !impact.IsUint64() || impact.Uint64() > 10000 {
		return 10000
	}
	return uint16(impact.Uint64())
}

// CalculatePriceImpactCP computes impact for a constant product pool.
// Spot price before the swap is reserveOut / reserveIn.
func CalculatePriceImpactCP(amountInEffective, amountOut, reserveIn, reserveOut *big.Int) uint16 {
	return CalculatePriceImpactRatio(amountInEffective, amountOut, reserveOut, reserveIn)
}

// CombineImpactBps folds per-hop impacts into a cumulative figure:
//
//	cumulative = 1 - product(1 - impact_i)
//
// computed in integer bps so the result is deterministic.
func CombineImpactBps(impacts []uint16) uint16 {
	retained := uint64(10000)
	for _, bps := range impacts {
		if bps >= 10000 {
			return 10000
		}
		retained = retained * uint64(10000-bps) / 10000
	}
	return uint16(10000 - retained)
}

// GetPriceImpactWarning returns a user-friendly warning message based on impact
func GetPriceImpactWarning(priceImpactBps uint16) string {
	severity := GetPriceImpactSeverity(priceImpactBps)

	switch severity {
	case SeverityNone:
		return ""
	case SeverityLow:
		return "Low price impact"
	case SeverityModerate:
		return "Moderate price impact - consider reducing trade size"
	case SeverityHigh:
		return "High price impact - you may receive significantly less tokens"
	case SeverityExtreme:
		return "EXTREME price impact - this trade will severely impact the market price"
	default:
		return ""
	}
}
