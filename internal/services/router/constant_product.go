package router

import (
	"math/big"

	"github.com/solpath/quote-engine/internal/domain"
)

// ConstantProductQuoter prices swaps against x*y=k pools.
type ConstantProductQuoter struct{}

func NewConstantProductQuoter() *ConstantProductQuoter {
	return &ConstantProductQuoter{}
}

func (q *ConstantProductQuoter) SupportsCurve(curve domain.CurveType) bool {
	return curve == domain.CurveConstantProduct
}

// GetQuoteExactIn computes the output for an exact-in swap.
// The fee comes off the input first, then the remainder trades on the
// curve: out = effIn * reserveOut / (reserveIn + effIn), floored.
func (q *ConstantProductQuoter) GetQuoteExactIn(pool *domain.Pool, amountIn *big.Int, aToB bool) (*domain.SwapQuote, error) {
	if pool == nil || pool.Curve != domain.CurveConstantProduct {
		return nil, ErrInvalidPool
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}

	reserveIn, reserveOut := pool.ReservesFor(aToB)
	if reserveIn == nil || reserveOut == nil || reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return nil, ErrInvalidPool
	}

	effIn := GetBigInt()
	denom := GetBigInt()
	defer func() {
		PutBigInt(effIn)
		PutBigInt(denom)
	}()

	ApplyFeeBps(amountIn, pool.FeeRateBps, effIn)
	if effIn.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	// out = effIn * reserveOut / (reserveIn + effIn)
	denom.Add(reserveIn, effIn)
	amountOut := new(big.Int)
	MulDivBig(effIn, reserveOut, denom, amountOut)

	if amountOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	priceImpact := CalculatePriceImpactCP(effIn, amountOut, reserveIn, reserveOut)

	fee := new(big.Int).Sub(amountIn, effIn)

	return &domain.SwapQuote{
		AmountIn:       amountIn,
		AmountOut:      amountOut,
		PriceImpactBps: priceImpact,
		Fee:            fee,
		Pool:           pool,
		AToB:           aToB,
	}, nil
}
