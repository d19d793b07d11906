package router

import (
	"math/big"

	"github.com/solpath/quote-engine/internal/domain"
)

// stableswapMaxIterations bounds the Newton iterations for D and y.
// Both converge in a handful of steps for sane reserves.
const stableswapMaxIterations = 255

// StableSwapQuoter prices swaps against two-coin StableSwap pools
// using the Curve invariant with amplification folded as Ann = 4A.
type StableSwapQuoter struct{}

func NewStableSwapQuoter() *StableSwapQuoter {
	return &StableSwapQuoter{}
}

func (q *StableSwapQuoter) SupportsCurve(curve domain.CurveType) bool {
	return curve == domain.CurveStableSwap
}

// GetQuoteExactIn computes the output for an exact-in StableSwap trade.
// Fee-first like the constant product path: the curve only sees effIn.
func (q *StableSwapQuoter) GetQuoteExactIn(pool *domain.Pool, amountIn *big.Int, aToB bool) (*domain.SwapQuote, error) {
	if pool == nil || pool.Curve != domain.CurveStableSwap || pool.AmpFactor == 0 {
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
	defer PutBigInt(effIn)

	ApplyFeeBps(amountIn, pool.FeeRateBps, effIn)
	if effIn.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	ann := GetBigInt().SetUint64(pool.AmpFactor * 4)
	defer PutBigInt(ann)

	d := computeD(reserveIn, reserveOut, ann)
	if d == nil || d.Sign() <= 0 {
		return nil, ErrInvalidPool
	}
	defer PutBigInt(d)

	newIn := GetBigInt().Add(reserveIn, effIn)
	defer PutBigInt(newIn)

	newOut := computeY(newIn, d, ann)
	if newOut == nil {
		return nil, ErrInsufficientLiquidity
	}
	defer PutBigInt(newOut)

	amountOut := new(big.Int).Sub(reserveOut, newOut)
	if amountOut.Sign() <= 0 {
		return nil, ErrInsufficientLiquidity
	}

	priceImpact := stableswapPriceImpact(effIn, amountOut, reserveIn, reserveOut, d, pool.AmpFactor)

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

// computeD finds the StableSwap invariant D for two balances via
// Newton's method:
//
//	D_{k+1} = (Ann*S + 2*D_P) * D / ((Ann-1)*D + 3*D_P)
//	D_P     = D^3 / (4*x*y)
//
// Returns a pooled big.Int the caller must release, or nil if the
// iteration fails to make progress.
func computeD(x, y, ann *big.Int) *big.Int {
	s := GetBigInt().Add(x, y)
	defer PutBigInt(s)
	if s.Sign() == 0 {
		return nil
	}

	d := GetBigInt().Set(s)
	dPrev := GetBigInt()
	dP := GetBigInt()
	num := GetBigInt()
	den := GetBigInt()
	tmp := GetBigInt()
	xy4 := GetBigInt().Mul(x, y)
	xy4.Mul(xy4, FOUR)

	defer func() {
		PutBigInt(dPrev)
		PutBigInt(dP)
		PutBigInt(num)
		PutBigInt(den)
		PutBigInt(tmp)
		PutBigInt(xy4)
	}()

	for i := 0; i < stableswapMaxIterations; i++ {
		// dP = d^3 / (4xy)
		dP.Mul(d, d)
		dP.Mul(dP, d)
		dP.Quo(dP, xy4)

		dPrev.Set(d)

		// num = (Ann*S + 2*dP) * d
		num.Mul(ann, s)
		tmp.Lsh(dP, 1)
		num.Add(num, tmp)
		num.Mul(num, d)

		// den = (Ann-1)*d + 3*dP
		den.Sub(ann, ONE)
		den.Mul(den, d)
		tmp.Mul(dP, THREE)
		den.Add(den, tmp)

		if den.Sign() == 0 {
			return nil
		}
		d.Quo(num, den)

		tmp.Sub(d, dPrev)
		if tmp.CmpAbs(ONE) <= 0 {
			out := GetBigInt().Set(d)
			PutBigInt(d)
			return out
		}
	}

	out := GetBigInt().Set(d)
	PutBigInt(d)
	return out
}

// computeY solves for the post-swap output-side balance given the new
// input-side balance x, holding D constant:
//
//	y_{k+1} = (y^2 + c) / (2y + b - D)
//	c       = D^3 / (4 * x * Ann)
//	b       = x + D/Ann
//
// Returns a pooled big.Int the caller must release, or nil on failure.
func computeY(x, d, ann *big.Int) *big.Int {
	if x.Sign() <= 0 {
		return nil
	}

	c := GetBigInt()
	b := GetBigInt()
	y := GetBigInt().Set(d)
	yPrev := GetBigInt()
	num := GetBigInt()
	den := GetBigInt()
	tmp := GetBigInt()

	defer func() {
		PutBigInt(c)
		PutBigInt(b)
		PutBigInt(yPrev)
		PutBigInt(num)
		PutBigInt(den)
		PutBigInt(tmp)
	}()

	// c = d^3 / (4 * x * ann)
	c.Mul(d, d)
	c.Mul(c, d)
	tmp.Mul(x, ann)
	tmp.Mul(tmp, FOUR)
	if tmp.Sign() == 0 {
		PutBigInt(y)
		return nil
	}
	c.Quo(c, tmp)

	// b = x + d/ann
	b.Quo(d, ann)
	b.Add(b, x)

	for i := 0; i < stableswapMaxIterations; i++ {
		yPrev.Set(y)

		// y = (y^2 + c) / (2y + b - d)
		num.Mul(y, y)
		num.Add(num, c)

		den.Lsh(y, 1)
		den.Add(den, b)
		den.Sub(den, d)
		if den.Sign() <= 0 {
			PutBigInt(y)
			return nil
		}
		y.Quo(num, den)

		tmp.Sub(y, yPrev)
		if tmp.CmpAbs(ONE) <= 0 {
			return y
		}
	}
	return y
}

// stableswapPriceImpact computes impact against the exact pre-swap spot
// price derived from the invariant gradient:
//
//	spot = (16A*x^2*y + D^3) * y / ((16A*x*y^2 + D^3) * x)
//
// with x the input reserve and y the output reserve.
func stableswapPriceImpact(effIn, amountOut, x, y, d *big.Int, amp uint64) uint16 {
	ampTerm := GetBigInt().SetUint64(amp)
	d3 := GetBigInt()
	spotNum := GetBigInt()
	spotDen := GetBigInt()
	tmp := GetBigInt()

	defer func() {
		PutBigInt(ampTerm)
		PutBigInt(d3)
		PutBigInt(spotNum)
		PutBigInt(spotDen)
		PutBigInt(tmp)
	}()

	ampTerm.Mul(ampTerm, SIXTEEN)

	d3.Mul(d, d)
	d3.Mul(d3, d)

	// spotNum = (16A*x^2*y + d^3) * y
	spotNum.Mul(x, x)
	spotNum.Mul(spotNum, y)
	spotNum.Mul(spotNum, ampTerm)
	spotNum.Add(spotNum, d3)
	spotNum.Mul(spotNum, y)

	// spotDen = (16A*x*y^2 + d^3) * x
	spotDen.Mul(y, y)
	spotDen.Mul(spotDen, x)
	spotDen.Mul(spotDen, ampTerm)
	spotDen.Add(spotDen, d3)
	spotDen.Mul(spotDen, x)

	return CalculatePriceImpactRatio(effIn, amountOut, spotNum, spotDen)
}
