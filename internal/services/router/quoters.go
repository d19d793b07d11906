package router

import (
	"math/big"

	"github.com/solpath/quote-engine/internal/domain"
)

// CurveQuoter prices a single-pool exact-in swap for one curve family.
type CurveQuoter interface {
	GetQuoteExactIn(pool *domain.Pool, amountIn *big.Int, aToB bool) (*domain.SwapQuote, error)
	SupportsCurve(curve domain.CurveType) bool
}

// QuoterSet dispatches quote requests to the quoter registered for the
// pool's curve type.
type QuoterSet struct {
	quoters []CurveQuoter
}

// NewQuoterSet creates an empty quoter set.
func NewQuoterSet() *QuoterSet {
	return &QuoterSet{}
}

// NewDefaultQuoterSet returns a set covering every supported curve.
func NewDefaultQuoterSet() *QuoterSet {
	qs := NewQuoterSet()
	qs.Register(NewConstantProductQuoter())
	qs.Register(NewStableSwapQuoter())
	return qs
}

// Register adds a quoter. Registration happens at wiring time only, so
// no locking is needed on the dispatch path.
func (qs *QuoterSet) Register(q CurveQuoter) {
	qs.quoters = append(qs.quoters, q)
}

// quoterFor returns the quoter for a curve, or nil.
func (qs *QuoterSet) quoterFor(curve domain.CurveType) CurveQuoter {
	for _, q := range qs.quoters {
		if q.SupportsCurve(curve) {
			return q
		}
	}
	return nil
}

// GetQuoteExactIn prices amountIn through the pool.
func (qs *QuoterSet) GetQuoteExactIn(pool *domain.Pool, amountIn *big.Int, aToB bool) (*domain.SwapQuote, error) {
	if pool == nil {
		return nil, ErrInvalidPool
	}
	q := qs.quoterFor(pool.Curve)
	if q == nil {
		return nil, ErrUnsupportedCurve
	}
	return q.GetQuoteExactIn(pool, amountIn, aToB)
}

// Supports reports whether a quoter is registered for the curve.
func (qs *QuoterSet) Supports(curve domain.CurveType) bool {
	return qs.quoterFor(curve) != nil
}
