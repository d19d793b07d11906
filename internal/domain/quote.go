package domain

import (
	"math/big"

	"github.com/gagliardetto/solana-go"
)

// RouteHop is one pool traversal within a candidate route, oriented by
// swap direction.
type RouteHop struct {
	Pool *Pool
	AToB bool
}

// Route is an ordered pool path from an input mint to an output mint.
type Route struct {
	InputMint  solana.PublicKey
	OutputMint solana.PublicKey
	Hops       []RouteHop
}

// TokenPath returns the mint sequence the route traverses, input first.
func (r *Route) TokenPath() []solana.PublicKey {
	path := make([]solana.PublicKey, 0, len(r.Hops)+1)
	path = append(path, r.InputMint)
	for _, hop := range r.Hops {
		path = append(path, hop.Pool.OutputMint(hop.AToB))
	}
	return path
}

type SwapQuote struct {
	AmountIn       *big.Int
	AmountOut      *big.Int
	PriceImpactBps uint16
	Fee            *big.Int
	Pool           *Pool
	AToB           bool
}

type HopQuote struct {
	Pool           *Pool
	AmountIn       *big.Int
	AmountOut      *big.Int
	FeeAmount      *big.Int
	AToB           bool
	PriceImpactBps uint16
}

// RouteQuote is a fully simulated route: per-hop fills plus the
// cumulative figures the aggregator ranks on.
type RouteQuote struct {
	Route          []solana.PublicKey
	Hops           []HopQuote
	AmountIn       *big.Int
	AmountOut      *big.Int
	TotalFee       *big.Int
	PriceImpactBps uint16
}

// AggregatedQuote is the final answer handed to callers: the winning
// route plus execution guards.
type AggregatedQuote struct {
	InputMint      solana.PublicKey
	OutputMint     solana.PublicKey
	AmountIn       *big.Int
	AmountOut      *big.Int
	MinAmountOut   *big.Int
	TotalFee       *big.Int
	SlippageBps    uint16
	PriceImpactBps uint16
	Route          []solana.PublicKey
	Hops           []HopQuote
	CandidateCount int
	Executable     bool
	// ExecutableKnown is false when the balance lookup failed and the
	// Executable flag carries no information.
	ExecutableKnown bool
}
