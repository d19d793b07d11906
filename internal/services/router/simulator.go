package router

import (
	"math/big"
	"sync/atomic"

	"github.com/gagliardetto/solana-go"

	"github.com/solpath/quote-engine/internal/domain"
	"github.com/solpath/quote-engine/internal/metrics"
)

// simulateCounter for sampling metrics (1/64 calls)
var simulateCounter atomic.Uint64

// Simulator runs exact-in fills along a route, feeding each hop's
// output into the next.
type Simulator struct {
	quoters *QuoterSet
}

func NewSimulator(quoters *QuoterSet) *Simulator {
	if quoters == nil {
		quoters = NewDefaultQuoterSet()
	}
	return &Simulator{quoters: quoters}
}

// SimulateRoute prices amountIn through every hop of the route.
// Per-hop impact comes from the curve quoters; the cumulative figure is
// 1 - product(1 - impact_i) so stacked hops never under-report.
func (s *Simulator) SimulateRoute(route *domain.Route, amountIn *big.Int) (*domain.RouteQuote, error) {
	if route == nil || len(route.Hops) == 0 {
		return nil, ErrNoRouteFound
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, ErrZeroAmount
	}

	sample := simulateCounter.Add(1)&0x3F == 0

	hops := make([]domain.HopQuote, 0, len(route.Hops))
	impacts := make([]uint16, 0, len(route.Hops))
	totalFee := new(big.Int)

	currentAmount := amountIn
	for _, hop := range route.Hops {
		quote, err := s.quoters.GetQuoteExactIn(hop.Pool, currentAmount, hop.AToB)
		if err != nil {
			return nil, err
		}

		hops = append(hops, domain.HopQuote{
			Pool:           hop.Pool,
			AmountIn:       quote.AmountIn,
			AmountOut:      quote.AmountOut,
			FeeAmount:      quote.Fee,
			AToB:           quote.AToB,
			PriceImpactBps: quote.PriceImpactBps,
		})
		impacts = append(impacts, quote.PriceImpactBps)
		totalFee.Add(totalFee, quote.Fee)

		currentAmount = quote.AmountOut
	}

	totalImpact := CombineImpactBps(impacts)

	if sample {
		metrics.PoolsEvaluated.Observe(float64(len(route.Hops)))
		metrics.PriceImpact.
			WithLabelValues(string(GetPriceImpactSeverity(totalImpact))).
			Observe(float64(totalImpact))
	}

	return &domain.RouteQuote{
		Route:          routeMints(route),
		Hops:           hops,
		AmountIn:       amountIn,
		AmountOut:      currentAmount,
		TotalFee:       totalFee,
		PriceImpactBps: totalImpact,
	}, nil
}

func routeMints(route *domain.Route) []solana.PublicKey {
	return route.TokenPath()
}
