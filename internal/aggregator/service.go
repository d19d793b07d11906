// Package aggregator turns route candidates into a single best quote:
// it enforces data freshness, simulates every candidate under the
// request deadline and picks the winner.
package aggregator

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/solpath/quote-engine/internal/adapters/balance"
	"github.com/solpath/quote-engine/internal/common"
	"github.com/solpath/quote-engine/internal/config"
	"github.com/solpath/quote-engine/internal/domain"
	"github.com/solpath/quote-engine/internal/metrics"
	"github.com/solpath/quote-engine/internal/registry"
	"github.com/solpath/quote-engine/internal/services/market"
	"github.com/solpath/quote-engine/internal/services/router"
)

const (
	AGGREGATOR_SERVICE = "aggregator.QuoteAggregator"
)

// Service is the quote aggregator.
type Service struct {
	container *container.DIContainer
	logger    *common.ServiceLogger

	config    *config.QuoterConfig
	registry  *registry.Registry
	marketSvc *market.Service
	refresher *market.Refresher

	finder    *router.RouteFinder
	simulator *router.Simulator
	balances  balance.Provider
}

func (svc *Service) ID() string {
	return AGGREGATOR_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.logger = common.NewServiceLogger(svc)
	svc.config = c.GetConfig(config.QUOTER_CONFIG_KEY).(*config.QuoterConfig)
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)

	svc.registry = c.Instance(registry.REGISTRY_SERVICE).(*registry.Registry)
	svc.marketSvc = c.Instance(market.MARKET_SERVICE).(*market.Service)
	svc.refresher = svc.marketSvc.Refresher()

	svc.finder = router.NewRouteFinder(svc.config.MaxHops, svc.config.MaxCandidates)
	svc.simulator = router.NewSimulator(router.NewDefaultQuoterSet())

	if svc.balances == nil {
		svc.balances = balance.NewRPCProvider(rpcConfig)
	}

	return nil
}

func (svc *Service) Start() error {
	return nil
}

func (svc *Service) Stop() error {
	return nil
}

// Quote runs the full pipeline: discover candidates, force-refresh any
// stale pool state, simulate every candidate within the deadline and
// return the best fill.
func (svc *Service) Quote(ctx context.Context, req *domain.QuoteRequest) (*domain.AggregatedQuote, error) {
	start := time.Now()

	quote, err := svc.quote(ctx, req)

	metrics.QuoteDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.QuoteRequests.WithLabelValues("error").Inc()
		return nil, err
	}
	metrics.QuoteRequests.WithLabelValues("ok").Inc()
	return quote, nil
}

func (svc *Service) quote(ctx context.Context, req *domain.QuoteRequest) (*domain.AggregatedQuote, error) {
	if req == nil || req.AmountIn == nil || req.AmountIn.Sign() <= 0 {
		return nil, router.ErrZeroAmount
	}

	slippageBps := req.SlippageBps
	if slippageBps == 0 {
		slippageBps = uint16(svc.config.DefaultSlippageBps)
	}
	maxHops := req.MaxHops
	if maxHops <= 0 {
		maxHops = svc.config.MaxHops
	}

	ctx, cancel := context.WithTimeout(ctx, svc.config.QuoteTimeout())
	defer cancel()

	snap := svc.registry.Snapshot()
	routes, err := svc.finder.FindRoutes(snap, req.InputMint, req.OutputMint, maxHops)
	if err != nil {
		return nil, err
	}

	// Stale pool state never serves a quote. Refresh what the candidate
	// routes touch, then re-discover on the fresh snapshot. A failed
	// refresh only disqualifies the routes that still touch stale state;
	// fully fresh candidates keep competing.
	if stale := svc.stalePools(routes, time.Now()); len(stale) > 0 {
		refreshErr := svc.refresher.RefreshPools(ctx, stale)
		if refreshErr == nil {
			svc.registry.RefreshSnapshot()
			snap = svc.registry.Snapshot()
			routes, err = svc.finder.FindRoutes(snap, req.InputMint, req.OutputMint, maxHops)
			if err != nil {
				return nil, err
			}
		}
		routes = svc.freshRoutes(routes, time.Now())
		if len(routes) == 0 {
			metrics.StaleQuoteRejections.Inc()
			if refreshErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrStaleDataRejected, refreshErr)
			}
			return nil, ErrStaleDataRejected
		}
	}

	metrics.RouteCandidates.Observe(float64(len(routes)))
	svc.logger.Info(fmt.Sprintf("discovered %d candidate routes", len(routes)), "Quote")

	best, evaluated, timedOut := svc.simulateCandidates(ctx, routes, req.AmountIn)
	if best == nil {
		if timedOut {
			metrics.QuoteTimeouts.Inc()
			return nil, ErrQuoteTimeout
		}
		return nil, router.ErrInsufficientLiquidity
	}
	if timedOut {
		metrics.QuoteTimeouts.Inc()
		log.Debug().
			Int("evaluated", evaluated).
			Int("candidates", len(routes)).
			Msg("[aggregator] deadline hit, returning best-so-far")
	}

	result := &domain.AggregatedQuote{
		InputMint:      req.InputMint,
		OutputMint:     req.OutputMint,
		AmountIn:       req.AmountIn,
		AmountOut:      best.AmountOut,
		MinAmountOut:   minAmountOut(best.AmountOut, slippageBps),
		TotalFee:       best.TotalFee,
		SlippageBps:    slippageBps,
		PriceImpactBps: best.PriceImpactBps,
		Route:          best.Route,
		Hops:           best.Hops,
		CandidateCount: len(routes),
	}

	if req.HasWallet {
		svc.markExecutable(ctx, req, result)
	}

	return result, nil
}

// simulateCandidates runs every candidate through the simulator until
// done or the deadline hits, keeping the best fill seen so far.
func (svc *Service) simulateCandidates(ctx context.Context, routes []*domain.Route, amountIn *big.Int) (best *domain.RouteQuote, evaluated int, timedOut bool) {
	for _, route := range routes {
		select {
		case <-ctx.Done():
			return best, evaluated, true
		default:
		}

		quote, err := svc.simulator.SimulateRoute(route, amountIn)
		evaluated++
		if err != nil {
			// One dead pool must not sink the request.
			continue
		}

		if better(quote, best) {
			best = quote
		}
	}
	return best, evaluated, false
}

// better ranks by output amount, then hop count, then price impact.
func better(candidate, current *domain.RouteQuote) bool {
	if current == nil {
		return true
	}
	switch candidate.AmountOut.Cmp(current.AmountOut) {
	case 1:
		return true
	case -1:
		return false
	}
	if len(candidate.Hops) != len(current.Hops) {
		return len(candidate.Hops) < len(current.Hops)
	}
	return candidate.PriceImpactBps < current.PriceImpactBps
}

// stalePools collects the distinct pools across candidate routes whose
// state is older than the staleness threshold.
func (svc *Service) stalePools(routes []*domain.Route, now time.Time) []solana.PublicKey {
	threshold := svc.config.StalenessThreshold()
	seen := make(map[solana.PublicKey]struct{})
	var stale []solana.PublicKey

	for _, route := range routes {
		for _, hop := range route.Hops {
			if _, dup := seen[hop.Pool.Address]; dup {
				continue
			}
			seen[hop.Pool.Address] = struct{}{}
			if hop.Pool.IsStale(threshold, now) {
				stale = append(stale, hop.Pool.Address)
			}
		}
	}
	return stale
}

// freshRoutes keeps only the routes whose every hop is within the
// staleness threshold.
func (svc *Service) freshRoutes(routes []*domain.Route, now time.Time) []*domain.Route {
	threshold := svc.config.StalenessThreshold()
	fresh := routes[:0]

	for _, route := range routes {
		usable := true
		for _, hop := range route.Hops {
			if hop.Pool.IsStale(threshold, now) {
				usable = false
				break
			}
		}
		if usable {
			fresh = append(fresh, route)
		}
	}
	return fresh
}

// markExecutable checks whether the wallet can fund the swap. A failed
// lookup leaves ExecutableKnown false and the quote still goes out.
func (svc *Service) markExecutable(ctx context.Context, req *domain.QuoteRequest, quote *domain.AggregatedQuote) {
	bal, err := svc.balances.TokenBalance(ctx, req.UserWallet, req.InputMint)
	if err != nil {
		log.Debug().Err(err).Str("wallet", req.UserWallet.String()).Msg("[aggregator] balance lookup failed")
		return
	}
	quote.ExecutableKnown = true
	quote.Executable = bal.Cmp(req.AmountIn) >= 0
}

func minAmountOut(amountOut *big.Int, slippageBps uint16) *big.Int {
	out := new(big.Int).Mul(amountOut, big.NewInt(int64(common.BpsDenominator-int(slippageBps))))
	return out.Div(out, big.NewInt(common.BpsDenominator))
}
