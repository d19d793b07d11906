package market

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/solpath/quote-engine/internal/adapters/chain"
	"github.com/solpath/quote-engine/internal/domain"
	"github.com/solpath/quote-engine/internal/metrics"
	"github.com/solpath/quote-engine/internal/registry"
)

// Refresher pulls fresh reserve state from the chain into the registry.
// Concurrent callers asking for the same pool share a single fetch.
// A pool whose account stops decoding or disappears is evicted after
// evictAfterMisses consecutive missed cycles.
type Refresher struct {
	source   chain.PoolStateSource
	registry *registry.Registry

	evictAfterMisses int

	group singleflight.Group

	missMu sync.Mutex
	misses map[solana.PublicKey]int

	// onApplied fires after a successful state apply, onEvicted after an
	// eviction. Both optional.
	onApplied func(*domain.Pool)
	onEvicted func(solana.PublicKey)
}

func NewRefresher(source chain.PoolStateSource, reg *registry.Registry, evictAfterMisses int) *Refresher {
	if evictAfterMisses <= 0 {
		evictAfterMisses = 3
	}
	return &Refresher{
		source:           source,
		registry:         reg,
		evictAfterMisses: evictAfterMisses,
		misses:           make(map[solana.PublicKey]int),
	}
}

// RefreshPool fetches one pool's current state. Concurrent calls for the
// same address collapse into one chain request. The shared fetch runs
// detached from the caller's context so one cancelled request cannot
// poison the result the other callers are waiting on; the chain client's
// own timeout still bounds it. On failure the pool keeps its previous
// state and ErrDataFeedUnavailable is returned.
func (r *Refresher) RefreshPool(ctx context.Context, address solana.PublicKey) error {
	ch := r.group.DoChan(address.String(), func() (interface{}, error) {
		return nil, r.refreshOne(context.WithoutCancel(ctx), address)
	})

	select {
	case res := <-ch:
		if res.Shared {
			metrics.RefreshDeduped.Inc()
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefreshPools refreshes the given pools concurrently, still one chain
// request per pool across all callers. Returns the first failure.
func (r *Refresher) RefreshPools(ctx context.Context, addresses []solana.PublicKey) error {
	if len(addresses) == 0 {
		return nil
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, address := range addresses {
		address := address
		g.Go(func() error {
			return r.RefreshPool(ctx, address)
		})
	}
	return g.Wait()
}

// RefreshAll runs one background refresh cycle over every tracked pool
// using batched account fetches.
func (r *Refresher) RefreshAll(ctx context.Context) error {
	pools := r.registry.AllPools()
	if len(pools) == 0 {
		return nil
	}

	addresses := make([]solana.PublicKey, len(pools))
	for i, pool := range pools {
		addresses[i] = pool.Address
	}

	start := time.Now()
	states, err := r.source.FetchPoolStates(ctx, addresses)
	if err != nil {
		metrics.RefreshRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %v", ErrDataFeedUnavailable, err)
	}
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	now := time.Now()
	applied := 0
	missed := 0
	for _, address := range addresses {
		state, ok := states[address]
		if !ok {
			r.recordMiss(address)
			missed++
			continue
		}
		r.apply(state, now)
		applied++
	}

	metrics.RefreshRequests.WithLabelValues("ok").Inc()
	log.Debug().
		Int("applied", applied).
		Int("missed", missed).
		Dur("took", time.Since(start)).
		Msg("[refresher] cycle complete")
	return nil
}

func (r *Refresher) refreshOne(ctx context.Context, address solana.PublicKey) error {
	start := time.Now()
	states, err := r.source.FetchPoolStates(ctx, []solana.PublicKey{address})
	if err != nil {
		metrics.RefreshRequests.WithLabelValues("error").Inc()
		return fmt.Errorf("%w: %v", ErrDataFeedUnavailable, err)
	}
	metrics.RefreshDuration.Observe(time.Since(start).Seconds())

	state, ok := states[address]
	if !ok {
		r.recordMiss(address)
		metrics.RefreshRequests.WithLabelValues("miss").Inc()
		return ErrDataFeedUnavailable
	}

	r.apply(state, time.Now())
	metrics.RefreshRequests.WithLabelValues("ok").Inc()
	return nil
}

// apply replaces the registry's pool with a fresh copy. Pools already
// captured in published snapshots are never mutated in place.
func (r *Refresher) apply(state *chain.PoolState, now time.Time) {
	pool := &domain.Pool{
		Address:       state.Address,
		Curve:         state.Curve,
		TokenMintA:    state.TokenMintA,
		TokenMintB:    state.TokenMintB,
		TokenVaultA:   state.TokenVaultA,
		TokenVaultB:   state.TokenVaultB,
		FeeRateBps:    state.FeeRateBps,
		AmpFactor:     state.AmpFactor,
		Active:        true,
		Ready:         state.ReserveA > 0 && state.ReserveB > 0,
		LastRefreshed: now,
	}
	if existing := r.registry.PoolMutable(state.Address); existing != nil {
		pool.ProgramID = existing.ProgramID
		pool.Active = existing.Active
	}
	pool.UpdateReserves(
		new(big.Int).SetUint64(state.ReserveA),
		new(big.Int).SetUint64(state.ReserveB),
	)
	pool.UpdateFlags()

	r.registry.Upsert(pool)
	r.missMu.Lock()
	delete(r.misses, state.Address)
	r.missMu.Unlock()
	if r.onApplied != nil {
		r.onApplied(pool)
	}
}

// recordMiss counts a consecutive missed cycle and evicts the pool once
// the threshold is reached.
func (r *Refresher) recordMiss(address solana.PublicKey) {
	if r.registry.PoolMutable(address) == nil {
		return
	}

	r.missMu.Lock()
	r.misses[address]++
	count := r.misses[address]
	r.missMu.Unlock()

	if count >= r.evictAfterMisses {
		r.evict(address)
	}
}

func (r *Refresher) evict(address solana.PublicKey) {
	r.registry.Remove(address)
	r.missMu.Lock()
	delete(r.misses, address)
	r.missMu.Unlock()
	metrics.PoolsEvicted.Inc()
	log.Warn().Str("pool", address.String()).Msg("[refresher] pool evicted after repeated missed refreshes")
	if r.onEvicted != nil {
		r.onEvicted(address)
	}
}

// MissCount reports the current consecutive miss count for a pool.
func (r *Refresher) MissCount(address solana.PublicKey) int {
	r.missMu.Lock()
	defer r.missMu.Unlock()
	return r.misses[address]
}
