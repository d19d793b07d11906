package aggregator

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solpath/quote-engine/internal/adapters/chain"
	"github.com/solpath/quote-engine/internal/common"
	"github.com/solpath/quote-engine/internal/config"
	"github.com/solpath/quote-engine/internal/domain"
	"github.com/solpath/quote-engine/internal/registry"
	"github.com/solpath/quote-engine/internal/services/market"
	"github.com/solpath/quote-engine/internal/services/router"
)

type fakeSource struct {
	mu     sync.Mutex
	states map[solana.PublicKey]*chain.PoolState
	err    error
}

func (f *fakeSource) FetchPoolStates(ctx context.Context, addresses []solana.PublicKey) (map[solana.PublicKey]*chain.PoolState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[solana.PublicKey]*chain.PoolState, len(addresses))
	for _, addr := range addresses {
		if state, ok := f.states[addr]; ok {
			out[addr] = state
		}
	}
	return out, nil
}

func (f *fakeSource) setState(state *chain.PoolState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.states == nil {
		f.states = make(map[solana.PublicKey]*chain.PoolState)
	}
	f.states[state.Address] = state
}

type fakeBalances struct {
	balance *big.Int
	err     error
}

func (f *fakeBalances) TokenBalance(ctx context.Context, wallet, mint solana.PublicKey) (*big.Int, error) {
	return f.balance, f.err
}

func (f *fakeBalances) WalletBalances(ctx context.Context, wallet solana.PublicKey) (*domain.WalletBalances, error) {
	return nil, errors.New("not implemented")
}

func testConfig() *config.QuoterConfig {
	return &config.QuoterConfig{
		MaxHops:              3,
		MaxCandidates:        10,
		StalenessThresholdMs: 400,
		QuoteTimeoutMs:       500,
		RefreshIntervalMs:    200,
		EvictAfterMisses:     3,
		DefaultSlippageBps:   50,
	}
}

func newCPPool(mintA, mintB solana.PublicKey, reserveA, reserveB uint64, feeBps uint16) *domain.Pool {
	pool := &domain.Pool{
		Address:       solana.NewWallet().PublicKey(),
		Curve:         domain.CurveConstantProduct,
		TokenMintA:    mintA,
		TokenMintB:    mintB,
		TokenVaultA:   solana.NewWallet().PublicKey(),
		TokenVaultB:   solana.NewWallet().PublicKey(),
		FeeRateBps:    feeBps,
		Active:        true,
		Ready:         true,
		LastRefreshed: time.Now(),
	}
	pool.UpdateReserves(new(big.Int).SetUint64(reserveA), new(big.Int).SetUint64(reserveB))
	pool.UpdateFlags()
	return pool
}

func newTestService(t *testing.T, source *fakeSource, pools ...*domain.Pool) (*Service, *registry.Registry) {
	t.Helper()

	reg := &registry.Registry{}
	require.NoError(t, reg.Configure(nil))
	t.Cleanup(func() { _ = reg.Stop() })
	reg.UpsertBatch(pools)

	if source == nil {
		source = &fakeSource{}
	}

	cfg := testConfig()
	svc := &Service{
		config:    cfg,
		registry:  reg,
		refresher: market.NewRefresher(source, reg, cfg.EvictAfterMisses),
		finder:    router.NewRouteFinder(cfg.MaxHops, cfg.MaxCandidates),
		simulator: router.NewSimulator(nil),
	}
	svc.logger = common.NewServiceLogger(svc)
	return svc, reg
}

func quoteReq(in, out solana.PublicKey, amount int64) *domain.QuoteRequest {
	return &domain.QuoteRequest{
		InputMint:  in,
		OutputMint: out,
		AmountIn:   big.NewInt(amount),
	}
}

func TestQuoteDirectRoute(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newCPPool(mintA, mintB, 1_000_000, 500_000, 30)

	svc, _ := newTestService(t, nil, pool)

	quote, err := svc.Quote(context.Background(), quoteReq(mintA, mintB, 10_000))
	require.NoError(t, err)

	assert.Equal(t, big.NewInt(4935), quote.AmountOut)
	assert.Equal(t, uint16(50), quote.SlippageBps)
	assert.Equal(t, big.NewInt(4910), quote.MinAmountOut)
	// 30 bps on 10_000 in.
	assert.Equal(t, big.NewInt(30), quote.TotalFee)
	assert.Equal(t, uint16(100), quote.PriceImpactBps)
	assert.Equal(t, []solana.PublicKey{mintA, mintB}, quote.Route)
	assert.Len(t, quote.Hops, 1)
	assert.False(t, quote.ExecutableKnown)
}

func TestQuotePicksLargestOutput(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()

	// Shallow direct pool loses to a deep two-hop path.
	direct := newCPPool(mintA, mintC, 10_000, 5_000, 30)
	hop1 := newCPPool(mintA, mintB, 100_000_000, 100_000_000, 30)
	hop2 := newCPPool(mintB, mintC, 100_000_000, 100_000_000, 30)

	svc, _ := newTestService(t, nil, direct, hop1, hop2)

	quote, err := svc.Quote(context.Background(), quoteReq(mintA, mintC, 10_000))
	require.NoError(t, err)

	assert.Len(t, quote.Hops, 2)
	assert.Equal(t, []solana.PublicKey{mintA, mintB, mintC}, quote.Route)
	assert.Equal(t, 2, quote.CandidateCount)

	directOut := new(big.Int).Mul(big.NewInt(9_970), big.NewInt(5_000))
	directOut.Div(directOut, big.NewInt(10_000+9_970))
	assert.Greater(t, quote.AmountOut.Int64(), directOut.Int64())
}

func TestQuoteRefreshesStaleState(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newCPPool(mintA, mintB, 1_000_000, 500_000, 30)
	pool.LastRefreshed = time.Now().Add(-2 * time.Second)

	source := &fakeSource{}
	source.setState(&chain.PoolState{
		Address:     pool.Address,
		TokenMintA:  mintA,
		TokenMintB:  mintB,
		TokenVaultA: pool.TokenVaultA,
		TokenVaultB: pool.TokenVaultB,
		ReserveA:    2_000_000,
		ReserveB:    1_000_000,
		FeeRateBps:  30,
		Curve:       domain.CurveConstantProduct,
	})

	svc, reg := newTestService(t, source, pool)

	quote, err := svc.Quote(context.Background(), quoteReq(mintA, mintB, 10_000))
	require.NoError(t, err)

	// Doubled reserves halve the impact; the fill must come from the
	// refreshed state, not the stale one.
	refreshed := reg.Pool(pool.Address)
	require.NotNil(t, refreshed)
	assert.Equal(t, uint64(2_000_000), refreshed.ReserveAU64)
	assert.Greater(t, quote.AmountOut.Int64(), int64(4935))
}

func TestQuoteRejectsUnrefreshableStaleState(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newCPPool(mintA, mintB, 1_000_000, 500_000, 30)
	pool.LastRefreshed = time.Now().Add(-2 * time.Second)

	source := &fakeSource{err: errors.New("rpc down")}
	svc, _ := newTestService(t, source, pool)

	_, err := svc.Quote(context.Background(), quoteReq(mintA, mintB, 10_000))
	require.ErrorIs(t, err, ErrStaleDataRejected)
}

func TestQuoteSurvivesStaleAlternativeRoute(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()

	direct := newCPPool(mintA, mintB, 1_000_000, 500_000, 30)
	legAC := newCPPool(mintA, mintC, 100_000_000, 100_000_000, 30)
	legCB := newCPPool(mintC, mintB, 100_000_000, 100_000_000, 30)
	legAC.LastRefreshed = time.Now().Add(-2 * time.Second)
	legCB.LastRefreshed = time.Now().Add(-2 * time.Second)

	// The two-hop candidate is stale and its refresh fails. The fresh
	// direct pool must still serve the quote.
	source := &fakeSource{err: errors.New("rpc down")}
	svc, _ := newTestService(t, source, direct, legAC, legCB)

	quote, err := svc.Quote(context.Background(), quoteReq(mintA, mintB, 10_000))
	require.NoError(t, err)

	assert.Equal(t, []solana.PublicKey{mintA, mintB}, quote.Route)
	assert.Equal(t, big.NewInt(4935), quote.AmountOut)
}

func TestQuoteNoRoute(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()
	pool := newCPPool(mintA, mintB, 1_000_000, 500_000, 30)

	svc, _ := newTestService(t, nil, pool)

	_, err := svc.Quote(context.Background(), quoteReq(mintA, mintC, 10_000))
	require.ErrorIs(t, err, router.ErrNoRouteFound)
}

func TestQuoteZeroAmount(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newCPPool(mintA, mintB, 1_000_000, 500_000, 30)

	svc, _ := newTestService(t, nil, pool)

	_, err := svc.Quote(context.Background(), quoteReq(mintA, mintB, 0))
	require.ErrorIs(t, err, router.ErrZeroAmount)

	_, err = svc.Quote(context.Background(), &domain.QuoteRequest{InputMint: mintA, OutputMint: mintB})
	require.ErrorIs(t, err, router.ErrZeroAmount)
}

func TestQuoteHonorsRequestSlippage(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newCPPool(mintA, mintB, 1_000_000, 500_000, 30)

	svc, _ := newTestService(t, nil, pool)

	req := quoteReq(mintA, mintB, 10_000)
	req.SlippageBps = 100
	quote, err := svc.Quote(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, uint16(100), quote.SlippageBps)
	// 4935 * 9900 / 10000 = 4885 floored
	assert.Equal(t, big.NewInt(4885), quote.MinAmountOut)
}

func TestQuoteExecutableFlag(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	wallet := solana.NewWallet().PublicKey()
	pool := newCPPool(mintA, mintB, 1_000_000, 500_000, 30)

	cases := []struct {
		name       string
		balance    *big.Int
		err        error
		executable bool
		known      bool
	}{
		{"funded", big.NewInt(20_000), nil, true, true},
		{"exact", big.NewInt(10_000), nil, true, true},
		{"underfunded", big.NewInt(9_999), nil, false, true},
		{"lookup failed", nil, errors.New("rpc down"), false, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, _ := newTestService(t, nil, pool)
			svc.balances = &fakeBalances{balance: tc.balance, err: tc.err}

			req := quoteReq(mintA, mintB, 10_000)
			req.UserWallet = wallet
			req.HasWallet = true

			quote, err := svc.Quote(context.Background(), req)
			require.NoError(t, err)
			assert.Equal(t, tc.known, quote.ExecutableKnown)
			assert.Equal(t, tc.executable, quote.Executable)
		})
	}
}

func TestQuoteTimeoutWithNoResult(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newCPPool(mintA, mintB, 1_000_000, 500_000, 30)

	svc, _ := newTestService(t, nil, pool)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Quote(ctx, quoteReq(mintA, mintB, 10_000))
	require.ErrorIs(t, err, ErrQuoteTimeout)
}
