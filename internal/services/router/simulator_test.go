package router

import (
	"errors"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/solpath/quote-engine/internal/domain"
)

func TestSimulateRouteSingleHop(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newCPPool(mintA, mintB, 1_000_000, 500_000, 30)

	sim := NewSimulator(nil)
	route := &domain.Route{
		InputMint:  mintA,
		OutputMint: mintB,
		Hops:       []domain.RouteHop{{Pool: pool, AToB: true}},
	}

	quote, err := sim.SimulateRoute(route, big.NewInt(10_000))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if quote.AmountOut.Int64() != 4935 {
		t.Errorf("amountOut = %s, want 4935", quote.AmountOut)
	}
	if quote.PriceImpactBps != 100 {
		t.Errorf("impact = %d, want 100", quote.PriceImpactBps)
	}
	if len(quote.Hops) != 1 {
		t.Fatalf("got %d hop quotes, want 1", len(quote.Hops))
	}
	if len(quote.Route) != 2 || !quote.Route[0].Equals(mintA) || !quote.Route[1].Equals(mintB) {
		t.Errorf("route mints = %v, want [A B]", quote.Route)
	}
}

func TestSimulateRouteChainsHops(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()

	legAC := newCPPool(mintA, mintC, 1_000_000, 1_000_000, 30)
	legCB := newCPPool(mintC, mintB, 1_000_000, 1_000_000, 30)

	sim := NewSimulator(NewDefaultQuoterSet())
	route := &domain.Route{
		InputMint:  mintA,
		OutputMint: mintB,
		Hops: []domain.RouteHop{
			{Pool: legAC, AToB: true},
			{Pool: legCB, AToB: true},
		},
	}

	quote, err := sim.SimulateRoute(route, big.NewInt(10_000))
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}

	// Hop outputs must chain
	if quote.Hops[1].AmountIn.Cmp(quote.Hops[0].AmountOut) != 0 {
		t.Errorf("hop 2 in %s != hop 1 out %s", quote.Hops[1].AmountIn, quote.Hops[0].AmountOut)
	}
	if quote.AmountOut.Cmp(quote.Hops[1].AmountOut) != 0 {
		t.Errorf("route out %s != last hop out %s", quote.AmountOut, quote.Hops[1].AmountOut)
	}

	// Cumulative impact is at least each single hop's impact
	for i, hop := range quote.Hops {
		if quote.PriceImpactBps < hop.PriceImpactBps {
			t.Errorf("cumulative impact %d below hop %d impact %d",
				quote.PriceImpactBps, i, hop.PriceImpactBps)
		}
	}

	// Two 30bps-fee hops must fill worse than one
	single := newCPPool(mintA, mintB, 1_000_000, 1_000_000, 30)
	directQuote, err := sim.SimulateRoute(&domain.Route{
		InputMint:  mintA,
		OutputMint: mintB,
		Hops:       []domain.RouteHop{{Pool: single, AToB: true}},
	}, big.NewInt(10_000))
	if err != nil {
		t.Fatal(err)
	}
	if quote.AmountOut.Cmp(directQuote.AmountOut) >= 0 {
		t.Errorf("two-hop out %s should trail direct out %s", quote.AmountOut, directQuote.AmountOut)
	}
}

func TestSimulateRouteMixedCurves(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()

	cpLeg := newCPPool(mintA, mintC, 10_000_000, 10_000_000, 30)
	stableLeg := newStablePool(mintC, mintB, 10_000_000, 10_000_000, 10, 100)

	sim := NewSimulator(nil)
	route := &domain.Route{
		InputMint:  mintA,
		OutputMint: mintB,
		Hops: []domain.RouteHop{
			{Pool: cpLeg, AToB: true},
			{Pool: stableLeg, AToB: true},
		},
	}

	quote, err := sim.SimulateRoute(route, big.NewInt(100_000))
	if err != nil {
		t.Fatalf("simulate mixed route: %v", err)
	}
	if quote.AmountOut.Sign() <= 0 {
		t.Error("mixed route produced no output")
	}
}

func TestSimulateRouteErrors(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newCPPool(mintA, mintB, 1_000_000, 500_000, 30)
	sim := NewSimulator(nil)

	route := &domain.Route{
		InputMint:  mintA,
		OutputMint: mintB,
		Hops:       []domain.RouteHop{{Pool: pool, AToB: true}},
	}

	if _, err := sim.SimulateRoute(route, big.NewInt(0)); !errors.Is(err, ErrZeroAmount) {
		t.Errorf("zero amount: got %v, want ErrZeroAmount", err)
	}
	if _, err := sim.SimulateRoute(nil, big.NewInt(100)); !errors.Is(err, ErrNoRouteFound) {
		t.Errorf("nil route: got %v, want ErrNoRouteFound", err)
	}

	// A drained second hop surfaces as insufficient liquidity
	drained := newCPPool(mintB, mintA, 1_000_000_000_000, 2, 30)
	badRoute := &domain.Route{
		InputMint:  mintA,
		OutputMint: mintB,
		Hops: []domain.RouteHop{
			{Pool: pool, AToB: true},
			{Pool: drained, AToB: true},
		},
	}
	if _, err := sim.SimulateRoute(badRoute, big.NewInt(10)); err == nil {
		t.Error("expected error from drained hop")
	}
}

func BenchmarkSimulateTwoHopRoute(b *testing.B) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()

	route := &domain.Route{
		InputMint:  mintA,
		OutputMint: mintB,
		Hops: []domain.RouteHop{
			{Pool: newCPPool(mintA, mintC, 1_000_000_000, 1_000_000_000, 30), AToB: true},
			{Pool: newCPPool(mintC, mintB, 1_000_000_000, 1_000_000_000, 30), AToB: true},
		},
	}
	sim := NewSimulator(nil)
	amountIn := big.NewInt(1_000_000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = sim.SimulateRoute(route, amountIn)
	}
}
