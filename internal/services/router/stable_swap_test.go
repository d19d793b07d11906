package router

import (
	"errors"
	"math/big"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/solpath/quote-engine/internal/domain"
)

func newStablePool(mintA, mintB solana.PublicKey, reserveA, reserveB int64, feeBps uint16, amp uint64) *domain.Pool {
	pool := &domain.Pool{
		Address:    solana.NewWallet().PublicKey(),
		Curve:      domain.CurveStableSwap,
		TokenMintA: mintA,
		TokenMintB: mintB,
		FeeRateBps: feeBps,
		AmpFactor:  amp,
		Active:     true,
		Ready:      true,
	}
	pool.UpdateReserves(big.NewInt(reserveA), big.NewInt(reserveB))
	pool.UpdateFlags()
	return pool
}

func TestComputeDBalanced(t *testing.T) {
	// For equal balances the invariant is exactly x+y regardless of A
	for _, amp := range []uint64{1, 10, 100, 1000} {
		x := big.NewInt(1_000_000)
		ann := new(big.Int).SetUint64(amp * 4)
		d := computeD(x, x, ann)
		if d == nil {
			t.Fatalf("amp=%d: computeD returned nil", amp)
		}
		want := big.NewInt(2_000_000)
		diff := new(big.Int).Sub(d, want)
		if diff.CmpAbs(ONE) > 0 {
			t.Errorf("amp=%d: D = %s, want ~%s", amp, d, want)
		}
		PutBigInt(d)
	}
}

func TestStableSwapNearPegOutput(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newStablePool(mintA, mintB, 1_000_000_000, 1_000_000_000, 0, 100)

	quoter := NewStableSwapQuoter()
	quote, err := quoter.GetQuoteExactIn(pool, big.NewInt(1_000_000), true)
	if err != nil {
		t.Fatalf("quote failed: %v", err)
	}

	// A balanced high-amp pool fills small trades near 1:1
	out := quote.AmountOut.Int64()
	if out < 999_000 || out > 1_000_000 {
		t.Errorf("amountOut = %d, want within [999000, 1000000]", out)
	}
	if quote.PriceImpactBps > 10 {
		t.Errorf("near-peg impact = %d bps, want <= 10", quote.PriceImpactBps)
	}
}

func TestStableSwapBeatsConstantProduct(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()

	stable := newStablePool(mintA, mintB, 1_000_000_000, 1_000_000_000, 30, 100)
	cp := newCPPool(mintA, mintB, 1_000_000_000, 1_000_000_000, 30)

	amountIn := big.NewInt(10_000_000)

	stableQuote, err := NewStableSwapQuoter().GetQuoteExactIn(stable, amountIn, true)
	if err != nil {
		t.Fatal(err)
	}
	cpQuote, err := NewConstantProductQuoter().GetQuoteExactIn(cp, amountIn, true)
	if err != nil {
		t.Fatal(err)
	}

	if stableQuote.AmountOut.Cmp(cpQuote.AmountOut) <= 0 {
		t.Errorf("stable out %s should beat cp out %s on a pegged pair",
			stableQuote.AmountOut, cpQuote.AmountOut)
	}
	if stableQuote.PriceImpactBps >= cpQuote.PriceImpactBps {
		t.Errorf("stable impact %d should be below cp impact %d",
			stableQuote.PriceImpactBps, cpQuote.PriceImpactBps)
	}
}

func TestStableSwapMonotonicity(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newStablePool(mintA, mintB, 1_000_000_000, 1_000_000_000, 30, 50)
	quoter := NewStableSwapQuoter()

	prev := big.NewInt(0)
	for _, in := range []int64{100_000, 1_000_000, 10_000_000, 100_000_000} {
		quote, err := quoter.GetQuoteExactIn(pool, big.NewInt(in), true)
		if err != nil {
			t.Fatalf("in=%d: %v", in, err)
		}
		if quote.AmountOut.Cmp(prev) <= 0 {
			t.Errorf("output not increasing: in=%d out=%s prev=%s", in, quote.AmountOut, prev)
		}
		prev = quote.AmountOut
	}
}

func TestStableSwapOutputNeverExceedsReserve(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newStablePool(mintA, mintB, 1_000_000, 1_000_000, 0, 10)
	quoter := NewStableSwapQuoter()

	// Input far larger than the pool
	quote, err := quoter.GetQuoteExactIn(pool, big.NewInt(100_000_000), true)
	if err != nil {
		// Draining the output side is a legitimate liquidity failure
		if !errors.Is(err, ErrInsufficientLiquidity) {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	if quote.AmountOut.Cmp(pool.ReserveB) >= 0 {
		t.Errorf("amountOut %s must stay below reserveB %s", quote.AmountOut, pool.ReserveB)
	}
}

func TestStableSwapErrors(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	quoter := NewStableSwapQuoter()

	noAmp := newStablePool(mintA, mintB, 1_000_000, 1_000_000, 30, 0)
	if _, err := quoter.GetQuoteExactIn(noAmp, big.NewInt(100), true); !errors.Is(err, ErrInvalidPool) {
		t.Errorf("zero amp: got %v, want ErrInvalidPool", err)
	}

	pool := newStablePool(mintA, mintB, 1_000_000, 1_000_000, 30, 100)
	if _, err := quoter.GetQuoteExactIn(pool, big.NewInt(0), true); !errors.Is(err, ErrZeroAmount) {
		t.Errorf("zero amount: got %v, want ErrZeroAmount", err)
	}

	cp := newCPPool(mintA, mintB, 1_000_000, 1_000_000, 30)
	if _, err := quoter.GetQuoteExactIn(cp, big.NewInt(100), true); !errors.Is(err, ErrInvalidPool) {
		t.Errorf("wrong curve: got %v, want ErrInvalidPool", err)
	}
}

func BenchmarkStableSwapQuote(b *testing.B) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newStablePool(mintA, mintB, 1_000_000_000, 1_000_000_000, 30, 100)
	quoter := NewStableSwapQuoter()
	amountIn := big.NewInt(1_000_000)

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = quoter.GetQuoteExactIn(pool, amountIn, true)
	}
}
