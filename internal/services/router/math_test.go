package router

import (
	"math"
	"math/big"
	"testing"
)

func TestApplyFeeBps(t *testing.T) {
	tests := []struct {
		name     string
		amountIn *big.Int
		feeBps   uint16
		want     string
	}{
		{"30 bps", big.NewInt(10_000), 30, "9970"},
		{"zero fee", big.NewInt(10_000), 0, "10000"},
		{"full fee", big.NewInt(10_000), 10_000, "0"},
		{"rounds down", big.NewInt(3), 30, "2"},
		{"max uint64", new(big.Int).SetUint64(math.MaxUint64), 30, ""},
		{"beyond uint64", new(big.Int).Lsh(big.NewInt(1), 80), 25, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ApplyFeeBps(tt.amountIn, tt.feeBps, new(big.Int))

			// The fast path must agree with plain big.Int arithmetic.
			want := new(big.Int).Mul(tt.amountIn, big.NewInt(int64(10_000-int(tt.feeBps))))
			want.Quo(want, BPS_DENOM)
			if got.Cmp(want) != 0 {
				t.Fatalf("ApplyFeeBps(%s, %d) = %s, want %s", tt.amountIn, tt.feeBps, got, want)
			}
			if tt.want != "" && got.String() != tt.want {
				t.Fatalf("ApplyFeeBps(%s, %d) = %s, want %s", tt.amountIn, tt.feeBps, got, tt.want)
			}
		})
	}
}

func TestMulDivBig(t *testing.T) {
	maxU64 := new(big.Int).SetUint64(math.MaxUint64)

	tests := []struct {
		name    string
		a, b, c *big.Int
	}{
		{"small", big.NewInt(7), big.NewInt(9), big.NewInt(4)},
		{"exact", big.NewInt(100), big.NewInt(50), big.NewInt(25)},
		{"product above uint64", maxU64, maxU64, big.NewInt(3)},
		{"quotient above uint64", maxU64, maxU64, big.NewInt(1)},
		{"operand above uint64", new(big.Int).Lsh(big.NewInt(1), 70), big.NewInt(3), big.NewInt(7)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MulDivBig(tt.a, tt.b, tt.c, new(big.Int))

			want := new(big.Int).Mul(tt.a, tt.b)
			want.Quo(want, tt.c)
			if got.Cmp(want) != 0 {
				t.Fatalf("MulDivBig(%s, %s, %s) = %s, want %s", tt.a, tt.b, tt.c, got, want)
			}
		})
	}
}

func TestMulDivBigZeroDenominator(t *testing.T) {
	got := MulDivBig(big.NewInt(5), big.NewInt(7), big.NewInt(0), big.NewInt(99))
	if got.Sign() != 0 {
		t.Fatalf("expected 0 on zero denominator, got %s", got)
	}
}

func BenchmarkApplyFeeBps(b *testing.B) {
	amountIn := big.NewInt(1_000_000_000)
	out := new(big.Int)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ApplyFeeBps(amountIn, 30, out)
	}
}

func BenchmarkMulDivBig(b *testing.B) {
	x := big.NewInt(997_000_000)
	y := big.NewInt(500_000_000)
	z := big.NewInt(1_000_997_000)
	out := new(big.Int)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		MulDivBig(x, y, z, out)
	}
}
