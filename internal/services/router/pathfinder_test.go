package router

import (
	"errors"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/solpath/quote-engine/internal/domain"
	"github.com/solpath/quote-engine/internal/registry"
)

func newTestRegistry(t testing.TB, pools ...*domain.Pool) *registry.Registry {
	t.Helper()
	reg := &registry.Registry{}
	if err := reg.Configure(nil); err != nil {
		t.Fatalf("configure registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Stop() })
	reg.UpsertBatch(pools)
	return reg
}

func TestFindRoutesDirectFirst(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()

	direct := newCPPool(mintA, mintB, 1_000, 1_000, 30)
	// A much deeper two-hop path through C
	legAC := newCPPool(mintA, mintC, 1_000_000_000, 1_000_000_000, 30)
	legCB := newCPPool(mintC, mintB, 1_000_000_000, 1_000_000_000, 30)

	reg := newTestRegistry(t, direct, legAC, legCB)
	finder := NewRouteFinder(3, 10)

	routes, err := finder.FindRoutes(reg.Snapshot(), mintA, mintB, 0)
	if err != nil {
		t.Fatalf("FindRoutes: %v", err)
	}
	if len(routes) != 2 {
		t.Fatalf("got %d routes, want 2", len(routes))
	}
	if len(routes[0].Hops) != 1 {
		t.Errorf("first route should be the direct pair, got %d hops", len(routes[0].Hops))
	}
	if !routes[0].Hops[0].Pool.Address.Equals(direct.Address) {
		t.Errorf("first route uses pool %s, want direct pool %s",
			routes[0].Hops[0].Pool.Address, direct.Address)
	}
	if len(routes[1].Hops) != 2 {
		t.Errorf("second route should be two hops, got %d", len(routes[1].Hops))
	}
}

func TestFindRoutesMultiHopOnly(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()
	mintD := solana.NewWallet().PublicKey()

	// A -> C -> D -> B, no direct pair
	reg := newTestRegistry(t,
		newCPPool(mintA, mintC, 1_000_000, 1_000_000, 30),
		newCPPool(mintC, mintD, 1_000_000, 1_000_000, 30),
		newCPPool(mintD, mintB, 1_000_000, 1_000_000, 30),
	)
	finder := NewRouteFinder(3, 10)

	routes, err := finder.FindRoutes(reg.Snapshot(), mintA, mintB, 0)
	if err != nil {
		t.Fatalf("FindRoutes: %v", err)
	}
	if len(routes) != 1 {
		t.Fatalf("got %d routes, want 1", len(routes))
	}
	if len(routes[0].Hops) != 3 {
		t.Errorf("got %d hops, want 3", len(routes[0].Hops))
	}

	// The same graph is unreachable within two hops
	if _, err := finder.FindRoutes(reg.Snapshot(), mintA, mintB, 2); !errors.Is(err, ErrNoRouteFound) {
		t.Errorf("maxHops=2: got %v, want ErrNoRouteFound", err)
	}
}

func TestFindRoutesNoRoute(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()
	mintD := solana.NewWallet().PublicKey()

	// Two disconnected islands
	reg := newTestRegistry(t,
		newCPPool(mintA, mintC, 1_000_000, 1_000_000, 30),
		newCPPool(mintB, mintD, 1_000_000, 1_000_000, 30),
	)
	finder := NewRouteFinder(3, 10)

	if _, err := finder.FindRoutes(reg.Snapshot(), mintA, mintB, 0); !errors.Is(err, ErrNoRouteFound) {
		t.Errorf("got %v, want ErrNoRouteFound", err)
	}
}

func TestFindRoutesSameToken(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	reg := newTestRegistry(t, newCPPool(mintA, mintB, 1_000_000, 1_000_000, 30))
	finder := NewRouteFinder(3, 10)

	if _, err := finder.FindRoutes(reg.Snapshot(), mintA, mintA, 0); !errors.Is(err, ErrNoRouteFound) {
		t.Errorf("input == output: got %v, want ErrNoRouteFound", err)
	}
}

func TestFindRoutesNoTokenRevisit(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()

	// Dense triangle plus extra pools inviting cycles
	reg := newTestRegistry(t,
		newCPPool(mintA, mintB, 1_000_000, 1_000_000, 30),
		newCPPool(mintA, mintC, 2_000_000, 2_000_000, 30),
		newCPPool(mintC, mintB, 2_000_000, 2_000_000, 30),
		newCPPool(mintA, mintC, 500_000, 500_000, 10),
	)
	finder := NewRouteFinder(4, 10)

	routes, err := finder.FindRoutes(reg.Snapshot(), mintA, mintB, 0)
	if err != nil {
		t.Fatalf("FindRoutes: %v", err)
	}
	for _, route := range routes {
		seen := map[solana.PublicKey]bool{}
		for _, mint := range route.TokenPath() {
			if seen[mint] {
				t.Errorf("route revisits token %s", mint)
			}
			seen[mint] = true
		}
		seenPools := map[solana.PublicKey]bool{}
		for _, hop := range route.Hops {
			if seenPools[hop.Pool.Address] {
				t.Errorf("route reuses pool %s", hop.Pool.Address)
			}
			seenPools[hop.Pool.Address] = true
		}
	}
}

func TestFindRoutesDeterministic(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()
	mintD := solana.NewWallet().PublicKey()

	reg := newTestRegistry(t,
		newCPPool(mintA, mintB, 1_000_000, 1_000_000, 30),
		newCPPool(mintA, mintC, 3_000_000, 3_000_000, 30),
		newCPPool(mintC, mintB, 3_000_000, 3_000_000, 30),
		newCPPool(mintA, mintD, 2_000_000, 2_000_000, 30),
		newCPPool(mintD, mintB, 2_000_000, 2_000_000, 30),
	)
	finder := NewRouteFinder(3, 10)
	snap := reg.Snapshot()

	first, err := finder.FindRoutes(snap, mintA, mintB, 0)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		again, err := finder.FindRoutes(snap, mintA, mintB, 0)
		if err != nil {
			t.Fatal(err)
		}
		if len(again) != len(first) {
			t.Fatalf("run %d: %d routes, want %d", i, len(again), len(first))
		}
		for j := range again {
			if len(again[j].Hops) != len(first[j].Hops) {
				t.Fatalf("run %d route %d: hop count differs", i, j)
			}
			for k := range again[j].Hops {
				if !again[j].Hops[k].Pool.Address.Equals(first[j].Hops[k].Pool.Address) {
					t.Fatalf("run %d route %d hop %d: pool differs", i, j, k)
				}
			}
		}
	}
}

func TestFindRoutesCandidateLimit(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()

	pools := make([]*domain.Pool, 0, 8)
	for i := 0; i < 6; i++ {
		// Distinct intermediate token per two-hop path
		mid := solana.NewWallet().PublicKey()
		pools = append(pools,
			newCPPool(mintA, mid, int64(1_000_000*(i+1)), int64(1_000_000*(i+1)), 30),
			newCPPool(mid, mintB, int64(1_000_000*(i+1)), int64(1_000_000*(i+1)), 30),
		)
	}
	reg := newTestRegistry(t, pools...)

	finder := NewRouteFinder(3, 4)
	routes, err := finder.FindRoutes(reg.Snapshot(), mintA, mintB, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(routes) != 4 {
		t.Errorf("got %d routes, want capped 4", len(routes))
	}
	// Best bottleneck multi-hop route must survive the cut
	best := routes[0]
	if best.Hops[0].Pool.ReserveAU64 < 6_000_000 {
		t.Errorf("best surviving route has bottleneck %d, deeper path was cut",
			best.Hops[0].Pool.ReserveAU64)
	}
}

func BenchmarkFindRoutes(b *testing.B) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()

	pools := make([]*domain.Pool, 0, 20)
	pools = append(pools, newCPPool(mintA, mintB, 1_000_000, 1_000_000, 30))
	for i := 0; i < 8; i++ {
		mid := solana.NewWallet().PublicKey()
		pools = append(pools,
			newCPPool(mintA, mid, 2_000_000, 2_000_000, 30),
			newCPPool(mid, mintB, 2_000_000, 2_000_000, 30),
		)
	}
	reg := newTestRegistry(b, pools...)
	finder := NewRouteFinder(3, 10)
	snap := reg.Snapshot()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		_, _ = finder.FindRoutes(snap, mintA, mintB, 0)
	}
}
