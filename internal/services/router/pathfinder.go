package router

import (
	"sort"
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/solpath/quote-engine/internal/domain"
	"github.com/solpath/quote-engine/internal/registry"
)

const (
	// MaxSupportedHops is the hard ceiling on route length. Requests
	// asking for more are clamped.
	MaxSupportedHops = 4

	// DefaultMaxHops bounds route length when the request does not say.
	DefaultMaxHops = 3

	// DefaultMaxCandidates caps how many routes are handed to the
	// simulator per request.
	DefaultMaxCandidates = 10

	// maxQueueStates bounds BFS frontier growth on dense graphs.
	maxQueueStates = 4096

	// maxCollectedCandidates bounds raw candidates before ranking.
	maxCollectedCandidates = 64
)

// pathState is one BFS frontier entry: the token reached plus the pool
// path that got there. Visited tokens are tracked by interned ID so the
// revisit check is an integer compare instead of a 32-byte one.
type pathState struct {
	mint    solana.PublicKey
	hops    uint8
	pools   [MaxSupportedHops]*domain.Pool
	dirs    [MaxSupportedHops]bool
	visited [MaxSupportedHops + 1]registry.TokenID
}

func (s *pathState) hasVisited(id registry.TokenID) bool {
	for i := uint8(0); i <= s.hops; i++ {
		if s.visited[i] == id {
			return true
		}
	}
	return false
}

func (s *pathState) usesPool(addr solana.PublicKey) bool {
	for i := uint8(0); i < s.hops; i++ {
		if s.pools[i].Address.Equals(addr) {
			return true
		}
	}
	return false
}

// candidate is a complete input->output pool path with its ranking key.
type candidate struct {
	pools      [MaxSupportedHops]*domain.Pool
	dirs       [MaxSupportedHops]bool
	hops       uint8
	bottleneck uint64
}

// bfsArena pools the BFS working set to keep route discovery
// allocation-free across requests.
type bfsArena struct {
	queue      []pathState
	candidates []candidate
}

var bfsArenaPool = sync.Pool{
	New: func() interface{} {
		return &bfsArena{
			queue:      make([]pathState, 0, 256),
			candidates: make([]candidate, 0, maxCollectedCandidates),
		}
	},
}

func getBFSArena() *bfsArena {
	a := bfsArenaPool.Get().(*bfsArena)
	a.queue = a.queue[:0]
	a.candidates = a.candidates[:0]
	return a
}

func putBFSArena(a *bfsArena) {
	// Drop pool references before pooling so pools can be collected
	for i := range a.queue {
		a.queue[i] = pathState{}
	}
	for i := range a.candidates {
		a.candidates[i] = candidate{}
	}
	bfsArenaPool.Put(a)
}

// RouteFinder discovers candidate pool paths over a registry snapshot.
type RouteFinder struct {
	maxHops       int
	maxCandidates int
}

func NewRouteFinder(maxHops, maxCandidates int) *RouteFinder {
	if maxHops <= 0 {
		maxHops = DefaultMaxHops
	}
	if maxHops > MaxSupportedHops {
		maxHops = MaxSupportedHops
	}
	if maxCandidates <= 0 {
		maxCandidates = DefaultMaxCandidates
	}
	return &RouteFinder{maxHops: maxHops, maxCandidates: maxCandidates}
}

// FindRoutes returns up to maxCandidates routes from input to output,
// best heuristic first. Routes never revisit a token or a pool. The
// direct pair, when one exists, always leads the list. Results are
// deterministic for a given snapshot.
//
// maxHops <= 0 uses the finder default; values above MaxSupportedHops
// are clamped.
func (f *RouteFinder) FindRoutes(snap *registry.Snapshot, input, output solana.PublicKey, maxHops int) ([]*domain.Route, error) {
	if snap == nil {
		return nil, ErrNoRouteFound
	}
	if input.Equals(output) {
		return nil, ErrNoRouteFound
	}
	if maxHops <= 0 || maxHops > f.maxHops {
		maxHops = f.maxHops
	}
	if maxHops > MaxSupportedHops {
		maxHops = MaxSupportedHops
	}

	// Tokens without a ready pool are never interned, so a missing ID
	// means no edge can touch that side of the request.
	inputID, ok := snap.TokenID(input)
	if !ok {
		return nil, ErrNoRouteFound
	}
	outputID, ok := snap.TokenID(output)
	if !ok {
		return nil, ErrNoRouteFound
	}

	arena := getBFSArena()
	defer putBFSArena(arena)

	start := pathState{mint: input}
	start.visited[0] = inputID
	arena.queue = append(arena.queue, start)

	for head := 0; head < len(arena.queue); head++ {
		st := arena.queue[head]

		for _, edge := range snap.Neighbors(st.mint) {
			isTerminal := edge.MintID == outputID
			if !isTerminal && st.hasVisited(edge.MintID) {
				continue
			}

			for _, pool := range edge.Pools {
				if st.usesPool(pool.Address) {
					continue
				}

				if isTerminal {
					if len(arena.candidates) >= maxCollectedCandidates {
						continue
					}
					c := candidate{pools: st.pools, dirs: st.dirs, hops: st.hops + 1}
					c.pools[st.hops] = pool
					c.dirs[st.hops] = pool.TokenMintA.Equals(st.mint)
					c.bottleneck = pathBottleneck(&c)
					arena.candidates = append(arena.candidates, c)
					continue
				}

				if int(st.hops)+1 >= maxHops {
					continue
				}
				if len(arena.queue) >= maxQueueStates {
					continue
				}

				next := st
				next.pools[st.hops] = pool
				next.dirs[st.hops] = pool.TokenMintA.Equals(st.mint)
				next.hops = st.hops + 1
				next.mint = edge.Mint
				next.visited[next.hops] = edge.MintID
				arena.queue = append(arena.queue, next)
			}
		}
	}

	if len(arena.candidates) == 0 {
		return nil, ErrNoRouteFound
	}

	ranked := rankCandidates(arena.candidates, f.maxCandidates)

	routes := make([]*domain.Route, 0, len(ranked))
	for _, c := range ranked {
		route := &domain.Route{
			InputMint:  input,
			OutputMint: output,
			Hops:       make([]domain.RouteHop, c.hops),
		}
		for i := uint8(0); i < c.hops; i++ {
			route.Hops[i] = domain.RouteHop{Pool: c.pools[i], AToB: c.dirs[i]}
		}
		routes = append(routes, route)
	}
	return routes, nil
}

// pathBottleneck is the ranking heuristic: the smallest output-side
// reserve along the path. Deep liquidity everywhere ranks highest.
func pathBottleneck(c *candidate) uint64 {
	bottleneck := ^uint64(0)
	for i := uint8(0); i < c.hops; i++ {
		var out uint64
		if c.dirs[i] {
			out = c.pools[i].ReserveBU64
		} else {
			out = c.pools[i].ReserveAU64
		}
		if out < bottleneck {
			bottleneck = out
		}
	}
	return bottleneck
}

// rankCandidates orders direct routes first (already in pair liquidity
// order from the snapshot), then multi-hop routes by bottleneck
// descending with hop count as tie-break. Enumeration order settles any
// remaining ties, keeping the ranking stable per snapshot.
func rankCandidates(candidates []candidate, limit int) []candidate {
	direct := make([]candidate, 0, 4)
	multi := make([]candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.hops == 1 {
			direct = append(direct, c)
		} else {
			multi = append(multi, c)
		}
	}

	sort.SliceStable(multi, func(i, j int) bool {
		if multi[i].bottleneck != multi[j].bottleneck {
			return multi[i].bottleneck > multi[j].bottleneck
		}
		return multi[i].hops < multi[j].hops
	})

	ranked := make([]candidate, 0, limit)
	ranked = append(ranked, direct...)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	for _, c := range multi {
		if len(ranked) >= limit {
			break
		}
		ranked = append(ranked, c)
	}
	return ranked
}
