// Package registry maintains the live pool set and publishes immutable
// snapshots for lock-free reads by the router and aggregator.
package registry

import (
	"bytes"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gagliardetto/solana-go"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/solpath/quote-engine/internal/domain"
	"github.com/solpath/quote-engine/internal/metrics"
)

// MaxPoolsPerPair limits pools per token pair for faster routing
const MaxPoolsPerPair = 5

type adjMap = map[solana.PublicKey]map[solana.PublicKey][]*domain.Pool
type poolsMap = map[solana.PublicKey]*domain.Pool

const (
	REGISTRY_SERVICE = "registry.PoolRegistry"
)

// NeighborEdge is one outgoing edge in a snapshot: the neighbor mint and
// the ready pools connecting to it, best liquidity first. MintID is the
// interned form of Mint for cheap visited checks during traversal.
type NeighborEdge struct {
	Mint   solana.PublicKey
	MintID TokenID
	Pools  []*domain.Pool
}

// Snapshot is an immutable view of the registry. All reads during a
// single quote go through one snapshot so results stay consistent and
// repeatable.
type Snapshot struct {
	adj       adjMap
	pools     poolsMap
	neighbors map[solana.PublicKey][]NeighborEdge
	interner  *TokenInterner // shared, not owned
	takenAt   time.Time
}

// Pool returns a pool by address, or nil.
func (s *Snapshot) Pool(address solana.PublicKey) *domain.Pool {
	return s.pools[address]
}

// PoolsForPair returns ready pools connecting two mints directly,
// sorted by output liquidity descending. The slice is shared and must
// not be mutated.
func (s *Snapshot) PoolsForPair(from, to solana.PublicKey) []*domain.Pool {
	if neighbors, ok := s.adj[from]; ok {
		return neighbors[to]
	}
	return nil
}

// Neighbors returns the outgoing edges of a mint in deterministic
// (bytewise mint) order.
func (s *Snapshot) Neighbors(mint solana.PublicKey) []NeighborEdge {
	return s.neighbors[mint]
}

// PoolCount returns the number of pools captured in this snapshot.
func (s *Snapshot) PoolCount() int {
	return len(s.pools)
}

// TakenAt returns when the snapshot was published.
func (s *Snapshot) TakenAt() time.Time {
	return s.takenAt
}

// TokenID returns the interned ID for a mint. Only mints touching a
// ready pool are interned; anything else reports false.
func (s *Snapshot) TokenID(mint solana.PublicKey) (TokenID, bool) {
	if s.interner == nil {
		return InvalidTokenID, false
	}
	return s.interner.GetID(mint)
}

// registryDiff tracks incremental changes for efficient snapshot updates
type registryDiff struct {
	added   []*domain.Pool
	removed []solana.PublicKey
	updated []*domain.Pool
}

// Registry is the pool registry with lock-free snapshot reads.
type Registry struct {
	container *container.DIContainer

	mu sync.Mutex // Only for writes

	// Atomic snapshot for lock-free reads
	snapshot atomic.Value // *Snapshot

	// Mutable state (protected by mu)
	adj   adjMap
	pools poolsMap

	// Token interner for O(1) integer ID lookups
	interner *TokenInterner

	// Pending changes for incremental updates
	pendingDiff registryDiff

	// Atomic counters
	poolCount      atomic.Int64
	readyPoolCount atomic.Int64

	// Lazy snapshot rebuild
	snapshotDirty atomic.Bool
	stopRefresher chan struct{}

	// Threshold for incremental vs full rebuild (pool count)
	incrementalThreshold int
}

func (g *Registry) ID() string {
	return REGISTRY_SERVICE
}

func (g *Registry) Configure(c container.IContainer) error {
	g.adj = make(adjMap)
	g.pools = make(poolsMap)
	g.interner = NewTokenInterner()
	g.stopRefresher = make(chan struct{})
	g.incrementalThreshold = 50

	g.rebuildSnapshot()
	go g.snapshotRefresher()
	return nil
}

func (g *Registry) Start() error {
	return nil
}

func (g *Registry) Stop() error {
	close(g.stopRefresher)
	return nil
}

// snapshotRefresher periodically rebuilds the snapshot if dirty
func (g *Registry) snapshotRefresher() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-g.stopRefresher:
			return
		case <-ticker.C:
			if g.snapshotDirty.CompareAndSwap(true, false) {
				g.mu.Lock()
				g.applyPendingChanges()
				g.mu.Unlock()
			}
		}
	}
}

// applyPendingChanges applies incremental changes or triggers full rebuild
// Must be called with mu held
func (g *Registry) applyPendingChanges() {
	totalChanges := len(g.pendingDiff.added) + len(g.pendingDiff.removed) + len(g.pendingDiff.updated)

	if totalChanges > 0 && totalChanges < g.incrementalThreshold {
		g.applyIncrementalUpdate()
	} else {
		g.rebuildSnapshot()
	}

	g.pendingDiff = registryDiff{}
}

// applyIncrementalUpdate patches the previous snapshot instead of
// re-filtering every pool. Touched pair lists are copied, never mutated
// in place, because readers may still hold the old snapshot.
// Must be called with mu held
func (g *Registry) applyIncrementalUpdate() {
	metrics.RegistryIncrementalUpdates.Inc()

	oldSnap := g.getSnapshot()
	if oldSnap == nil {
		g.rebuildSnapshot()
		return
	}

	newPools := make(poolsMap, len(oldSnap.pools)+len(g.pendingDiff.added))
	for addr, pool := range oldSnap.pools {
		newPools[addr] = pool
	}

	newAdj := make(adjMap, len(oldSnap.adj))
	for mint, neighbors := range oldSnap.adj {
		newNeighbors := make(map[solana.PublicKey][]*domain.Pool, len(neighbors))
		for mint2, pools := range neighbors {
			newNeighbors[mint2] = pools
		}
		newAdj[mint] = newNeighbors
	}

	readyCount := g.readyPoolCount.Load()

	for _, addr := range g.pendingDiff.removed {
		pool, exists := newPools[addr]
		if !exists {
			continue
		}
		if pool.IsReady() {
			readyCount--
		}
		delete(newPools, addr)
		removePoolFromAdj(newAdj, pool)
	}

	for _, pool := range g.pendingDiff.updated {
		oldPool, exists := newPools[pool.Address]
		if exists {
			wasReady := oldPool.IsReady()
			isReady := pool.IsReady()
			switch {
			case wasReady && !isReady:
				readyCount--
				removePoolFromAdj(newAdj, oldPool)
			case !wasReady && isReady:
				readyCount++
				addPoolToAdj(newAdj, pool)
			case isReady:
				removePoolFromAdj(newAdj, oldPool)
				addPoolToAdj(newAdj, pool)
			}
		}
		newPools[pool.Address] = pool
	}

	for _, pool := range g.pendingDiff.added {
		newPools[pool.Address] = pool
		if pool.IsReady() {
			readyCount++
			addPoolToAdj(newAdj, pool)
		}
	}

	g.publishSnapshot(&Snapshot{
		adj:       newAdj,
		pools:     newPools,
		neighbors: buildNeighborIndex(newAdj, g.interner),
		interner:  g.interner,
		takenAt:   time.Now(),
	}, int64(len(newPools)), readyCount)
}

// addPoolToAdj inserts a pool into both edge directions, copy-on-write,
// keeping each pair list sorted and capped.
func addPoolToAdj(adj adjMap, pool *domain.Pool) {
	insertEdge(adj, pool.TokenMintA, pool.TokenMintB, pool)
	insertEdge(adj, pool.TokenMintB, pool.TokenMintA, pool)
}

func insertEdge(adj adjMap, from, to solana.PublicKey, pool *domain.Pool) {
	if adj[from] == nil {
		adj[from] = make(map[solana.PublicKey][]*domain.Pool)
	}
	old := adj[from][to]
	merged := make([]*domain.Pool, 0, len(old)+1)
	merged = append(merged, old...)
	merged = append(merged, pool)
	sortPoolsByOutputLiquidity(merged, from)
	if len(merged) > MaxPoolsPerPair {
		merged = merged[:MaxPoolsPerPair]
	}
	adj[from][to] = merged
}

func removePoolFromAdj(adj adjMap, pool *domain.Pool) {
	removePoolEdge(adj, pool.TokenMintA, pool.TokenMintB, pool.Address)
	removePoolEdge(adj, pool.TokenMintB, pool.TokenMintA, pool.Address)
}

func removePoolEdge(adj adjMap, from, to, poolAddr solana.PublicKey) {
	if neighbors, ok := adj[from]; ok {
		if pools, ok := neighbors[to]; ok {
			newPools := make([]*domain.Pool, 0, len(pools))
			for _, p := range pools {
				if !p.Address.Equals(poolAddr) {
					newPools = append(newPools, p)
				}
			}
			if len(newPools) == 0 {
				delete(neighbors, to)
			} else {
				neighbors[to] = newPools
			}
			if len(neighbors) == 0 {
				delete(adj, from)
			}
		}
	}
}

// rebuildSnapshot creates a new immutable snapshot with pre-filtered
// ready pools. Replaced snapshots are left to the garbage collector:
// in-flight quotes may hold them well past the publish, so their maps
// and slices must stay intact until every reader is gone.
// Must be called with mu held
func (g *Registry) rebuildSnapshot() {
	metrics.RegistrySnapshotRebuilds.Inc()

	newAdj := make(adjMap, len(g.adj))
	newPools := make(poolsMap, len(g.pools))
	readyCount := int64(0)

	for addr, pool := range g.pools {
		newPools[addr] = pool
		if pool.IsReady() {
			readyCount++
		}
	}

	// Build adjacency with only ready pools, sorted by output liquidity
	for mintA, neighbors := range g.adj {
		newNeighbors := make(map[solana.PublicKey][]*domain.Pool, len(neighbors))

		for mintB, pools := range neighbors {
			readyPools := make([]*domain.Pool, 0, len(pools))
			for _, p := range pools {
				if p.IsReady() {
					readyPools = append(readyPools, p)
				}
			}
			if len(readyPools) > 0 {
				sortPoolsByOutputLiquidity(readyPools, mintA)
				if len(readyPools) > MaxPoolsPerPair {
					readyPools = readyPools[:MaxPoolsPerPair]
				}
				newNeighbors[mintB] = readyPools
			}
		}
		if len(newNeighbors) > 0 {
			newAdj[mintA] = newNeighbors
		}
	}

	g.publishSnapshot(&Snapshot{
		adj:       newAdj,
		pools:     newPools,
		neighbors: buildNeighborIndex(newAdj, g.interner),
		interner:  g.interner,
		takenAt:   time.Now(),
	}, int64(len(g.pools)), readyCount)
}

func (g *Registry) publishSnapshot(snap *Snapshot, poolCount, readyCount int64) {
	g.snapshot.Store(snap)
	g.poolCount.Store(poolCount)
	g.readyPoolCount.Store(readyCount)
	metrics.PoolCount.Set(float64(poolCount))
	metrics.ReadyPoolCount.Set(float64(readyCount))
}

// buildNeighborIndex flattens the adjacency map into per-mint edge lists
// in bytewise mint order so snapshot traversal is deterministic. Every
// mint touching a ready pool is interned so the pathfinder can work on
// compact token IDs.
func buildNeighborIndex(adj adjMap, interner *TokenInterner) map[solana.PublicKey][]NeighborEdge {
	index := make(map[solana.PublicKey][]NeighborEdge, len(adj))
	for mint, neighbors := range adj {
		interner.GetOrCreate(mint)
		edges := make([]NeighborEdge, 0, len(neighbors))
		for neighbor, pools := range neighbors {
			edges = append(edges, NeighborEdge{
				Mint:   neighbor,
				MintID: interner.GetOrCreate(neighbor),
				Pools:  pools,
			})
		}
		sort.Slice(edges, func(i, j int) bool {
			return bytes.Compare(edges[i].Mint[:], edges[j].Mint[:]) < 0
		})
		index[mint] = edges
	}
	return index
}

// sortPoolsByOutputLiquidity sorts pools by output reserve (descending),
// ties broken by address so the order is reproducible.
// Uses uint64 shadow fields to avoid big.Int comparison overhead.
func sortPoolsByOutputLiquidity(pools []*domain.Pool, inputMint solana.PublicKey) {
	if len(pools) <= 1 {
		return
	}
	sort.Slice(pools, func(i, j int) bool {
		liqI := outputReserveU64(pools[i], inputMint)
		liqJ := outputReserveU64(pools[j], inputMint)
		if liqI != liqJ {
			return liqI > liqJ
		}
		return bytes.Compare(pools[i].Address[:], pools[j].Address[:]) < 0
	})
}

// outputReserveU64 returns the output reserve as uint64 based on input mint
func outputReserveU64(pool *domain.Pool, inputMint solana.PublicKey) uint64 {
	if pool.TokenMintA == inputMint {
		return pool.ReserveBU64
	}
	return pool.ReserveAU64
}

func (g *Registry) getSnapshot() *Snapshot {
	snap, _ := g.snapshot.Load().(*Snapshot)
	return snap
}

// Snapshot returns the current immutable view (lock-free).
func (g *Registry) Snapshot() *Snapshot {
	return g.getSnapshot()
}

// Upsert inserts or replaces a pool with lazy snapshot rebuild.
func (g *Registry) Upsert(pool *domain.Pool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pool.UpdateFlags()
	isUpdate := g.upsertLocked(pool)
	if isUpdate {
		g.pendingDiff.updated = append(g.pendingDiff.updated, pool)
	} else {
		g.pendingDiff.added = append(g.pendingDiff.added, pool)
	}
	g.snapshotDirty.Store(true)
	metrics.PoolUpdates.Inc()
}

// upsertLocked writes to mutable state, returns true if it was an update
func (g *Registry) upsertLocked(pool *domain.Pool) bool {
	if old, exists := g.pools[pool.Address]; exists {
		g.pools[pool.Address] = pool
		if !old.TokenMintA.Equals(pool.TokenMintA) || !old.TokenMintB.Equals(pool.TokenMintB) {
			g.removeEdge(old.TokenMintA, old.TokenMintB, old.Address)
			g.removeEdge(old.TokenMintB, old.TokenMintA, old.Address)
			g.addEdgesLocked(pool)
		} else {
			g.replaceEdgesLocked(pool)
		}
		return true
	}

	g.pools[pool.Address] = pool
	g.addEdgesLocked(pool)
	return false
}

func (g *Registry) addEdgesLocked(pool *domain.Pool) {
	if _, ok := g.adj[pool.TokenMintA]; !ok {
		g.adj[pool.TokenMintA] = make(map[solana.PublicKey][]*domain.Pool)
	}
	g.adj[pool.TokenMintA][pool.TokenMintB] = append(g.adj[pool.TokenMintA][pool.TokenMintB], pool)

	if _, ok := g.adj[pool.TokenMintB]; !ok {
		g.adj[pool.TokenMintB] = make(map[solana.PublicKey][]*domain.Pool)
	}
	g.adj[pool.TokenMintB][pool.TokenMintA] = append(g.adj[pool.TokenMintB][pool.TokenMintA], pool)
}

func (g *Registry) replaceEdgesLocked(pool *domain.Pool) {
	replace := func(from, to solana.PublicKey) bool {
		if neighbors, ok := g.adj[from]; ok {
			if pools, ok := neighbors[to]; ok {
				for i, p := range pools {
					if p.Address.Equals(pool.Address) {
						pools[i] = pool
						return true
					}
				}
			}
		}
		return false
	}
	foundAB := replace(pool.TokenMintA, pool.TokenMintB)
	foundBA := replace(pool.TokenMintB, pool.TokenMintA)
	if !foundAB && !foundBA {
		g.addEdgesLocked(pool)
	}
}

// UpsertBatch inserts multiple pools with a single snapshot rebuild.
func (g *Registry) UpsertBatch(pools []*domain.Pool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, pool := range pools {
		pool.UpdateFlags()
		g.upsertLocked(pool)
		metrics.PoolUpdates.Inc()
	}
	g.pendingDiff = registryDiff{}
	g.snapshotDirty.Store(false)
	g.rebuildSnapshot()
}

// Remove removes a pool from the registry with lazy snapshot rebuild.
func (g *Registry) Remove(poolAddress solana.PublicKey) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pool, exists := g.pools[poolAddress]
	if !exists {
		return
	}

	delete(g.pools, poolAddress)
	g.removeEdge(pool.TokenMintA, pool.TokenMintB, poolAddress)
	g.removeEdge(pool.TokenMintB, pool.TokenMintA, poolAddress)
	g.pendingDiff.removed = append(g.pendingDiff.removed, poolAddress)
	g.snapshotDirty.Store(true)
}

func (g *Registry) removeEdge(from, to, poolAddress solana.PublicKey) {
	if neighbors, ok := g.adj[from]; ok {
		if pools, ok := neighbors[to]; ok {
			newPools := make([]*domain.Pool, 0, len(pools))
			for _, p := range pools {
				if !p.Address.Equals(poolAddress) {
					newPools = append(newPools, p)
				}
			}
			if len(newPools) == 0 {
				delete(neighbors, to)
			} else {
				neighbors[to] = newPools
			}
		}
		if len(neighbors) == 0 {
			delete(g.adj, from)
		}
	}
}

// RefreshSnapshot rebuilds the snapshot immediately.
func (g *Registry) RefreshSnapshot() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pendingDiff = registryDiff{}
	g.snapshotDirty.Store(false)
	g.rebuildSnapshot()
}

// MarkDirty marks the snapshot as needing rebuild
func (g *Registry) MarkDirty() {
	g.snapshotDirty.Store(true)
}

// Pool returns a pool by address (lock-free read from snapshot)
func (g *Registry) Pool(address solana.PublicKey) *domain.Pool {
	snap := g.getSnapshot()
	if snap == nil {
		return nil
	}
	return snap.pools[address]
}

// PoolMutable returns the latest pool data that may not be in the
// snapshot yet (with lock).
func (g *Registry) PoolMutable(address solana.PublicKey) *domain.Pool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.pools[address]
}

// PoolByAddress returns a pool by address string (lock-free read)
func (g *Registry) PoolByAddress(addressStr string) *domain.Pool {
	pubkey, err := solana.PublicKeyFromBase58(addressStr)
	if err != nil {
		return nil
	}
	return g.Pool(pubkey)
}

// Len returns total pool count (lock-free)
func (g *Registry) Len() int {
	return int(g.poolCount.Load())
}

// ReadyLen returns ready pool count (lock-free)
func (g *Registry) ReadyLen() int {
	return int(g.readyPoolCount.Load())
}

// AllPools returns all pools (lock-free read)
func (g *Registry) AllPools() []*domain.Pool {
	snap := g.getSnapshot()
	if snap == nil {
		return nil
	}
	pools := make([]*domain.Pool, 0, len(snap.pools))
	for _, p := range snap.pools {
		pools = append(pools, p)
	}
	return pools
}

// PoolsForPair returns ready pools connecting two mints (lock-free read).
func (g *Registry) PoolsForPair(mintA, mintB solana.PublicKey) []*domain.Pool {
	snap := g.getSnapshot()
	if snap == nil {
		return nil
	}
	return snap.PoolsForPair(mintA, mintB)
}
