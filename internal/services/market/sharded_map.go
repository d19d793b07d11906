package market

import (
	"sync"

	"github.com/gagliardetto/solana-go"

	"github.com/solpath/quote-engine/internal/domain"
)

const numShards = 16

// ShardedPoolMap is a concurrent pool map sharded by the first address
// byte to reduce lock contention between the refresh and persist loops.
type ShardedPoolMap struct {
	shards [numShards]poolShard
}

type poolShard struct {
	mu    sync.RWMutex
	pools map[solana.PublicKey]*domain.Pool
}

func NewShardedPoolMap() *ShardedPoolMap {
	m := &ShardedPoolMap{}
	for i := range m.shards {
		m.shards[i].pools = make(map[solana.PublicKey]*domain.Pool)
	}
	return m
}

func (m *ShardedPoolMap) shardFor(key solana.PublicKey) *poolShard {
	return &m.shards[key[0]%numShards]
}

func (m *ShardedPoolMap) Get(key solana.PublicKey) (*domain.Pool, bool) {
	shard := m.shardFor(key)
	shard.mu.RLock()
	pool, ok := shard.pools[key]
	shard.mu.RUnlock()
	return pool, ok
}

func (m *ShardedPoolMap) Set(key solana.PublicKey, pool *domain.Pool) {
	shard := m.shardFor(key)
	shard.mu.Lock()
	shard.pools[key] = pool
	shard.mu.Unlock()
}

func (m *ShardedPoolMap) Delete(key solana.PublicKey) {
	shard := m.shardFor(key)
	shard.mu.Lock()
	delete(shard.pools, key)
	shard.mu.Unlock()
}

func (m *ShardedPoolMap) Len() int {
	total := 0
	for i := range m.shards {
		m.shards[i].mu.RLock()
		total += len(m.shards[i].pools)
		m.shards[i].mu.RUnlock()
	}
	return total
}

// Range calls fn for each entry. Returning false stops the walk.
func (m *ShardedPoolMap) Range(fn func(key solana.PublicKey, pool *domain.Pool) bool) {
	for i := range m.shards {
		shard := &m.shards[i]
		shard.mu.RLock()
		for key, pool := range shard.pools {
			if !fn(key, pool) {
				shard.mu.RUnlock()
				return
			}
		}
		shard.mu.RUnlock()
	}
}

// Drain removes and returns all entries. Used by the persist loop to
// take the pending set in one sweep.
func (m *ShardedPoolMap) Drain() []*domain.Pool {
	var out []*domain.Pool
	for i := range m.shards {
		shard := &m.shards[i]
		shard.mu.Lock()
		if len(shard.pools) > 0 {
			for _, pool := range shard.pools {
				out = append(out, pool)
			}
			shard.pools = make(map[solana.PublicKey]*domain.Pool)
		}
		shard.mu.Unlock()
	}
	return out
}
