package registry

import (
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solpath/quote-engine/internal/domain"
)

func newPool(mintA, mintB solana.PublicKey, reserveA, reserveB uint64) *domain.Pool {
	pool := &domain.Pool{
		Address:       solana.NewWallet().PublicKey(),
		Curve:         domain.CurveConstantProduct,
		TokenMintA:    mintA,
		TokenMintB:    mintB,
		TokenVaultA:   solana.NewWallet().PublicKey(),
		TokenVaultB:   solana.NewWallet().PublicKey(),
		FeeRateBps:    30,
		Active:        true,
		Ready:         true,
		LastRefreshed: time.Now(),
	}
	pool.UpdateReserves(new(big.Int).SetUint64(reserveA), new(big.Int).SetUint64(reserveB))
	pool.UpdateFlags()
	return pool
}

func newRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := &Registry{}
	require.NoError(t, reg.Configure(nil))
	t.Cleanup(func() { _ = reg.Stop() })
	return reg
}

// A snapshot handed to a caller must keep serving reads after later
// upserts publish replacements, whether the replacement came from the
// incremental path or a full rebuild.
func TestHeldSnapshotSurvivesRepublish(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	pool := newPool(mintA, mintB, 1_000_000, 2_000_000)

	reg := newRegistry(t)
	reg.UpsertBatch([]*domain.Pool{pool})

	held := reg.Snapshot()
	require.Equal(t, 1, held.PoolCount())

	// One pending change takes the incremental path.
	reg.Upsert(newPool(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 10, 10))
	reg.mu.Lock()
	reg.applyPendingChanges()
	reg.mu.Unlock()

	// A batch this large forces the full rebuild path.
	bulk := make([]*domain.Pool, 0, 60)
	for i := 0; i < 60; i++ {
		bulk = append(bulk, newPool(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 10, 10))
	}
	reg.UpsertBatch(bulk)

	assert.Equal(t, 1, held.PoolCount())
	require.NotNil(t, held.Pool(pool.Address))

	pools := held.PoolsForPair(mintA, mintB)
	require.Len(t, pools, 1)
	require.NotNil(t, pools[0])
	assert.Equal(t, pool.Address, pools[0].Address)

	neighbors := held.Neighbors(mintA)
	require.Len(t, neighbors, 1)
	assert.Equal(t, mintB, neighbors[0].Mint)
	require.Len(t, neighbors[0].Pools, 1)
	require.NotNil(t, neighbors[0].Pools[0])
}

func TestSnapshotTokenIDs(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()
	mintC := solana.NewWallet().PublicKey()

	reg := newRegistry(t)
	reg.UpsertBatch([]*domain.Pool{
		newPool(mintA, mintB, 1_000_000, 1_000_000),
		newPool(mintB, mintC, 1_000_000, 1_000_000),
	})

	snap := reg.Snapshot()
	idA, ok := snap.TokenID(mintA)
	require.True(t, ok)
	idB, ok := snap.TokenID(mintB)
	require.True(t, ok)
	idC, ok := snap.TokenID(mintC)
	require.True(t, ok)
	assert.NotEqual(t, idA, idB)
	assert.NotEqual(t, idB, idC)

	_, ok = snap.TokenID(solana.NewWallet().PublicKey())
	assert.False(t, ok)

	// Edges carry the same IDs the snapshot resolves.
	for _, edge := range snap.Neighbors(mintA) {
		id, ok := snap.TokenID(edge.Mint)
		require.True(t, ok)
		assert.Equal(t, id, edge.MintID)
	}
}

func TestInternerStableAcrossRebuilds(t *testing.T) {
	mintA := solana.NewWallet().PublicKey()
	mintB := solana.NewWallet().PublicKey()

	reg := newRegistry(t)
	reg.UpsertBatch([]*domain.Pool{newPool(mintA, mintB, 1_000, 1_000)})

	first, ok := reg.Snapshot().TokenID(mintA)
	require.True(t, ok)

	bulk := make([]*domain.Pool, 0, 60)
	for i := 0; i < 60; i++ {
		bulk = append(bulk, newPool(solana.NewWallet().PublicKey(), solana.NewWallet().PublicKey(), 10, 10))
	}
	reg.UpsertBatch(bulk)

	again, ok := reg.Snapshot().TokenID(mintA)
	require.True(t, ok)
	assert.Equal(t, first, again)
}

func TestTokenInterner(t *testing.T) {
	in := NewTokenInterner()

	mints := make([]solana.PublicKey, 4)
	for i := range mints {
		mints[i] = solana.NewWallet().PublicKey()
	}

	ids := make(map[TokenID]struct{})
	for _, mint := range mints {
		id := in.GetOrCreate(mint)
		require.NotEqual(t, InvalidTokenID, id)
		ids[id] = struct{}{}
	}
	assert.Len(t, ids, len(mints), fmt.Sprintf("expected %d distinct ids", len(mints)))
	assert.Equal(t, len(mints), in.Size())

	for _, mint := range mints {
		assert.Equal(t, in.GetOrCreate(mint), in.GetOrCreate(mint))
	}

	_, ok := in.GetID(solana.NewWallet().PublicKey())
	assert.False(t, ok)
}
