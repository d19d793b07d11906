package market

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/solpath/quote-engine/internal/adapters/chain"
	"github.com/solpath/quote-engine/internal/adapters/persistence"
	"github.com/solpath/quote-engine/internal/config"
	"github.com/solpath/quote-engine/internal/domain"
	"github.com/solpath/quote-engine/internal/metrics"
	"github.com/solpath/quote-engine/internal/registry"
)

const (
	MARKET_SERVICE = "market.MarketService"
)

// Service owns the pool state lifecycle: warm start from disk, the
// background refresh cycle, quote-path refreshes through the shared
// Refresher, and periodic persistence of changed pools.
type Service struct {
	container *container.DIContainer

	registry  *registry.Registry
	source    chain.PoolStateSource
	refresher *Refresher
	storage   *persistence.Storage

	quoterCfg  *config.QuoterConfig
	persistCfg *config.PersistenceConfig

	// Pools changed since the last persist sweep.
	dirty *ShardedPoolMap

	stopCh chan struct{}
	wg     sync.WaitGroup
}

func (svc *Service) ID() string {
	return MARKET_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	rpcConfig := c.GetConfig(config.RPC_CONFIG_KEY).(*config.RPCConfig)
	svc.quoterCfg = c.GetConfig(config.QUOTER_CONFIG_KEY).(*config.QuoterConfig)
	svc.persistCfg = c.GetConfig(config.PERSISTENCE_CONFIG_KEY).(*config.PersistenceConfig)
	svc.registry = c.Instance(registry.REGISTRY_SERVICE).(*registry.Registry)

	if svc.source == nil {
		svc.source = chain.NewClient(rpcConfig)
	}

	svc.dirty = NewShardedPoolMap()
	svc.stopCh = make(chan struct{})

	if svc.persistCfg.PersistenceEnabled {
		storage, err := persistence.NewStorage(svc.persistCfg.DBPath)
		if err != nil {
			return fmt.Errorf("open pool storage: %w", err)
		}
		svc.storage = storage
	}

	svc.refresher = NewRefresher(svc.source, svc.registry, svc.quoterCfg.EvictAfterMisses)
	svc.refresher.onApplied = func(pool *domain.Pool) {
		svc.dirty.Set(pool.Address, pool)
	}
	svc.refresher.onEvicted = func(address solana.PublicKey) {
		svc.dirty.Delete(address)
		if svc.storage != nil {
			if err := svc.storage.DeletePool(address); err != nil {
				log.Warn().Err(err).Str("pool", address.String()).Msg("[marketService] failed to delete evicted pool")
			}
		}
	}

	return nil
}

func (svc *Service) Start() error {
	if svc.storage != nil {
		svc.warmStart()
	}

	svc.wg.Add(1)
	go svc.refreshLoop()

	if svc.storage != nil {
		svc.wg.Add(1)
		go svc.persistLoop()
	}

	return nil
}

func (svc *Service) Stop() error {
	close(svc.stopCh)
	svc.wg.Wait()

	if svc.storage != nil {
		svc.persistDirty()
		return svc.storage.Close()
	}
	return nil
}

// Refresher returns the shared pool refresher.
func (svc *Service) Refresher() *Refresher {
	return svc.refresher
}

// warmStart loads persisted pools so routing works before the first
// refresh cycle finishes. Persisted LastRefreshed is kept, so stale
// pools still trigger a quote-path refresh.
func (svc *Service) warmStart() {
	pools, err := svc.storage.LoadAllPools()
	if err != nil {
		log.Error().Err(err).Msg("[marketService] warm start failed, continuing empty")
		return
	}
	if len(pools) == 0 {
		return
	}

	svc.registry.UpsertBatch(pools)
	log.Info().Int("count", len(pools)).Msg("[marketService] warm start loaded pools")
}

func (svc *Service) refreshLoop() {
	defer svc.wg.Done()

	ticker := time.NewTicker(svc.quoterCfg.RefreshInterval())
	defer ticker.Stop()

	for {
		select {
		case <-svc.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), svc.quoterCfg.RefreshInterval())
			if err := svc.refresher.RefreshAll(ctx); err != nil {
				log.Warn().Err(err).Msg("[marketService] refresh cycle failed, keeping stale state")
			}
			cancel()
		}
	}
}

func (svc *Service) persistLoop() {
	defer svc.wg.Done()

	ticker := time.NewTicker(time.Duration(svc.persistCfg.PersistInterval) * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-svc.stopCh:
			return
		case <-ticker.C:
			svc.persistDirty()
		}
	}
}

func (svc *Service) persistDirty() {
	pending := svc.dirty.Drain()
	if len(pending) == 0 {
		return
	}

	start := time.Now()
	if err := svc.storage.SavePoolBatch(pending); err != nil {
		log.Error().Err(err).Int("count", len(pending)).Msg("[marketService] persist sweep failed")
		// Put them back so the next sweep retries.
		for _, pool := range pending {
			svc.dirty.Set(pool.Address, pool)
		}
		return
	}
	metrics.PersistDuration.Set(time.Since(start).Seconds())
	metrics.PersistedPools.Set(float64(len(pending)))
}

// RegisterPool adds a pool to the tracked set and refreshes its state
// immediately so it can serve quotes without waiting for a cycle.
func (svc *Service) RegisterPool(ctx context.Context, pool *domain.Pool) error {
	if pool == nil {
		return fmt.Errorf("nil pool")
	}

	pool.UpdateFlags()
	svc.registry.Upsert(pool)
	svc.dirty.Set(pool.Address, pool)

	if err := svc.refresher.RefreshPool(ctx, pool.Address); err != nil {
		log.Warn().Err(err).Str("pool", pool.Address.String()).Msg("[marketService] initial refresh failed, pool registered with provided state")
	}
	return nil
}

// RemovePool drops a pool from routing and from disk.
func (svc *Service) RemovePool(address solana.PublicKey) {
	svc.registry.Remove(address)
	svc.dirty.Delete(address)
	if svc.storage != nil {
		if err := svc.storage.DeletePool(address); err != nil {
			log.Warn().Err(err).Str("pool", address.String()).Msg("[marketService] failed to delete removed pool")
		}
	}
}
