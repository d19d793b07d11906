package persistence

import (
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	boltdb "github.com/andrew-solarstorm/bolt-db"
	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"

	"github.com/solpath/quote-engine/internal/domain"
)

const (
	PoolsBucket = "pools"

	DefaultDBPath = "./data/quote-engine.db"
)

type StoredPool struct {
	Address       string `json:"address"`
	Curve         uint8  `json:"curve"`
	ProgramID     string `json:"programId"`
	TokenMintA    string `json:"tokenMintA"`
	TokenMintB    string `json:"tokenMintB"`
	TokenVaultA   string `json:"tokenVaultA"`
	TokenVaultB   string `json:"tokenVaultB"`
	ReserveA      string `json:"reserveA"`
	ReserveB      string `json:"reserveB"`
	FeeRateBps    uint16 `json:"feeRateBps"`
	AmpFactor     uint64 `json:"ampFactor,omitempty"`
	Active        bool   `json:"active"`
	LastRefreshed int64  `json:"lastRefreshed"`
}

type Storage struct {
	db     *boltdb.BoltDatabase
	dbPath string
}

func NewStorage(dbPath string) (*Storage, error) {
	if dbPath == "" {
		dbPath = DefaultDBPath
	}
	os.MkdirAll(filepath.Dir(dbPath), 0755)

	db := boltdb.NewBoltDatabase(dbPath)
	if db == nil {
		return nil, fmt.Errorf("failed to open database at %s", dbPath)
	}

	log.Info().Str("path", dbPath).Msg("[storage] opened database")

	return &Storage{
		db:     db,
		dbPath: dbPath,
	}, nil
}

func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Storage) SavePool(pool *domain.Pool) error {
	data, err := sonic.Marshal(poolToStored(pool))
	if err != nil {
		return fmt.Errorf("failed to marshal pool: %w", err)
	}

	return s.db.Set(PoolsBucket, []byte(pool.Address.String()), data)
}

func (s *Storage) SavePoolBatch(pools []*domain.Pool) error {
	if len(pools) == 0 {
		return nil
	}

	batch := s.db.NewBatch()
	for _, pool := range pools {
		data, err := sonic.Marshal(poolToStored(pool))
		if err != nil {
			return fmt.Errorf("failed to marshal pool %s: %w", pool.Address.String(), err)
		}

		value := data
		op := &boltdb.WriteOperation{
			Bucket: []byte(PoolsBucket),
			Key:    []byte(pool.Address.String()),
			Value:  &value,
			Op:     boltdb.OpSet,
		}
		if err := batch.Add(op); err != nil {
			return fmt.Errorf("failed to add pool %s to batch: %w", pool.Address.String(), err)
		}
	}

	if err := batch.Execute(); err != nil {
		log.Error().Err(err).Int("count", len(pools)).Msg("[storage] FAILED to execute batch")
		return err
	}

	log.Debug().Int("count", len(pools)).Msg("[storage] saved pool batch")
	return nil
}

func (s *Storage) DeletePool(address solana.PublicKey) error {
	batch := s.db.NewBatch()
	op := &boltdb.WriteOperation{
		Bucket: []byte(PoolsBucket),
		Key:    []byte(address.String()),
		Op:     boltdb.OpDelete,
	}
	if err := batch.Add(op); err != nil {
		return fmt.Errorf("failed to add delete for pool %s: %w", address.String(), err)
	}
	return batch.Execute()
}

func (s *Storage) LoadAllPools() ([]*domain.Pool, error) {
	data, err := s.db.List(PoolsBucket)
	if err != nil {
		return nil, fmt.Errorf("failed to list pools: %w", err)
	}

	pools := make([]*domain.Pool, 0, len(data))
	unmarshalFailed := 0
	conversionFailed := 0

	for address, value := range data {
		var stored StoredPool
		if err := sonic.Unmarshal(value, &stored); err != nil {
			log.Error().Str("address", address).Err(err).Msg("[storage] failed to unmarshal pool, skipping")
			unmarshalFailed++
			continue
		}

		pool, err := storedToPool(&stored)
		if err != nil {
			log.Error().Str("address", address).Err(err).Msg("[storage] failed to convert stored pool, skipping")
			conversionFailed++
			continue
		}

		pools = append(pools, pool)
	}

	if unmarshalFailed > 0 || conversionFailed > 0 {
		log.Error().
			Int("total_in_db", len(data)).
			Int("loaded", len(pools)).
			Int("unmarshal_failed", unmarshalFailed).
			Int("conversion_failed", conversionFailed).
			Msg("[storage] pool loading completed with errors")
	} else {
		log.Info().
			Int("total_in_db", len(data)).
			Int("loaded", len(pools)).
			Msg("[storage] pool loading completed successfully")
	}

	return pools, nil
}

func (s *Storage) GetPoolCount() (int, error) {
	data, err := s.db.List(PoolsBucket)
	if err != nil {
		return 0, err
	}
	return len(data), nil
}

func poolToStored(pool *domain.Pool) *StoredPool {
	reserveA := "0"
	reserveB := "0"
	if pool.ReserveA != nil {
		reserveA = pool.ReserveA.String()
	}
	if pool.ReserveB != nil {
		reserveB = pool.ReserveB.String()
	}

	return &StoredPool{
		Address:       pool.Address.String(),
		Curve:         uint8(pool.Curve),
		ProgramID:     pool.ProgramID.String(),
		TokenMintA:    pool.TokenMintA.String(),
		TokenMintB:    pool.TokenMintB.String(),
		TokenVaultA:   pool.TokenVaultA.String(),
		TokenVaultB:   pool.TokenVaultB.String(),
		ReserveA:      reserveA,
		ReserveB:      reserveB,
		FeeRateBps:    pool.FeeRateBps,
		AmpFactor:     pool.AmpFactor,
		Active:        pool.Active,
		LastRefreshed: pool.LastRefreshed.UnixMilli(),
	}
}

func storedToPool(stored *StoredPool) (*domain.Pool, error) {
	address, err := solana.PublicKeyFromBase58(stored.Address)
	if err != nil {
		return nil, fmt.Errorf("invalid address: %w", err)
	}

	programID, err := solana.PublicKeyFromBase58(stored.ProgramID)
	if err != nil {
		return nil, fmt.Errorf("invalid programId: %w", err)
	}

	tokenMintA, err := solana.PublicKeyFromBase58(stored.TokenMintA)
	if err != nil {
		return nil, fmt.Errorf("invalid tokenMintA: %w", err)
	}

	tokenMintB, err := solana.PublicKeyFromBase58(stored.TokenMintB)
	if err != nil {
		return nil, fmt.Errorf("invalid tokenMintB: %w", err)
	}

	tokenVaultA, err := solana.PublicKeyFromBase58(stored.TokenVaultA)
	if err != nil {
		return nil, fmt.Errorf("invalid tokenVaultA: %w", err)
	}

	tokenVaultB, err := solana.PublicKeyFromBase58(stored.TokenVaultB)
	if err != nil {
		return nil, fmt.Errorf("invalid tokenVaultB: %w", err)
	}

	curve := domain.CurveType(stored.Curve)
	if curve != domain.CurveConstantProduct && curve != domain.CurveStableSwap {
		return nil, fmt.Errorf("unknown curve %d", stored.Curve)
	}
	if curve == domain.CurveStableSwap && stored.AmpFactor == 0 {
		return nil, fmt.Errorf("stableswap pool with zero amp")
	}

	reserveA := new(big.Int)
	reserveA.SetString(stored.ReserveA, 10)

	reserveB := new(big.Int)
	reserveB.SetString(stored.ReserveB, 10)

	pool := &domain.Pool{
		Address:       address,
		Curve:         curve,
		ProgramID:     programID,
		TokenMintA:    tokenMintA,
		TokenMintB:    tokenMintB,
		TokenVaultA:   tokenVaultA,
		TokenVaultB:   tokenVaultB,
		ReserveA:      reserveA,
		ReserveB:      reserveB,
		FeeRateBps:    stored.FeeRateBps,
		AmpFactor:     stored.AmpFactor,
		Active:        stored.Active,
		LastRefreshed: time.UnixMilli(stored.LastRefreshed),
	}
	// Persisted pools come back with full state, routable once active.
	pool.Ready = reserveA.Sign() > 0 && reserveB.Sign() > 0
	pool.UpdateFlags()
	pool.SyncU64Reserves()

	return pool, nil
}
