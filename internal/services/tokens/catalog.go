// Package tokens maintains the token catalog: symbol and decimals
// metadata for mints the engine routes between, plus USD prices.
package tokens

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"
	"github.com/rs/zerolog/log"
	container "github.com/thehyperflames/dicontainer-go"

	"github.com/solpath/quote-engine/internal/adapters/price"
	"github.com/solpath/quote-engine/internal/common"
	"github.com/solpath/quote-engine/internal/config"
	"github.com/solpath/quote-engine/internal/domain"
)

const (
	TOKENS_SERVICE = "tokens.CatalogService"

	listFetchTimeout = 10 * time.Second
)

// Service is the token catalog. Reads are concurrent; the catalog is
// seeded with well-known mints and optionally extended from a remote
// token list at start.
type Service struct {
	container *container.DIContainer

	cfg    *config.TokensConfig
	oracle *price.Oracle
	client *http.Client

	mu       sync.RWMutex
	byMint   map[solana.PublicKey]*domain.TokenInfo
	bySymbol map[string]*domain.TokenInfo
}

func (svc *Service) ID() string {
	return TOKENS_SERVICE
}

func (svc *Service) Configure(c container.IContainer) error {
	svc.cfg = c.GetConfig(config.TOKENS_CONFIG_KEY).(*config.TokensConfig)
	svc.oracle = price.NewOracle(svc.cfg)
	svc.client = &http.Client{Timeout: listFetchTimeout}
	svc.byMint = make(map[solana.PublicKey]*domain.TokenInfo)
	svc.bySymbol = make(map[string]*domain.TokenInfo)

	svc.seed()
	return nil
}

func (svc *Service) Start() error {
	if svc.cfg.TokenListURL != "" {
		go svc.loadRemoteList()
	}
	return nil
}

func (svc *Service) Stop() error {
	return nil
}

func (svc *Service) seed() {
	seeds := []domain.TokenInfo{
		{Mint: common.WSOLMint, Symbol: "SOL", Name: "Wrapped SOL", Decimals: 9},
		{Mint: common.USDCMint, Symbol: "USDC", Name: "USD Coin", Decimals: 6},
		{Mint: common.USDTMint, Symbol: "USDT", Name: "USDT", Decimals: 6},
	}
	for i := range seeds {
		svc.put(&seeds[i])
	}
}

func (svc *Service) put(info *domain.TokenInfo) {
	svc.byMint[info.Mint] = info
	svc.bySymbol[strings.ToUpper(info.Symbol)] = info
}

// tokenListDocument matches the Solana token-list JSON shape.
type tokenListDocument struct {
	Tokens []struct {
		Address  string `json:"address"`
		Symbol   string `json:"symbol"`
		Name     string `json:"name"`
		Decimals uint8  `json:"decimals"`
		LogoURI  string `json:"logoURI"`
	} `json:"tokens"`
}

func (svc *Service) loadRemoteList() {
	ctx, cancel := context.WithTimeout(context.Background(), listFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, svc.cfg.TokenListURL, nil)
	if err != nil {
		log.Warn().Err(err).Msg("[tokenCatalog] bad token list URL")
		return
	}

	resp, err := svc.client.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("[tokenCatalog] token list fetch failed, running on seeds")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Warn().Int("status", resp.StatusCode).Msg("[tokenCatalog] token list fetch failed, running on seeds")
		return
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		log.Warn().Err(err).Msg("[tokenCatalog] token list read failed")
		return
	}

	var doc tokenListDocument
	if err := sonic.Unmarshal(body, &doc); err != nil {
		log.Warn().Err(err).Msg("[tokenCatalog] token list parse failed")
		return
	}

	added := 0
	svc.mu.Lock()
	for _, entry := range doc.Tokens {
		mint, err := solana.PublicKeyFromBase58(entry.Address)
		if err != nil {
			continue
		}
		if _, exists := svc.byMint[mint]; exists {
			continue
		}
		svc.put(&domain.TokenInfo{
			Mint:     mint,
			Symbol:   entry.Symbol,
			Name:     entry.Name,
			Decimals: entry.Decimals,
			LogoURI:  entry.LogoURI,
		})
		added++
	}
	svc.mu.Unlock()

	log.Info().Int("added", added).Msg("[tokenCatalog] token list loaded")
}

// Resolve looks a token up by mint address or symbol.
func (svc *Service) Resolve(query string) (*domain.TokenInfo, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()

	if mint, err := solana.PublicKeyFromBase58(query); err == nil {
		if info, ok := svc.byMint[mint]; ok {
			return info, true
		}
		return nil, false
	}

	info, ok := svc.bySymbol[strings.ToUpper(query)]
	return info, ok
}

// Get returns catalog metadata for a mint.
func (svc *Service) Get(mint solana.PublicKey) (*domain.TokenInfo, bool) {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	info, ok := svc.byMint[mint]
	return info, ok
}

// List returns all known tokens.
func (svc *Service) List() []*domain.TokenInfo {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	out := make([]*domain.TokenInfo, 0, len(svc.byMint))
	for _, info := range svc.byMint {
		out = append(out, info)
	}
	return out
}

// PriceUSD returns the cached-or-fetched USD price for a mint.
func (svc *Service) PriceUSD(ctx context.Context, mint solana.PublicKey) (float64, error) {
	if svc.oracle == nil {
		return 0, fmt.Errorf("price oracle not configured")
	}
	return svc.oracle.PriceUSD(ctx, mint)
}
