// Package price fetches USD token prices with a short TTL cache so
// quote responses can carry indicative USD values without hammering
// the upstream API.
package price

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gagliardetto/solana-go"

	"github.com/solpath/quote-engine/internal/config"
)

const requestTimeout = 2 * time.Second

type cachedPrice struct {
	usd       float64
	fetchedAt time.Time
}

// Oracle resolves token mint USD prices.
type Oracle struct {
	apiURL string
	ttl    time.Duration
	client *http.Client

	mu    sync.RWMutex
	cache map[solana.PublicKey]cachedPrice
}

func NewOracle(cfg *config.TokensConfig) *Oracle {
	return &Oracle{
		apiURL: cfg.PriceAPIURL,
		ttl:    time.Duration(cfg.PriceCacheTTLSeconds) * time.Second,
		client: &http.Client{Timeout: requestTimeout},
		cache:  make(map[solana.PublicKey]cachedPrice),
	}
}

type priceResponse struct {
	Data map[string]struct {
		Price string `json:"price"`
	} `json:"data"`
}

// PriceUSD returns the USD price of a mint, serving from cache while
// fresh. Returns an error when no upstream is configured or the mint
// is unpriced.
func (o *Oracle) PriceUSD(ctx context.Context, mint solana.PublicKey) (float64, error) {
	if o.apiURL == "" {
		return 0, fmt.Errorf("no price API configured")
	}

	o.mu.RLock()
	if cached, ok := o.cache[mint]; ok && time.Since(cached.fetchedAt) < o.ttl {
		o.mu.RUnlock()
		return cached.usd, nil
	}
	o.mu.RUnlock()

	usd, err := o.fetch(ctx, mint)
	if err != nil {
		// Serve an expired entry over nothing while the upstream is down.
		o.mu.RLock()
		cached, ok := o.cache[mint]
		o.mu.RUnlock()
		if ok {
			return cached.usd, nil
		}
		return 0, err
	}

	o.mu.Lock()
	o.cache[mint] = cachedPrice{usd: usd, fetchedAt: time.Now()}
	o.mu.Unlock()
	return usd, nil
}

func (o *Oracle) fetch(ctx context.Context, mint solana.PublicKey) (float64, error) {
	reqURL := o.apiURL + "?ids=" + url.QueryEscape(mint.String())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return 0, err
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("price API request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("price API returned %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return 0, err
	}

	var parsed priceResponse
	if err := sonic.Unmarshal(body, &parsed); err != nil {
		return 0, fmt.Errorf("price API response: %w", err)
	}

	entry, ok := parsed.Data[mint.String()]
	if !ok {
		return 0, fmt.Errorf("no price for mint %s", mint)
	}

	usd, err := strconv.ParseFloat(entry.Price, 64)
	if err != nil {
		return 0, fmt.Errorf("unparseable price %q: %w", entry.Price, err)
	}
	return usd, nil
}
