package chain

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/rs/zerolog/log"

	"github.com/solpath/quote-engine/internal/config"
)

const (
	// RPC hard cap on accounts per getMultipleAccounts call.
	maxAccountsPerFetch = 100

	fetchTimeout = 10 * time.Second
)

// PoolStateSource fetches current on-chain state for pool accounts.
type PoolStateSource interface {
	FetchPoolStates(ctx context.Context, addresses []solana.PublicKey) (map[solana.PublicKey]*PoolState, error)
}

// Client reads pool accounts over Solana JSON-RPC.
type Client struct {
	rpcClient *rpc.Client
}

func NewClient(cfg *config.RPCConfig) *Client {
	endpoint := cfg.RPCUrl
	if cfg.RPCApiKey != "" {
		endpoint = endpoint + "?api-key=" + cfg.RPCApiKey
	}
	return &Client{rpcClient: rpc.New(endpoint)}
}

// NewClientWithRPC wraps an existing RPC client, used by tests.
func NewClientWithRPC(rpcClient *rpc.Client) *Client {
	return &Client{rpcClient: rpcClient}
}

// FetchPoolStates loads and decodes the given pool accounts in batches.
// Accounts that do not exist on chain are absent from the result map.
// A transport failure aborts the whole call.
func (c *Client) FetchPoolStates(ctx context.Context, addresses []solana.PublicKey) (map[solana.PublicKey]*PoolState, error) {
	states := make(map[solana.PublicKey]*PoolState, len(addresses))

	for start := 0; start < len(addresses); start += maxAccountsPerFetch {
		end := start + maxAccountsPerFetch
		if end > len(addresses) {
			end = len(addresses)
		}
		batch := addresses[start:end]

		fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
		infos, err := c.rpcClient.GetMultipleAccountsWithOpts(fetchCtx, batch, &rpc.GetMultipleAccountsOpts{
			Commitment: rpc.CommitmentProcessed,
		})
		cancel()
		if err != nil {
			return nil, fmt.Errorf("getMultipleAccounts: %w", err)
		}

		for i, info := range infos.Value {
			if info == nil {
				continue
			}
			state, err := DecodePoolAccount(batch[i], info.Data.GetBinary())
			if err != nil {
				log.Warn().Err(err).Str("pool", batch[i].String()).Msg("skipping undecodable pool account")
				continue
			}
			states[batch[i]] = state
		}
	}

	return states, nil
}
