// Package balance resolves wallet token balances used to mark quotes
// executable. Lookups are best-effort: a failure never blocks a quote.
package balance

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/token"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solpath/quote-engine/internal/config"
	"github.com/solpath/quote-engine/internal/domain"
	"github.com/solpath/quote-engine/internal/metrics"
)

const lookupTimeout = 300 * time.Millisecond

// Provider resolves token balances for a wallet.
type Provider interface {
	TokenBalance(ctx context.Context, wallet, mint solana.PublicKey) (*big.Int, error)
	WalletBalances(ctx context.Context, wallet solana.PublicKey) (*domain.WalletBalances, error)
}

// RPCProvider reads balances over Solana JSON-RPC.
type RPCProvider struct {
	rpcClient *rpc.Client
}

func NewRPCProvider(cfg *config.RPCConfig) *RPCProvider {
	endpoint := cfg.RPCUrl
	if cfg.RPCApiKey != "" {
		endpoint = endpoint + "?api-key=" + cfg.RPCApiKey
	}
	return &RPCProvider{rpcClient: rpc.New(endpoint)}
}

func NewRPCProviderWithClient(rpcClient *rpc.Client) *RPCProvider {
	return &RPCProvider{rpcClient: rpcClient}
}

// TokenBalance returns the wallet's balance of the given mint. A wallet
// without an associated token account holds zero.
func (p *RPCProvider) TokenBalance(ctx context.Context, wallet, mint solana.PublicKey) (*big.Int, error) {
	ata, _, err := solana.FindAssociatedTokenAddress(wallet, mint)
	if err != nil {
		metrics.BalanceLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("derive token account: %w", err)
	}

	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	result, err := p.rpcClient.GetTokenAccountBalance(lookupCtx, ata, rpc.CommitmentConfirmed)
	if err != nil {
		// Missing account means the wallet never held this token.
		if isAccountNotFound(err) {
			metrics.BalanceLookups.WithLabelValues("ok").Inc()
			return big.NewInt(0), nil
		}
		metrics.BalanceLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("getTokenAccountBalance: %w", err)
	}
	if result == nil || result.Value == nil {
		metrics.BalanceLookups.WithLabelValues("ok").Inc()
		return big.NewInt(0), nil
	}

	amount, ok := new(big.Int).SetString(result.Value.Amount, 10)
	if !ok {
		metrics.BalanceLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("unparseable balance %q", result.Value.Amount)
	}

	metrics.BalanceLookups.WithLabelValues("ok").Inc()
	return amount, nil
}

// WalletBalances returns the wallet's SOL lamports and all SPL token
// balances.
func (p *RPCProvider) WalletBalances(ctx context.Context, wallet solana.PublicKey) (*domain.WalletBalances, error) {
	lookupCtx, cancel := context.WithTimeout(ctx, lookupTimeout)
	defer cancel()

	solResult, err := p.rpcClient.GetBalance(lookupCtx, wallet, rpc.CommitmentConfirmed)
	if err != nil {
		metrics.BalanceLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("getBalance: %w", err)
	}

	accounts, err := p.rpcClient.GetTokenAccountsByOwner(
		lookupCtx,
		wallet,
		&rpc.GetTokenAccountsConfig{ProgramId: solana.TokenProgramID.ToPointer()},
		&rpc.GetTokenAccountsOpts{Encoding: solana.EncodingBase64},
	)
	if err != nil {
		metrics.BalanceLookups.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("getTokenAccountsByOwner: %w", err)
	}

	balances := &domain.WalletBalances{
		Wallet:   wallet,
		Lamports: solResult.Value,
		Tokens:   make([]domain.TokenBalance, 0, len(accounts.Value)),
	}

	for _, acct := range accounts.Value {
		var state token.Account
		if err := bin.NewBinDecoder(acct.Account.Data.GetBinary()).Decode(&state); err != nil {
			continue
		}
		if state.Amount == 0 {
			continue
		}
		balances.Tokens = append(balances.Tokens, domain.TokenBalance{
			Mint:   state.Mint,
			Amount: new(big.Int).SetUint64(state.Amount),
		})
	}

	metrics.BalanceLookups.WithLabelValues("ok").Inc()
	return balances, nil
}

func isAccountNotFound(err error) bool {
	if err == nil {
		return false
	}
	// The RPC surfaces missing accounts as a JSON-RPC error whose
	// message mentions the account; match loosely.
	msg := err.Error()
	return strings.Contains(msg, "could not find account") ||
		strings.Contains(msg, "not found") ||
		strings.Contains(msg, "Invalid param")
}
