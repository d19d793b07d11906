package http

import (
	gohttp "net/http"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/solpath/quote-engine/internal/adapters/balance"
	"github.com/solpath/quote-engine/internal/http/httputil"
)

type BalanceHandler struct {
	provider balance.Provider
}

func NewBalanceHandler(provider balance.Provider) *BalanceHandler {
	return &BalanceHandler{provider: provider}
}

func (h *BalanceHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("/:wallet", h.getBalances)
}

func (h *BalanceHandler) Root() string {
	return "/balances"
}

// TokenBalanceInfo is one SPL token balance
type TokenBalanceInfo struct {
	// Token mint address
	Mint string `json:"mint" example:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`

	// Balance in smallest token units
	Amount string `json:"amount" example:"2500000"`
}

// WalletBalancesResponse contains a wallet's SOL and token balances
type WalletBalancesResponse struct {
	// Wallet address
	Wallet string `json:"wallet" example:"D8f3WEYfyXLbQqVNjzm5UdR4sVcu7SiqkKXZtpsXrHVT"`

	// Native SOL balance in lamports
	Lamports uint64 `json:"lamports" example:"1500000000"`

	// Non-zero SPL token balances
	Tokens []TokenBalanceInfo `json:"tokens"`
}

// @Summary Get wallet balances
// @Description Return a wallet's native SOL balance and all non-zero SPL token balances.
// @Tags balances
// @Produce json
// @Param wallet path string true "Wallet address" example("D8f3WEYfyXLbQqVNjzm5UdR4sVcu7SiqkKXZtpsXrHVT")
// @Success 200 {object} WalletBalancesResponse
// @Failure 400 {object} httputil.Response "Invalid wallet address"
// @Failure 503 {object} httputil.Response "Balance source unavailable"
// @Router /api/v1/balances/{wallet} [get]
func (h *BalanceHandler) getBalances(c *gin.Context) {
	wallet, err := solana.PublicKeyFromBase58(c.Param("wallet"))
	if err != nil {
		httputil.HandleBadRequest(c, "invalid wallet address")
		return
	}

	balances, err := h.provider.WalletBalances(c.Request.Context(), wallet)
	if err != nil {
		httputil.Error(c, gohttp.StatusServiceUnavailable, "balance lookup failed: "+err.Error())
		return
	}

	tokens := make([]TokenBalanceInfo, 0, len(balances.Tokens))
	for _, tb := range balances.Tokens {
		tokens = append(tokens, TokenBalanceInfo{
			Mint:   tb.Mint.String(),
			Amount: tb.Amount.String(),
		})
	}

	httputil.HandleSuccess(c, WalletBalancesResponse{
		Wallet:   balances.Wallet.String(),
		Lamports: balances.Lamports,
		Tokens:   tokens,
	})
}
