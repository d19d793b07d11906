package http

import (
	gohttp "net/http"

	"github.com/gin-gonic/gin"

	"github.com/solpath/quote-engine/internal/http/httputil"
	"github.com/solpath/quote-engine/internal/services/tokens"
)

type TokenHandler struct {
	tokensSvc *tokens.Service
}

func NewTokenHandler(tokensSvc *tokens.Service) *TokenHandler {
	return &TokenHandler{tokensSvc: tokensSvc}
}

func (h *TokenHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listTokens)
	pub.GET("/:query", h.getToken)
	pub.GET("/:query/price", h.getTokenPrice)
}

func (h *TokenHandler) Root() string {
	return "/tokens"
}

// TokenResponse contains catalog metadata for one token
type TokenResponse struct {
	// Token mint address
	Mint string `json:"mint" example:"So11111111111111111111111111111111111111112"`

	// Token symbol
	Symbol string `json:"symbol" example:"SOL"`

	// Token display name
	Name string `json:"name" example:"Wrapped SOL"`

	// Token decimal places
	Decimals uint8 `json:"decimals" example:"9"`

	// Logo URI when known
	LogoURI string `json:"logoURI,omitempty"`
}

// TokenPriceResponse carries an indicative USD price
type TokenPriceResponse struct {
	// Token mint address
	Mint string `json:"mint" example:"So11111111111111111111111111111111111111112"`

	// USD price
	PriceUSD float64 `json:"priceUsd" example:"145.32"`
}

func (h *TokenHandler) listTokens(c *gin.Context) {
	infos := h.tokensSvc.List()
	out := make([]TokenResponse, 0, len(infos))
	for _, info := range infos {
		out = append(out, TokenResponse{
			Mint:     info.Mint.String(),
			Symbol:   info.Symbol,
			Name:     info.Name,
			Decimals: info.Decimals,
			LogoURI:  info.LogoURI,
		})
	}
	httputil.HandleSuccess(c, out)
}

// @Summary Look up a token
// @Description Resolve a token by mint address or symbol.
// @Tags tokens
// @Produce json
// @Param query path string true "Mint address or symbol" example("SOL")
// @Success 200 {object} TokenResponse
// @Failure 404 {object} httputil.Response "Unknown token"
// @Router /api/v1/tokens/{query} [get]
func (h *TokenHandler) getToken(c *gin.Context) {
	info, ok := h.tokensSvc.Resolve(c.Param("query"))
	if !ok {
		c.JSON(gohttp.StatusNotFound, gin.H{"error": "unknown token"})
		return
	}
	httputil.HandleSuccess(c, TokenResponse{
		Mint:     info.Mint.String(),
		Symbol:   info.Symbol,
		Name:     info.Name,
		Decimals: info.Decimals,
		LogoURI:  info.LogoURI,
	})
}

func (h *TokenHandler) getTokenPrice(c *gin.Context) {
	info, ok := h.tokensSvc.Resolve(c.Param("query"))
	if !ok {
		c.JSON(gohttp.StatusNotFound, gin.H{"error": "unknown token"})
		return
	}

	usd, err := h.tokensSvc.PriceUSD(c.Request.Context(), info.Mint)
	if err != nil {
		httputil.Error(c, gohttp.StatusServiceUnavailable, "price unavailable: "+err.Error())
		return
	}

	httputil.HandleSuccess(c, TokenPriceResponse{
		Mint:     info.Mint.String(),
		PriceUSD: usd,
	})
}
