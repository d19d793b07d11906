package http

import (
	"errors"
	"fmt"
	"math/big"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/solpath/quote-engine/internal/aggregator"
	"github.com/solpath/quote-engine/internal/common"
	"github.com/solpath/quote-engine/internal/domain"
	"github.com/solpath/quote-engine/internal/http/httputil"
	"github.com/solpath/quote-engine/internal/services/market"
	"github.com/solpath/quote-engine/internal/services/router"
)

type QuoteHandler struct {
	aggregatorSvc *aggregator.Service
}

func NewQuoteHandler(aggregatorSvc *aggregator.Service) *QuoteHandler {
	return &QuoteHandler{aggregatorSvc: aggregatorSvc}
}

func (h *QuoteHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.getQuote)
	pub.POST("", h.postQuote)
}

func (h *QuoteHandler) Root() string {
	return "/quote"
}

// QuoteRequest represents the parameters for requesting a swap quote
type QuoteRequest struct {
	// Input token mint address (Solana base58 public key)
	InputMint string `form:"inputMint" json:"inputMint" binding:"required" example:"So11111111111111111111111111111111111111112"`

	// Output token mint address (Solana base58 public key)
	OutputMint string `form:"outputMint" json:"outputMint" binding:"required" example:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`

	// Amount in smallest token units (lamports for SOL, base units for SPL tokens)
	Amount string `form:"amount" json:"amount" binding:"required" example:"1000000000"`

	// Slippage tolerance in basis points (1 bps = 0.01%)
	// Default: configured tolerance (50 bps)
	SlippageBps uint16 `form:"slippageBps" json:"slippageBps" example:"50"`

	// Optional wallet address; when present the quote reports whether
	// the wallet can fund the input amount
	UserWallet string `form:"userWallet" json:"userWallet" example:"D8f3WEYfyXLbQqVNjzm5UdR4sVcu7SiqkKXZtpsXrHVT"`

	// Optional route length cap in pools (1..4). Default: configured max
	MaxHops int `form:"maxHops" json:"maxHops" example:"3"`
}

// HopInfo describes a single hop in the winning route
type HopInfo struct {
	// Pool address used for this hop
	PoolAddress string `json:"poolAddress" example:"HJPjoWUrhoZzkNfRpHuieeFk9WcZWjwy6PBjZ81ngndJ"`

	// Pricing curve of the pool ("ConstantProduct" or "StableSwap")
	Curve string `json:"curve" example:"ConstantProduct"`

	// Input token mint for this hop
	InputMint string `json:"inputMint" example:"So11111111111111111111111111111111111111112"`

	// Output token mint for this hop
	OutputMint string `json:"outputMint" example:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`

	// Input amount for this hop in smallest units
	AmountIn string `json:"amountIn" example:"1000000000"`

	// Output amount for this hop in smallest units
	AmountOut string `json:"amountOut" example:"145320000"`

	// Fee paid on this hop in input token smallest units
	FeeAmount string `json:"feeAmount" example:"3000000"`

	// Price impact of this hop in basis points
	PriceImpactBps uint16 `json:"priceImpactBps" example:"12"`
}

// QuoteResponse contains the best quote with routing information
type QuoteResponse struct {
	// Input token mint address
	InputMint string `json:"inputMint" example:"So11111111111111111111111111111111111111112"`

	// Output token mint address
	OutputMint string `json:"outputMint" example:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`

	// Input amount in smallest token units
	AmountIn string `json:"amountIn" example:"1000000000"`

	// Estimated output amount in smallest token units
	AmountOut string `json:"amountOut" example:"145320000"`

	// Minimum acceptable output after applying slippage tolerance
	MinAmountOut string `json:"minAmountOut" example:"144593400"`

	// Sum of the fees charged across all hops in smallest token units
	TotalFee string `json:"totalFee" example:"3000000"`

	// Applied slippage tolerance in basis points
	SlippageBps uint16 `json:"slippageBps" example:"50"`

	// Cumulative price impact across all hops in basis points
	PriceImpactBps uint16 `json:"priceImpactBps" example:"25"`

	// Price impact severity classification
	PriceImpactSeverity string `json:"priceImpactSeverity" enums:"none,low,moderate,high,extreme" example:"low"`

	// User-facing warning about price impact, empty when negligible
	PriceImpactWarning string `json:"priceImpactWarning,omitempty" example:"Price impact is low"`

	// Complete token path from input to output
	RoutePath []string `json:"routePath"`

	// Per-hop fills for the winning route
	Hops []HopInfo `json:"hops"`

	// Number of hops in the winning route
	HopCount int `json:"hopCount" example:"1"`

	// Number of candidate routes considered
	CandidateCount int `json:"candidateCount" example:"4"`

	// Whether the wallet can fund the input amount. Only meaningful
	// when executableKnown is true
	Executable bool `json:"executable" example:"true"`

	// False when no wallet was given or the balance lookup failed
	ExecutableKnown bool `json:"executableKnown" example:"true"`
}

func (h *QuoteHandler) parseQuoteRequest(c *gin.Context) (*domain.QuoteRequest, bool) {
	var req QuoteRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid query parameters: "+err.Error())
		return nil, false
	}
	return h.validateQuoteRequest(c, req)
}

func (h *QuoteHandler) parseQuoteBody(c *gin.Context) (*domain.QuoteRequest, bool) {
	var req QuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid request body: "+err.Error())
		return nil, false
	}
	return h.validateQuoteRequest(c, req)
}

func (h *QuoteHandler) validateQuoteRequest(c *gin.Context, req QuoteRequest) (*domain.QuoteRequest, bool) {
	inputMint, err := solana.PublicKeyFromBase58(req.InputMint)
	if err != nil {
		httputil.HandleBadRequest(c, "invalid inputMint address")
		return nil, false
	}

	outputMint, err := solana.PublicKeyFromBase58(req.OutputMint)
	if err != nil {
		httputil.HandleBadRequest(c, "invalid outputMint address")
		return nil, false
	}

	amount, ok := new(big.Int).SetString(req.Amount, 10)
	if !ok || amount.Sign() <= 0 {
		httputil.HandleBadRequest(c, "invalid amount: must be a positive integer")
		return nil, false
	}

	if req.SlippageBps >= 10000 {
		httputil.HandleBadRequest(c, "invalid slippageBps: must be below 10000")
		return nil, false
	}

	if req.MaxHops < 0 || req.MaxHops > router.MaxSupportedHops {
		httputil.HandleBadRequest(c, fmt.Sprintf("invalid maxHops: must be 1..%d", router.MaxSupportedHops))
		return nil, false
	}

	parsed := &domain.QuoteRequest{
		InputMint:   inputMint,
		OutputMint:  outputMint,
		AmountIn:    amount,
		SlippageBps: req.SlippageBps,
		MaxHops:     req.MaxHops,
	}

	if req.UserWallet != "" {
		wallet, err := solana.PublicKeyFromBase58(req.UserWallet)
		if err != nil {
			httputil.HandleBadRequest(c, "invalid userWallet address")
			return nil, false
		}
		parsed.UserWallet = wallet
		parsed.HasWallet = true
	}

	return parsed, true
}

func buildQuoteResponse(quote *domain.AggregatedQuote) QuoteResponse {
	routePath := make([]string, 0, len(quote.Route))
	for _, mint := range quote.Route {
		routePath = append(routePath, mint.String())
	}

	hops := make([]HopInfo, 0, len(quote.Hops))
	for _, hop := range quote.Hops {
		if hop.Pool == nil {
			continue
		}
		hops = append(hops, HopInfo{
			PoolAddress:    hop.Pool.Address.String(),
			Curve:          hop.Pool.Curve.String(),
			InputMint:      hop.Pool.OutputMint(!hop.AToB).String(),
			OutputMint:     hop.Pool.OutputMint(hop.AToB).String(),
			AmountIn:       hop.AmountIn.String(),
			AmountOut:      hop.AmountOut.String(),
			FeeAmount:      hop.FeeAmount.String(),
			PriceImpactBps: hop.PriceImpactBps,
		})
	}

	return QuoteResponse{
		InputMint:           quote.InputMint.String(),
		OutputMint:          quote.OutputMint.String(),
		AmountIn:            quote.AmountIn.String(),
		AmountOut:           quote.AmountOut.String(),
		MinAmountOut:        quote.MinAmountOut.String(),
		TotalFee:            quote.TotalFee.String(),
		SlippageBps:         quote.SlippageBps,
		PriceImpactBps:      quote.PriceImpactBps,
		PriceImpactSeverity: string(router.GetPriceImpactSeverity(quote.PriceImpactBps)),
		PriceImpactWarning:  router.GetPriceImpactWarning(quote.PriceImpactBps),
		RoutePath:           routePath,
		Hops:                hops,
		HopCount:            len(quote.Hops),
		CandidateCount:      quote.CandidateCount,
		Executable:          quote.Executable,
		ExecutableKnown:     quote.ExecutableKnown,
	}
}

// mapQuoteError translates pipeline failures onto HTTP errors.
func mapQuoteError(err error) *common.HttpError {
	switch {
	case errors.Is(err, router.ErrNoRouteFound):
		return common.HTTPErrorNotFound("no route found between the token pair")
	case errors.Is(err, router.ErrInsufficientLiquidity):
		return common.HTTPErrorUnprocessable("insufficient liquidity for the requested amount")
	case errors.Is(err, router.ErrZeroAmount), errors.Is(err, router.ErrInvalidPool):
		return common.HTTPErrorBadRequest(err.Error())
	case errors.Is(err, aggregator.ErrStaleDataRejected), errors.Is(err, market.ErrDataFeedUnavailable):
		return common.HTTPErrorServiceUnavailable("pool data unavailable, try again")
	case errors.Is(err, aggregator.ErrQuoteTimeout):
		return common.HTTPErrorGatewayTimeout("quote timed out")
	default:
		return common.HTTPErrorInternalError(err.Error())
	}
}

// @Summary Get swap quote
// @Description Calculate the best exact-in swap quote for a token pair. Candidate routes
// @Description are discovered up to the configured hop limit, every candidate is simulated
// @Description against fresh pool state and the largest output wins.
// @Description
// @Description **Amount Format:**
// @Description - Use smallest token units (lamports for SOL, base units for SPL tokens)
// @Description - SOL (9 decimals): 1 SOL = 1000000000
// @Description - USDC (6 decimals): 1 USDC = 1000000
// @Tags quote
// @Produce json
// @Param inputMint query string true "Input token mint address" example("So11111111111111111111111111111111111111112")
// @Param outputMint query string true "Output token mint address" example("EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v")
// @Param amount query string true "Amount in smallest token units" example("1000000000")
// @Param slippageBps query int false "Slippage tolerance in basis points. Default: 50" default(50) example(50)
// @Param userWallet query string false "Wallet to check input funding against"
// @Param maxHops query int false "Route length cap in pools (1..4)" example(3)
// @Success 200 {object} QuoteResponse "Best quote with routing information"
// @Failure 400 {object} httputil.Response "Invalid request parameters"
// @Failure 404 {object} httputil.Response "No route found between the token pair"
// @Failure 422 {object} httputil.Response "No candidate route can absorb the amount"
// @Failure 503 {object} httputil.Response "Pool state stale and unrefreshable"
// @Failure 504 {object} httputil.Response "Quote deadline exceeded"
// @Router /api/v1/quote [get]
func (h *QuoteHandler) getQuote(c *gin.Context) {
	parsed, ok := h.parseQuoteRequest(c)
	if !ok {
		return
	}
	h.serveQuote(c, parsed)
}

// @Summary Get swap quote (JSON body)
// @Description Body-based variant of the quote endpoint. Accepts the same
// @Description parameters as the GET form in a JSON object.
// @Tags quote
// @Accept json
// @Produce json
// @Param request body QuoteRequest true "Quote parameters"
// @Success 200 {object} QuoteResponse "Best quote with routing information"
// @Failure 400 {object} httputil.Response "Invalid request parameters"
// @Failure 404 {object} httputil.Response "No route found between the token pair"
// @Failure 422 {object} httputil.Response "No candidate route can absorb the amount"
// @Failure 503 {object} httputil.Response "Pool state stale and unrefreshable"
// @Failure 504 {object} httputil.Response "Quote deadline exceeded"
// @Router /api/v1/quote [post]
func (h *QuoteHandler) postQuote(c *gin.Context) {
	parsed, ok := h.parseQuoteBody(c)
	if !ok {
		return
	}
	h.serveQuote(c, parsed)
}

func (h *QuoteHandler) serveQuote(c *gin.Context, req *domain.QuoteRequest) {
	quote, err := h.aggregatorSvc.Quote(c.Request.Context(), req)
	if err != nil {
		he := mapQuoteError(err)
		httputil.Error(c, he.StatusCode, he.Message)
		return
	}

	httputil.HandleSuccess(c, buildQuoteResponse(quote))
}
