package http

import (
	"math/big"
	gohttp "net/http"
	"sort"
	"strconv"

	"github.com/gagliardetto/solana-go"
	"github.com/gin-gonic/gin"

	"github.com/solpath/quote-engine/internal/domain"
	"github.com/solpath/quote-engine/internal/http/httputil"
	"github.com/solpath/quote-engine/internal/registry"
	"github.com/solpath/quote-engine/internal/services/market"
)

type PoolHandler struct {
	registry  *registry.Registry
	marketSvc *market.Service
}

func NewPoolHandler(reg *registry.Registry, marketSvc *market.Service) *PoolHandler {
	return &PoolHandler{registry: reg, marketSvc: marketSvc}
}

func (h *PoolHandler) SetRoutes(pub *gin.RouterGroup, private *gin.RouterGroup, admin *gin.RouterGroup) {
	pub.GET("", h.listPools)
	pub.GET("/stats", h.getStats)
	pub.GET("/list", h.listPools)
	pub.GET("/:address", h.getPool)

	admin.POST("", h.registerPool)
	admin.DELETE("/:address", h.removePool)
}

func (h *PoolHandler) Root() string {
	return "/pools"
}

// PoolStatsResponse contains aggregated statistics about tracked pools
type PoolStatsResponse struct {
	// Total number of tracked pools
	PoolCount int `json:"pool_count" example:"1247"`

	// Pools that are active, fully loaded and eligible for routing
	ReadyPoolCount int `json:"ready_pool_count" example:"1190"`
}

func (h *PoolHandler) getStats(c *gin.Context) {
	httputil.HandleSuccess(c, PoolStatsResponse{
		PoolCount:      h.registry.Len(),
		ReadyPoolCount: h.registry.ReadyLen(),
	})
}

// PoolInfo contains basic information about a liquidity pool
type PoolInfo struct {
	// Pool address (Solana public key)
	Address string `json:"address" example:"HJPjoWUrhoZzkNfRpHuieeFk9WcZWjwy6PBjZ81ngndJ"`

	// Pricing curve ("ConstantProduct" or "StableSwap")
	Curve string `json:"curve" example:"ConstantProduct"`

	// First token mint address in the pair
	TokenMintA string `json:"token_mint_a" example:"So11111111111111111111111111111111111111112"`

	// Second token mint address in the pair
	TokenMintB string `json:"token_mint_b" example:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`

	// Whether the pool is currently active and available for routing
	Active bool `json:"active" example:"true"`
}

// PoolListResponse contains a paginated list of pools
type PoolListResponse struct {
	// Pool information for the current page
	Pools []PoolInfo `json:"pools"`

	// Total number of pools across all pages
	Total int `json:"total" example:"1247"`

	// Current page number (1-indexed)
	Page int `json:"page" example:"1"`

	// Number of pools per page (max 500)
	Limit int `json:"limit" example:"100"`

	// Total number of pages available
	Pages int `json:"pages" example:"13"`
}

func (h *PoolHandler) listPools(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 100
	}
	if limit > 500 {
		limit = 500
	}

	allPools := h.registry.AllPools()
	sort.Slice(allPools, func(i, j int) bool {
		return allPools[i].Address.String() < allPools[j].Address.String()
	})
	total := len(allPools)

	pages := (total + limit - 1) / limit
	offset := (page - 1) * limit
	end := offset + limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	pools := make([]PoolInfo, 0, end-offset)
	for _, pool := range allPools[offset:end] {
		pools = append(pools, PoolInfo{
			Address:    pool.Address.String(),
			Curve:      pool.Curve.String(),
			TokenMintA: pool.TokenMintA.String(),
			TokenMintB: pool.TokenMintB.String(),
			Active:     pool.Active,
		})
	}

	httputil.HandleSuccess(c, PoolListResponse{
		Pools: pools,
		Total: total,
		Page:  page,
		Limit: limit,
		Pages: pages,
	})
}

// PoolDetailResponse contains detailed information about one pool
type PoolDetailResponse struct {
	// Pool address (Solana public key)
	Address string `json:"address" example:"HJPjoWUrhoZzkNfRpHuieeFk9WcZWjwy6PBjZ81ngndJ"`

	// Pricing curve
	Curve string `json:"curve" example:"StableSwap"`

	// Program ID that owns this pool
	ProgramID string `json:"program_id" example:"675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"`

	// First token mint address
	TokenMintA string `json:"token_mint_a" example:"So11111111111111111111111111111111111111112"`

	// Second token mint address
	TokenMintB string `json:"token_mint_b" example:"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"`

	// Token vault address for token A
	TokenVaultA string `json:"token_vault_a" example:"5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1"`

	// Token vault address for token B
	TokenVaultB string `json:"token_vault_b" example:"36c6YqAwyGKQG66XEp2dJc5JqjaBNv7sVghEtJv4c7u6"`

	// Current reserve of token A in smallest units
	ReserveA string `json:"reserve_a" example:"1234567890123"`

	// Current reserve of token B in smallest units
	ReserveB string `json:"reserve_b" example:"9876543210987"`

	// Pool fee rate in basis points
	FeeRateBps uint16 `json:"fee_rate_bps" example:"30"`

	// Amplification coefficient, stableswap pools only
	AmpFactor uint64 `json:"amp_factor,omitempty" example:"100"`

	// Whether the pool is currently active
	Active bool `json:"active" example:"true"`

	// Unix millisecond timestamp of the last successful state refresh
	LastRefreshed int64 `json:"last_refreshed" example:"1724932800000"`
}

func (h *PoolHandler) getPool(c *gin.Context) {
	address := c.Param("address")
	pool := h.registry.PoolByAddress(address)
	if pool == nil {
		c.JSON(gohttp.StatusNotFound, gin.H{"error": "pool not found"})
		return
	}

	c.JSON(gohttp.StatusOK, PoolDetailResponse{
		Address:       pool.Address.String(),
		Curve:         pool.Curve.String(),
		ProgramID:     pool.ProgramID.String(),
		TokenMintA:    pool.TokenMintA.String(),
		TokenMintB:    pool.TokenMintB.String(),
		TokenVaultA:   pool.TokenVaultA.String(),
		TokenVaultB:   pool.TokenVaultB.String(),
		ReserveA:      pool.ReserveA.String(),
		ReserveB:      pool.ReserveB.String(),
		FeeRateBps:    pool.FeeRateBps,
		AmpFactor:     pool.AmpFactor,
		Active:        pool.Active,
		LastRefreshed: pool.LastRefreshed.UnixMilli(),
	})
}

// RegisterPoolRequest describes a pool to start tracking
type RegisterPoolRequest struct {
	// Pool account address
	Address string `json:"address" binding:"required"`

	// Program ID that owns the pool
	ProgramID string `json:"programId" binding:"required"`

	// Pricing curve: "ConstantProduct" or "StableSwap"
	Curve string `json:"curve" binding:"required" enums:"ConstantProduct,StableSwap"`

	// Amplification coefficient, required for StableSwap
	AmpFactor uint64 `json:"ampFactor"`
}

// @Summary Register a pool
// @Description Start tracking a pool. Its on-chain state is fetched immediately so it
// @Description can serve quotes without waiting for the next refresh cycle.
// @Tags pools
// @Accept json
// @Produce json
// @Param body body RegisterPoolRequest true "Pool to register"
// @Success 200 {object} httputil.Response
// @Failure 400 {object} httputil.Response "Invalid pool description"
// @Router /api/v1/admin/pools [post]
func (h *PoolHandler) registerPool(c *gin.Context) {
	var req RegisterPoolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequest(c, "invalid body: "+err.Error())
		return
	}

	address, err := solana.PublicKeyFromBase58(req.Address)
	if err != nil {
		httputil.HandleBadRequest(c, "invalid pool address")
		return
	}
	programID, err := solana.PublicKeyFromBase58(req.ProgramID)
	if err != nil {
		httputil.HandleBadRequest(c, "invalid programId")
		return
	}

	var curve domain.CurveType
	switch req.Curve {
	case "ConstantProduct":
		curve = domain.CurveConstantProduct
	case "StableSwap":
		curve = domain.CurveStableSwap
		if req.AmpFactor == 0 {
			httputil.HandleBadRequest(c, "StableSwap pools require a non-zero ampFactor")
			return
		}
	default:
		httputil.HandleBadRequest(c, "invalid curve: must be ConstantProduct or StableSwap")
		return
	}

	pool := &domain.Pool{
		Address:   address,
		ProgramID: programID,
		Curve:     curve,
		AmpFactor: req.AmpFactor,
		Active:    true,
	}
	pool.UpdateReserves(big.NewInt(0), big.NewInt(0))

	if err := h.marketSvc.RegisterPool(c.Request.Context(), pool); err != nil {
		httputil.HandleInternalError(c, err.Error())
		return
	}

	httputil.HandleSuccess(c, gin.H{"address": address.String(), "registered": true})
}

// @Summary Remove a pool
// @Description Stop tracking a pool and drop it from routing and persistence.
// @Tags pools
// @Produce json
// @Param address path string true "Pool address"
// @Success 200 {object} httputil.Response
// @Failure 404 {object} httputil.Response "Pool not tracked"
// @Router /api/v1/admin/pools/{address} [delete]
func (h *PoolHandler) removePool(c *gin.Context) {
	address, err := solana.PublicKeyFromBase58(c.Param("address"))
	if err != nil {
		httputil.HandleBadRequest(c, "invalid pool address")
		return
	}

	if h.registry.PoolMutable(address) == nil {
		c.JSON(gohttp.StatusNotFound, gin.H{"error": "pool not found"})
		return
	}

	h.marketSvc.RemovePool(address)
	httputil.HandleSuccess(c, gin.H{"address": address.String(), "removed": true})
}
