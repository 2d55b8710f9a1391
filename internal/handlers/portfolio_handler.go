package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	apperrors "cryptoforge/internal/errors"
	"cryptoforge/internal/pagination"
	"cryptoforge/internal/services"
)

// PortfolioHandler handles balance queries and holding adjustments.
type PortfolioHandler struct {
	portfolioService services.PortfolioServicer
	mutator          services.HoldingMutatorServicer
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioService services.PortfolioServicer, mutator services.HoldingMutatorServicer) *PortfolioHandler {
	return &PortfolioHandler{portfolioService: portfolioService, mutator: mutator}
}

// AdjustHoldingRequest represents the request payload for a quantity adjustment.
// Delta is a decimal string so arbitrary precision survives JSON transport.
type AdjustHoldingRequest struct {
	Asset string `json:"asset" binding:"required,asset_symbol"`
	Delta string `json:"delta" binding:"required,decimal"`
}

// BalanceResponse represents a single-asset balance in the response.
type BalanceResponse struct {
	Asset   string `json:"asset"`
	Balance string `json:"balance"`
}

// GetBalance returns the balance of one asset
// @Summary     Get asset balance
// @Description Get the quantity held of a single asset; unknown assets resolve to zero
// @Tags        portfolio
// @Produce     json
// @Security    BearerAuth
// @Param       asset path string true "Asset symbol"
// @Success     200 {object} BalanceResponse "Balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /portfolio/balance/{asset} [get]
func (h *PortfolioHandler) GetBalance(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	asset := c.Param("asset")
	balance, err := h.portfolioService.BalanceOf(accountID, asset)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"asset":   asset,
		"balance": balance,
	})
}

// GetTotalValue returns the portfolio's total value
// @Summary     Get total portfolio value
// @Description Get sum(quantity x buy price) over all holdings
// @Tags        portfolio
// @Produce     json
// @Security    BearerAuth
// @Success     200 {object} map[string]interface{} "Total value"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /portfolio/value [get]
func (h *PortfolioHandler) GetTotalValue(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	total, err := h.portfolioService.TotalValue(accountID)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"total_value": total})
}

// ListHoldings returns a paginated list of the account's holdings
// @Summary     List holdings
// @Description Get the account's holdings in creation order
// @Tags        portfolio
// @Produce     json
// @Security    BearerAuth
// @Param       page query int false "Page number"
// @Param       page_size query int false "Page size"
// @Success     200 {object} map[string]interface{} "Holdings page"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Router      /portfolio/holdings [get]
func (h *PortfolioHandler) ListHoldings(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var page pagination.PageRequest
	if err := c.ShouldBindQuery(&page); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	resp, err := h.portfolioService.ListHoldings(accountID, page)
	if err != nil {
		respondWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// AdjustHolding submits an asynchronous quantity adjustment
// @Summary     Adjust a holding's quantity
// @Description Submit a signed quantity delta for one asset. The adjustment is applied asynchronously; pass wait=true to block until it resolves.
// @Tags        portfolio
// @Accept      json
// @Produce     json
// @Security    BearerAuth
// @Param       request body AdjustHoldingRequest true "Adjustment"
// @Param       wait query bool false "Wait for the adjustment to resolve"
// @Success     200 {object} map[string]interface{} "Adjustment committed (wait=true)"
// @Success     202 {object} map[string]interface{} "Adjustment accepted"
// @Failure     400 {object} ErrorResponse "Invalid input or insufficient balance"
// @Failure     401 {object} ErrorResponse "Unauthorized"
// @Failure     404 {object} ErrorResponse "Asset not held"
// @Router      /portfolio/holdings/adjust [post]
func (h *PortfolioHandler) AdjustHolding(c *gin.Context) {
	accountID, err := getAccountID(c)
	if err != nil {
		respondWithError(c, err)
		return
	}

	var req AdjustHoldingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, err.Error()))
		return
	}

	delta, err := decimal.NewFromString(req.Delta)
	if err != nil {
		respondWithError(c, apperrors.WithMessage(apperrors.ErrInvalidInput, "delta is not a valid decimal"))
		return
	}

	completion := h.mutator.AdjustQuantity(accountID, req.Asset, delta)

	if c.Query("wait") == "true" {
		if err := completion.Wait(c.Request.Context()); err != nil {
			respondWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"mutation_id": completion.ID(),
			"state":       completion.State().String(),
		})
		return
	}

	// Validation failures resolve synchronously even on the async path.
	if completion.State() == services.MutationRejected {
		respondWithError(c, completion.Err())
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"mutation_id": completion.ID(),
		"state":       completion.State().String(),
	})
}
