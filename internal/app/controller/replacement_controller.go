package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bazaar-backend/internal/app/service"
	apperrors "github.com/ikkim/bazaar-backend/internal/errors"
	"github.com/ikkim/bazaar-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

type ReplacementController struct {
	replacements service.ReplacementService
	orders       OrderReader
}

func NewReplacementController(replacements service.ReplacementService, orders OrderReader) *ReplacementController {
	return &ReplacementController{
		replacements: replacements,
		orders:       orders,
	}
}

type ProposeReplacementRequest struct {
	ItemIndexes []int            `json:"item_indexes" binding:"required,min=1"`
	Suggestion  string           `json:"suggestion" binding:"required"`
	NewTotal    *decimal.Decimal `json:"new_total"`
}

type VerifyReplacementRequest struct {
	Accept        *bool            `json:"accept" binding:"required"`
	AdjustedTotal *decimal.Decimal `json:"adjusted_total"`
	Note          string           `json:"note"`
}

type PriceComparisonRequest struct {
	OriginalTotal    *decimal.Decimal `json:"original_total"`
	ReplacementTotal *decimal.Decimal `json:"replacement_total"`
	Difference       *decimal.Decimal `json:"difference"`
}

type ApplyReplacementRequest struct {
	ItemID                 uint                   `json:"item_id" binding:"required"`
	ReplacementProductID   uint                   `json:"replacement_product_id" binding:"required"`
	ReplacementProductName string                 `json:"replacement_product_name"`
	PriceComparison        PriceComparisonRequest `json:"price_comparison"`
	IdempotencyKey         string                 `json:"idempotency_key"`
}

// respondReplacementError reports item selection errors with the replacement code
func respondReplacementError(c *gin.Context, err error, action string) {
	if errors.Is(err, service.ErrInvalidItemSelection) {
		apperrors.BadRequest(c, apperrors.ReplacementInvalidItems, err.Error())
		return
	}
	respondError(c, err, action)
}

// ProposeReplacement offers substitutes for out-of-stock items
// POST /api/v1/orders/:id/replacement-proposals
func (ctrl *ReplacementController) ProposeReplacement(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ProposeReplacementRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := ctrl.replacements.ProposeReplacement(c.Request.Context(), id, req.ItemIndexes, req.Suggestion, req.NewTotal)
	if err != nil {
		respondReplacementError(c, err, "propose_replacement")
		return
	}

	log.Info("Replacement proposed", map[string]interface{}{
		"order_id": order.ID,
		"items":    order.ReplacementItems,
	})

	c.JSON(http.StatusCreated, gin.H{
		"order": order,
	})
}

// VerifyReplacement records the customer's answer to the proposal
// POST /api/v1/orders/:id/replacement-proposals/verify
func (ctrl *ReplacementController) VerifyReplacement(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req VerifyReplacementRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, ok := authorizeOrder(c, ctrl.orders, id); !ok {
		return
	}

	order, err := ctrl.replacements.VerifyReplacement(c.Request.Context(), id, *req.Accept, req.AdjustedTotal, req.Note)
	if err != nil {
		respondReplacementError(c, err, "verify_replacement")
		return
	}

	log.Info("Replacement verified", map[string]interface{}{
		"order_id": order.ID,
		"accepted": *req.Accept,
		"status":   order.ReplacementStatus,
	})

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// ApplyReplacement swaps one order line and applies its price difference
// POST /api/v1/orders/:id/replacements/apply
func (ctrl *ReplacementController) ApplyReplacement(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ApplyReplacementRequest
	if !bindJSON(c, &req) {
		return
	}

	input := service.ApplyReplacementInput{
		ItemID:                 req.ItemID,
		ReplacementProductID:   req.ReplacementProductID,
		ReplacementProductName: req.ReplacementProductName,
		PriceComparison: service.PriceComparison{
			OriginalTotal:    req.PriceComparison.OriginalTotal,
			ReplacementTotal: req.PriceComparison.ReplacementTotal,
			Difference:       req.PriceComparison.Difference,
		},
		IdempotencyKey: req.IdempotencyKey,
	}
	if key := c.GetHeader("Idempotency-Key"); input.IdempotencyKey == "" && key != "" {
		input.IdempotencyKey = key
	}
	if adminID, ok := middleware.GetUserID(c); ok {
		input.AppliedBy = &adminID
	}

	order, err := ctrl.replacements.ApplyReplacement(c.Request.Context(), id, input)
	if err != nil {
		respondReplacementError(c, err, "apply_replacement")
		return
	}

	log.Info("Replacement applied", map[string]interface{}{
		"order_id":     order.ID,
		"item_id":      req.ItemID,
		"total_amount": order.TotalAmount.String(),
	})

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}
