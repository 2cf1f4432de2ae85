package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bazaar-backend/internal/app/service"
	"github.com/shopspring/decimal"
)

type DeliveryController struct {
	checkout service.CheckoutService
}

func NewDeliveryController(checkout service.CheckoutService) *DeliveryController {
	return &DeliveryController{checkout: checkout}
}

type QuoteRequest struct {
	DistanceKm *float64        `json:"distance_km" binding:"required"`
	OrderTotal decimal.Decimal `json:"order_total"`
}

// Quote returns the delivery fee for a distance and basket value
// POST /api/v1/delivery-fee/quote
func (ctrl *DeliveryController) Quote(c *gin.Context) {
	var req QuoteRequest
	if !bindJSON(c, &req) {
		return
	}

	fee, err := ctrl.checkout.QuoteDeliveryFee(*req.DistanceKm, req.OrderTotal)
	if err != nil {
		respondError(c, err, "quote_delivery_fee")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"distance_km":  *req.DistanceKm,
		"order_total":  req.OrderTotal,
		"delivery_fee": fee,
		"free":         fee.IsZero(),
	})
}
