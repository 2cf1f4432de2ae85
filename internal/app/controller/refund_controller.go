package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bazaar-backend/internal/app/service"
	"github.com/ikkim/bazaar-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

type RefundController struct {
	refunds service.RefundService
	orders  OrderReader
}

func NewRefundController(refunds service.RefundService, orders OrderReader) *RefundController {
	return &RefundController{
		refunds: refunds,
		orders:  orders,
	}
}

type RefundRequestRequest struct {
	Reason      string `json:"reason" binding:"required"`
	ItemIndexes []int  `json:"item_indexes"` // 비어 있으면 전체 주문
}

type ResolveRefundRequest struct {
	Decision service.RefundDecision `json:"decision" binding:"required,oneof=approve reject"`
	Note     string                 `json:"note"`
}

type DirectRefundRequest struct {
	Amount *decimal.Decimal `json:"amount"` // 생략 시 주문 총액
	Reason string           `json:"reason" binding:"required"`
}

// RequestRefund files a customer refund request
// POST /api/v1/orders/:id/refund-requests
func (ctrl *RefundController) RequestRefund(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req RefundRequestRequest
	if !bindJSON(c, &req) {
		return
	}

	if _, ok := authorizeOrder(c, ctrl.orders, id); !ok {
		return
	}

	order, err := ctrl.refunds.RequestRefund(c.Request.Context(), id, req.Reason, req.ItemIndexes)
	if err != nil {
		respondError(c, err, "request_refund")
		return
	}

	log.Info("Refund requested", map[string]interface{}{
		"order_id":         order.ID,
		"requested_amount": order.RefundRequestedAmount.String(),
	})

	c.JSON(http.StatusCreated, gin.H{
		"order": order,
	})
}

// ResolveRefundRequest approves or rejects the pending request
// POST /api/v1/orders/:id/refund-requests/resolve
func (ctrl *RefundController) ResolveRefundRequest(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ResolveRefundRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := ctrl.refunds.ResolveRefundRequest(c.Request.Context(), id, req.Decision, req.Note)
	if err != nil {
		respondError(c, err, "resolve_refund_request")
		return
	}

	log.Info("Refund request resolved", map[string]interface{}{
		"order_id": order.ID,
		"decision": req.Decision,
	})

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// DirectRefund refunds without a customer request
// POST /api/v1/orders/:id/refunds
func (ctrl *RefundController) DirectRefund(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req DirectRefundRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := ctrl.refunds.DirectRefund(c.Request.Context(), id, req.Amount, req.Reason)
	if err != nil {
		respondError(c, err, "direct_refund")
		return
	}

	log.Info("Refund processed", map[string]interface{}{
		"order_id": order.ID,
		"amount":   order.RefundAmount.String(),
	})

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}
