package controller

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/service"
	apperrors "github.com/ikkim/bazaar-backend/internal/errors"
	"github.com/ikkim/bazaar-backend/internal/middleware"
)

type errorMapping struct {
	target error
	status int
	code   string
}

// 서비스 오류 -> HTTP 상태/에러 코드
var serviceErrors = []errorMapping{
	{service.ErrOrderNotFound, http.StatusNotFound, apperrors.OrderNotFound},
	{service.ErrInvalidStatus, http.StatusBadRequest, apperrors.OrderInvalidStatus},
	{service.ErrInvalidTransition, http.StatusConflict, apperrors.OrderInvalidTransition},
	{service.ErrOrderClosed, http.StatusConflict, apperrors.OrderClosed},
	{service.ErrCustomerCancelNotAllowed, http.StatusConflict, apperrors.OrderInvalidTransition},
	{service.ErrConcurrentModification, http.StatusConflict, apperrors.ResourceConflict},

	{service.ErrRefundAlreadyRequested, http.StatusConflict, apperrors.RefundAlreadyRequested},
	{service.ErrAlreadyProcessed, http.StatusConflict, apperrors.RefundAlreadyProcessed},
	{service.ErrInvalidRefundAmount, http.StatusBadRequest, apperrors.RefundInvalidAmount},
	{service.ErrNoPendingRefundRequest, http.StatusConflict, apperrors.RefundNoPendingRequest},
	{service.ErrInvalidItemSelection, http.StatusBadRequest, apperrors.RefundInvalidItems},

	{service.ErrReplacementPending, http.StatusConflict, apperrors.ReplacementPending},
	{service.ErrNoPendingReplacement, http.StatusConflict, apperrors.ReplacementNotPending},
	{service.ErrReplacementAlreadyApplied, http.StatusConflict, apperrors.ReplacementAlreadyApplied},
	{service.ErrInvalidReplacementTotal, http.StatusBadRequest, apperrors.ReplacementInvalidTotal},

	{service.ErrInvalidOrderItems, http.StatusBadRequest, apperrors.OrderInvalidItems},
	{service.ErrInvalidDelivery, http.StatusBadRequest, apperrors.OrderInvalidDelivery},
	{service.ErrOutOfDeliveryArea, http.StatusUnprocessableEntity, apperrors.OrderOutOfDeliveryArea},
	{service.ErrCreditAccountRequired, http.StatusForbidden, apperrors.OrderCreditAccount},
	{service.ErrCreditLimitExceeded, http.StatusUnprocessableEntity, apperrors.OrderCreditLimit},

	{service.ErrShoppingListNotFound, http.StatusNotFound, apperrors.ShoppingListNotFound},
	{service.ErrShoppingListInvalidStatus, http.StatusConflict, apperrors.ShoppingListInvalidStatus},
	{service.ErrShoppingListEmpty, http.StatusBadRequest, apperrors.ShoppingListEmpty},

	{service.ErrValidation, http.StatusBadRequest, apperrors.ValidationInvalidInput},
}

// parsedStatus gives the status for codes produced by apperrors.ParseError
var parsedStatus = map[string]int{
	apperrors.ResourceNotFound:          http.StatusNotFound,
	apperrors.ReplacementAlreadyApplied: http.StatusConflict,
	apperrors.ResourceAlreadyExists:     http.StatusConflict,
	apperrors.ValidationRequired:        http.StatusBadRequest,
	apperrors.InternalExternalAPI:       http.StatusServiceUnavailable,
}

// respondError writes the error body for a failed service call
func respondError(c *gin.Context, err error, action string) {
	log := middleware.GetLoggerFromContext(c)

	for _, m := range serviceErrors {
		if errors.Is(err, m.target) {
			log.Warn("Request rejected", map[string]interface{}{
				"action": action,
				"code":   m.code,
				"error":  err.Error(),
			})
			apperrors.RespondWithError(c, m.status, m.code, err.Error())
			return
		}
	}

	info := apperrors.ParseError(err, action)
	status, ok := parsedStatus[info.Code]
	if !ok {
		status = http.StatusInternalServerError
	}
	log.Error("Request failed", err, map[string]interface{}{
		"action": action,
		"code":   info.Code,
	})
	apperrors.RespondWithError(c, status, info.Code, info.Message)
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	raw := c.Param(name)
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		middleware.GetLoggerFromContext(c).Warn("Invalid ID format", map[string]interface{}{
			"param": name,
			"value": raw,
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		middleware.GetLoggerFromContext(c).Warn("Invalid request body", map[string]interface{}{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "Invalid request body")
		return false
	}
	return true
}

// canAccessOrder allows staff and the customer who placed the order
func canAccessOrder(c *gin.Context, order *model.Order) bool {
	if middleware.IsStaff(c) {
		return true
	}
	userID, ok := middleware.GetUserID(c)
	return ok && order.CustomerID != nil && *order.CustomerID == userID
}

// OrderReader loads orders for ownership checks
type OrderReader interface {
	GetOrder(ctx context.Context, orderID uint) (*model.Order, error)
}

// authorizeOrder loads the order and answers 404 for orders the caller may
// not see, so order ids cannot be enumerated.
func authorizeOrder(c *gin.Context, orders OrderReader, orderID uint) (*model.Order, bool) {
	order, err := orders.GetOrder(c.Request.Context(), orderID)
	if err != nil {
		respondError(c, err, "load_order")
		return nil, false
	}
	if !canAccessOrder(c, order) {
		userID, _ := middleware.GetUserID(c)
		middleware.GetLoggerFromContext(c).Warn("Order access denied", map[string]interface{}{
			"order_id": orderID,
			"user_id":  userID,
		})
		apperrors.NotFound(c, apperrors.OrderNotFound, service.ErrOrderNotFound.Error())
		return nil, false
	}
	return order, true
}

func queryInt(c *gin.Context, name string, fallback int) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
