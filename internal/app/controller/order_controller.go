package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/internal/app/service"
	apperrors "github.com/ikkim/bazaar-backend/internal/errors"
	"github.com/ikkim/bazaar-backend/internal/middleware"
	"github.com/shopspring/decimal"
)

type OrderController struct {
	lifecycle service.OrderLifecycleService
	checkout  service.CheckoutService
}

func NewOrderController(lifecycle service.OrderLifecycleService, checkout service.CheckoutService) *OrderController {
	return &OrderController{
		lifecycle: lifecycle,
		checkout:  checkout,
	}
}

type OrderItemRequest struct {
	ProductID   uint            `json:"product_id" binding:"required"`
	ProductName string          `json:"product_name" binding:"required"`
	Quantity    int             `json:"quantity" binding:"required,min=1"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
}

type PlaceOrderRequest struct {
	CustomerName    string               `json:"customer_name" binding:"required"`
	CustomerPhone   string               `json:"customer_phone" binding:"required"`
	CustomerEmail   string               `json:"customer_email" binding:"omitempty,email"`
	PaymentMethod   model.PaymentMethod  `json:"payment_method" binding:"required"`
	DeliveryMethod  model.DeliveryMethod `json:"delivery_method"`
	DeliveryAddress string               `json:"delivery_address"`
	DistanceKm      *float64             `json:"distance_km"`
	Latitude        *float64             `json:"latitude"`
	Longitude       *float64             `json:"longitude"`
	PickupLocation  string               `json:"pickup_location"`
	Items           []OrderItemRequest   `json:"items" binding:"required,min=1,dive"`
}

// SetStatusRequest accepts the snake_case field and the camelCase one older admin clients send
type SetStatusRequest struct {
	Status    model.OrderStatus `json:"status"`
	NewStatus model.OrderStatus `json:"newStatus"`
}

func (r SetStatusRequest) target() model.OrderStatus {
	if r.Status != "" {
		return r.Status
	}
	return r.NewStatus
}

// PlaceOrder creates an order from the storefront checkout
// POST /api/v1/orders
func (ctrl *OrderController) PlaceOrder(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	var req PlaceOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	input := service.PlaceOrderInput{
		CustomerName:    req.CustomerName,
		CustomerPhone:   req.CustomerPhone,
		CustomerEmail:   req.CustomerEmail,
		PaymentMethod:   req.PaymentMethod,
		DeliveryMethod:  req.DeliveryMethod,
		DeliveryAddress: req.DeliveryAddress,
		DistanceKm:      req.DistanceKm,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		PickupLocation:  req.PickupLocation,
	}
	if userID, ok := middleware.GetUserID(c); ok {
		input.CustomerID = &userID
	}
	for _, item := range req.Items {
		input.Items = append(input.Items, service.OrderItemInput{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitPrice,
		})
	}

	order, err := ctrl.checkout.PlaceOrder(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, "place_order")
		return
	}

	log.Info("Order placed", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"total_amount": order.TotalAmount.String(),
	})

	c.JSON(http.StatusCreated, gin.H{
		"order": order,
	})
}

// GetMyOrders returns the authenticated customer's orders
// GET /api/v1/orders
func (ctrl *OrderController) GetMyOrders(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		apperrors.Unauthorized(c, "")
		return
	}

	filter := repository.OrderFilter{
		CustomerID: &userID,
		Status:     model.OrderStatus(c.Query("status")),
	}
	ctrl.listOrders(c, filter)
}

// ListOrders returns orders for the fulfillment dashboard
// GET /api/v1/admin/orders?status=&limit=&offset=
func (ctrl *OrderController) ListOrders(c *gin.Context) {
	ctrl.listOrders(c, repository.OrderFilter{
		Status: model.OrderStatus(c.Query("status")),
	})
}

func (ctrl *OrderController) listOrders(c *gin.Context, filter repository.OrderFilter) {
	if filter.Status != "" && !filter.Status.IsValid() {
		apperrors.BadRequest(c, apperrors.OrderInvalidStatus, "Unknown order status")
		return
	}
	filter.Limit = queryInt(c, "limit", 20)
	filter.Offset = queryInt(c, "offset", 0)

	orders, total, err := ctrl.lifecycle.ListOrders(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "list_orders")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"orders": orders,
		"count":  len(orders),
		"total":  total,
	})
}

// GetOrder returns one order to its customer or to staff
// GET /api/v1/orders/:id
func (ctrl *OrderController) GetOrder(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, ok := authorizeOrder(c, ctrl.lifecycle, id)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// SetStatus moves the order through the fulfillment lifecycle
// POST /api/v1/orders/:id/status
func (ctrl *OrderController) SetStatus(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req SetStatusRequest
	if !bindJSON(c, &req) {
		return
	}
	if req.target() == "" {
		apperrors.BadRequest(c, apperrors.ValidationRequired, "status is required")
		return
	}

	order, err := ctrl.lifecycle.SetStatus(c.Request.Context(), id, req.target())
	if err != nil {
		respondError(c, err, "set_status")
		return
	}

	log.Info("Order status set", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
	})

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// MarkPaymentCompleted records a confirmed gateway payment
// POST /api/v1/orders/:id/payment/complete
func (ctrl *OrderController) MarkPaymentCompleted(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	order, err := ctrl.lifecycle.MarkPaymentCompleted(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "mark_payment_completed")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}

// Cancel cancels the order. Customers may cancel only before confirmation.
// POST /api/v1/orders/:id/cancel
func (ctrl *OrderController) Cancel(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, ok := authorizeOrder(c, ctrl.lifecycle, id); !ok {
		return
	}

	cancel := ctrl.lifecycle.CustomerCancel
	if middleware.IsStaff(c) {
		cancel = ctrl.lifecycle.Cancel
	}
	order, err := cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "cancel_order")
		return
	}

	log.Info("Order cancelled", map[string]interface{}{
		"order_id":      order.ID,
		"refund_status": order.RefundStatus,
	})

	c.JSON(http.StatusOK, gin.H{
		"order": order,
	})
}
