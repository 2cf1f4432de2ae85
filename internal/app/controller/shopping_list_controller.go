package controller

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/service"
	apperrors "github.com/ikkim/bazaar-backend/internal/errors"
	"github.com/ikkim/bazaar-backend/internal/middleware"
	"github.com/ikkim/bazaar-backend/internal/storage"
	"github.com/shopspring/decimal"
)

// PhotoPresigner issues upload URLs for shopping list photos
type PhotoPresigner interface {
	PresignPhotoUpload(ctx context.Context, filename, contentType string) (*storage.PresignedURLResponse, error)
}

type ShoppingListController struct {
	lists  service.ShoppingListService
	photos PhotoPresigner // nil when S3 is not configured
}

func NewShoppingListController(lists service.ShoppingListService, photos PhotoPresigner) *ShoppingListController {
	return &ShoppingListController{
		lists:  lists,
		photos: photos,
	}
}

type SubmitShoppingListRequest struct {
	CustomerName  string   `json:"customer_name" binding:"required"`
	CustomerPhone string   `json:"customer_phone" binding:"required"`
	CustomerEmail string   `json:"customer_email" binding:"omitempty,email"`
	ListText      string   `json:"list_text"`
	ListPhotos    []string `json:"list_photos" binding:"omitempty,dive,url"`
}

type PriceShoppingListRequest struct {
	EstimatedTotal decimal.Decimal `json:"estimated_total"`
	AdminNotes     string          `json:"admin_notes"`
}

type ConvertShoppingListRequest struct {
	PaymentMethod   model.PaymentMethod  `json:"payment_method"`
	DeliveryMethod  model.DeliveryMethod `json:"delivery_method"`
	DeliveryAddress string               `json:"delivery_address"`
	DistanceKm      *float64             `json:"distance_km"`
	Latitude        *float64             `json:"latitude"`
	Longitude       *float64             `json:"longitude"`
	PickupLocation  string               `json:"pickup_location"`
}

type PresignPhotoRequest struct {
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// Submit accepts a free-form shopping list from a customer or guest
// POST /api/v1/shopping-lists
func (ctrl *ShoppingListController) Submit(c *gin.Context) {
	var req SubmitShoppingListRequest
	if !bindJSON(c, &req) {
		return
	}

	input := service.SubmitShoppingListInput{
		CustomerName:  req.CustomerName,
		CustomerPhone: req.CustomerPhone,
		CustomerEmail: req.CustomerEmail,
		ListText:      req.ListText,
		ListPhotos:    req.ListPhotos,
	}
	if userID, ok := middleware.GetUserID(c); ok {
		input.CustomerID = &userID
	}

	list, err := ctrl.lists.Submit(c.Request.Context(), input)
	if err != nil {
		respondError(c, err, "submit_shopping_list")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"shopping_list": list,
	})
}

// PresignPhoto returns an upload URL for a list photo
// POST /api/v1/shopping-lists/photos/presign
func (ctrl *ShoppingListController) PresignPhoto(c *gin.Context) {
	if ctrl.photos == nil {
		apperrors.RespondWithError(c, http.StatusServiceUnavailable, apperrors.InternalExternalAPI, "Photo upload is not available")
		return
	}

	var req PresignPhotoRequest
	if !bindJSON(c, &req) {
		return
	}

	resp, err := ctrl.photos.PresignPhotoUpload(c.Request.Context(), req.Filename, req.ContentType)
	if err != nil {
		middleware.GetLoggerFromContext(c).Warn("Failed to presign photo upload", map[string]interface{}{
			"content_type": req.ContentType,
			"error":        err.Error(),
		})
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, err.Error())
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetShoppingList returns a list to its customer or to staff
// GET /api/v1/shopping-lists/:id
func (ctrl *ShoppingListController) GetShoppingList(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	list, err := ctrl.lists.GetShoppingList(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "get_shopping_list")
		return
	}

	userID, authenticated := middleware.GetUserID(c)
	owner := authenticated && list.CustomerID != nil && *list.CustomerID == userID
	if !owner && !middleware.IsStaff(c) {
		apperrors.NotFound(c, apperrors.ShoppingListNotFound, service.ErrShoppingListNotFound.Error())
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shopping_list": list,
	})
}

// ListShoppingLists returns lists for the admin queue
// GET /api/v1/admin/shopping-lists?status=
func (ctrl *ShoppingListController) ListShoppingLists(c *gin.Context) {
	lists, err := ctrl.lists.ListShoppingLists(c.Request.Context(), model.ShoppingListStatus(c.Query("status")))
	if err != nil {
		respondError(c, err, "list_shopping_lists")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shopping_lists": lists,
		"count":          len(lists),
	})
}

// Price records the admin estimate
// POST /api/v1/shopping-lists/:id/price
func (ctrl *ShoppingListController) Price(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req PriceShoppingListRequest
	if !bindJSON(c, &req) {
		return
	}

	list, err := ctrl.lists.Price(c.Request.Context(), id, req.EstimatedTotal, req.AdminNotes)
	if err != nil {
		respondError(c, err, "price_shopping_list")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shopping_list": list,
	})
}

// Convert turns a priced list into an order
// POST /api/v1/shopping-lists/:id/convert
func (ctrl *ShoppingListController) Convert(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req ConvertShoppingListRequest
	if !bindJSON(c, &req) {
		return
	}

	order, err := ctrl.lists.ConvertToOrder(c.Request.Context(), id, service.ConvertShoppingListInput{
		PaymentMethod:   req.PaymentMethod,
		DeliveryMethod:  req.DeliveryMethod,
		DeliveryAddress: req.DeliveryAddress,
		DistanceKm:      req.DistanceKm,
		Latitude:        req.Latitude,
		Longitude:       req.Longitude,
		PickupLocation:  req.PickupLocation,
	})
	if err != nil {
		respondError(c, err, "convert_shopping_list")
		return
	}

	log.Info("Shopping list converted", map[string]interface{}{
		"shopping_list_id": id,
		"order_id":         order.ID,
	})

	c.JSON(http.StatusCreated, gin.H{
		"order": order,
	})
}

// Cancel closes a list that was never converted
// POST /api/v1/shopping-lists/:id/cancel
func (ctrl *ShoppingListController) Cancel(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	list, err := ctrl.lists.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, err, "cancel_shopping_list")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"shopping_list": list,
	})
}
