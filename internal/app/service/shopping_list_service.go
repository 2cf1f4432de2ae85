package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type SubmitShoppingListInput struct {
	CustomerID    *uint
	CustomerName  string
	CustomerPhone string
	CustomerEmail string
	ListText      string
	ListPhotos    []string
}

type ConvertShoppingListInput struct {
	PaymentMethod   model.PaymentMethod // defaults to shopping_list
	DeliveryMethod  model.DeliveryMethod
	DeliveryAddress string
	DistanceKm      *float64
	Latitude        *float64
	Longitude       *float64
	PickupLocation  string
}

type ShoppingListService interface {
	Submit(ctx context.Context, input SubmitShoppingListInput) (*model.ShoppingList, error)
	GetShoppingList(ctx context.Context, id uint) (*model.ShoppingList, error)
	ListShoppingLists(ctx context.Context, status model.ShoppingListStatus) ([]model.ShoppingList, error)
	Price(ctx context.Context, id uint, estimatedTotal decimal.Decimal, adminNotes string) (*model.ShoppingList, error)
	ConvertToOrder(ctx context.Context, id uint, input ConvertShoppingListInput) (*model.Order, error)
	Cancel(ctx context.Context, id uint) (*model.ShoppingList, error)
}

type shoppingListService struct {
	db         *gorm.DB
	listRepo   repository.ShoppingListRepository
	checkout   CheckoutService
	dispatcher *OutboxDispatcher
}

func NewShoppingListService(
	db *gorm.DB,
	listRepo repository.ShoppingListRepository,
	checkout CheckoutService,
	dispatcher *OutboxDispatcher,
) ShoppingListService {
	return &shoppingListService{
		db:         db,
		listRepo:   listRepo,
		checkout:   checkout,
		dispatcher: dispatcher,
	}
}

func (s *shoppingListService) Submit(ctx context.Context, input SubmitShoppingListInput) (*model.ShoppingList, error) {
	text := strings.TrimSpace(input.ListText)
	var photos []string
	for _, p := range input.ListPhotos {
		if p = strings.TrimSpace(p); p != "" {
			photos = append(photos, p)
		}
	}
	if text == "" && len(photos) == 0 {
		return nil, ErrShoppingListEmpty
	}
	if strings.TrimSpace(input.CustomerName) == "" || strings.TrimSpace(input.CustomerPhone) == "" {
		return nil, fmt.Errorf("%w: customer name and phone are required", ErrValidation)
	}

	list := &model.ShoppingList{
		CustomerID:    input.CustomerID,
		CustomerName:  strings.TrimSpace(input.CustomerName),
		CustomerPhone: strings.TrimSpace(input.CustomerPhone),
		CustomerEmail: strings.TrimSpace(input.CustomerEmail),
		ListText:      text,
		ListPhotos:    photos,
		Status:        model.ShoppingListPending,
	}
	if err := s.listRepo.Create(ctx, list); err != nil {
		return nil, err
	}

	logger.Info("Shopping list submitted", map[string]interface{}{
		"shopping_list_id": list.ID,
		"photo_count":      len(photos),
	})
	return list, nil
}

func (s *shoppingListService) GetShoppingList(ctx context.Context, id uint) (*model.ShoppingList, error) {
	list, err := s.listRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShoppingListNotFound
		}
		return nil, err
	}
	return list, nil
}

func (s *shoppingListService) ListShoppingLists(ctx context.Context, status model.ShoppingListStatus) ([]model.ShoppingList, error) {
	return s.listRepo.FindAll(ctx, status)
}

// Price records the admin's estimate and marks the list ready for conversion.
// A ready list can be re-priced.
func (s *shoppingListService) Price(ctx context.Context, id uint, estimatedTotal decimal.Decimal, adminNotes string) (*model.ShoppingList, error) {
	if !estimatedTotal.IsPositive() {
		return nil, fmt.Errorf("%w: estimated total must be greater than 0", ErrValidation)
	}

	return s.withList(ctx, id, "price", func(tx *gorm.DB, list *model.ShoppingList) error {
		if list.Status != model.ShoppingListPending && list.Status != model.ShoppingListReady {
			return fmt.Errorf("%w: list is %s", ErrShoppingListInvalidStatus, list.Status)
		}
		list.EstimatedTotal = estimatedTotal
		list.AdminNotes = strings.TrimSpace(adminNotes)
		list.Status = model.ShoppingListReady
		return s.listRepo.WithTx(tx).Update(ctx, list)
	})
}

func (s *shoppingListService) Cancel(ctx context.Context, id uint) (*model.ShoppingList, error) {
	return s.withList(ctx, id, "cancel", func(tx *gorm.DB, list *model.ShoppingList) error {
		if list.Status != model.ShoppingListPending && list.Status != model.ShoppingListReady {
			return fmt.Errorf("%w: list is %s", ErrShoppingListInvalidStatus, list.Status)
		}
		list.Status = model.ShoppingListCancelled
		return s.listRepo.WithTx(tx).Update(ctx, list)
	})
}

// ConvertToOrder turns a priced list into an order carrying a back-reference
// to the list, and marks the list paid.
func (s *shoppingListService) ConvertToOrder(ctx context.Context, id uint, input ConvertShoppingListInput) (*model.Order, error) {
	var order *model.Order

	_, err := s.withList(ctx, id, "convert", func(tx *gorm.DB, list *model.ShoppingList) error {
		if list.Status != model.ShoppingListReady {
			return fmt.Errorf("%w: list is %s, it must be priced first", ErrShoppingListInvalidStatus, list.Status)
		}

		method := input.PaymentMethod
		if method == "" {
			method = model.PaymentMethodShoppingList
		}
		listID := list.ID
		created, err := s.checkout.PlaceOrderInTx(ctx, tx, PlaceOrderInput{
			CustomerID:      list.CustomerID,
			CustomerName:    list.CustomerName,
			CustomerPhone:   list.CustomerPhone,
			CustomerEmail:   list.CustomerEmail,
			PaymentMethod:   method,
			DeliveryMethod:  input.DeliveryMethod,
			DeliveryAddress: input.DeliveryAddress,
			DistanceKm:      input.DistanceKm,
			Latitude:        input.Latitude,
			Longitude:       input.Longitude,
			PickupLocation:  input.PickupLocation,
			Items: []OrderItemInput{{
				ProductName: fmt.Sprintf("Shopping list #%d", list.ID),
				Quantity:    1,
				UnitPrice:   list.EstimatedTotal,
			}},
			ShoppingListID:    &listID,
			ShoppingListText:  list.ListText,
			ShoppingListTotal: list.EstimatedTotal,
		})
		if err != nil {
			return err
		}

		list.Status = model.ShoppingListPaid
		list.OrderID = &created.ID
		if err := s.listRepo.WithTx(tx).Update(ctx, list); err != nil {
			return err
		}
		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	if s.dispatcher != nil {
		s.dispatcher.DispatchOrder(ctx, order.ID)
	}
	return order, nil
}

func (s *shoppingListService) withList(ctx context.Context, id uint, action string, fn func(tx *gorm.DB, list *model.ShoppingList) error) (*model.ShoppingList, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during shopping list update, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"shopping_list_id": id,
				"action":           action,
			})
			panic(r)
		}
	}()

	list, err := s.listRepo.WithTx(tx).FindByIDForUpdate(ctx, id)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrShoppingListNotFound
		}
		return nil, err
	}

	if err := fn(tx, list); err != nil {
		tx.Rollback()
		logger.Warn("Shopping list update rejected", map[string]interface{}{
			"shopping_list_id": id,
			"action":           action,
			"error":            err.Error(),
		})
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	logger.Info("Shopping list updated", map[string]interface{}{
		"shopping_list_id": list.ID,
		"action":           action,
		"status":           list.Status,
	})
	return list, nil
}
