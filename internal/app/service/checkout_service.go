package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/pkg/delivery"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"github.com/ikkim/bazaar-backend/pkg/util"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var hundred = decimal.NewFromInt(100)

type OrderItemInput struct {
	ProductID   uint
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
}

type PlaceOrderInput struct {
	CustomerID      *uint
	CustomerName    string
	CustomerPhone   string
	CustomerEmail   string
	PaymentMethod   model.PaymentMethod
	DeliveryMethod  model.DeliveryMethod
	DeliveryAddress string
	DistanceKm      *float64
	Latitude        *float64
	Longitude       *float64
	PickupLocation  string
	Items           []OrderItemInput

	ShoppingListID    *uint
	ShoppingListText  string
	ShoppingListTotal decimal.Decimal
}

type CheckoutService interface {
	PlaceOrder(ctx context.Context, input PlaceOrderInput) (*model.Order, error)
	// PlaceOrderInTx creates the order inside the caller's transaction. The
	// caller dispatches the follow-ups after its commit.
	PlaceOrderInTx(ctx context.Context, tx *gorm.DB, input PlaceOrderInput) (*model.Order, error)
	QuoteDeliveryFee(distanceKm float64, orderTotal decimal.Decimal) (decimal.Decimal, error)
}

type StoreLocation struct {
	Latitude  float64
	Longitude float64
}

type checkoutService struct {
	db         *gorm.DB
	orderRepo  repository.OrderRepository
	creditRepo repository.CreditAccountRepository
	outboxRepo repository.OutboxRepository
	dispatcher *OutboxDispatcher
	fees       delivery.Settings
	store      StoreLocation
}

func NewCheckoutService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	creditRepo repository.CreditAccountRepository,
	outboxRepo repository.OutboxRepository,
	dispatcher *OutboxDispatcher,
	fees delivery.Settings,
	store StoreLocation,
) CheckoutService {
	return &checkoutService{
		db:         db,
		orderRepo:  orderRepo,
		creditRepo: creditRepo,
		outboxRepo: outboxRepo,
		dispatcher: dispatcher,
		fees:       fees,
		store:      store,
	}
}

func (s *checkoutService) QuoteDeliveryFee(distanceKm float64, orderTotal decimal.Decimal) (decimal.Decimal, error) {
	fee, err := delivery.Compute(distanceKm, orderTotal, s.fees)
	if err != nil {
		if errors.Is(err, delivery.ErrOutOfRange) {
			return decimal.Zero, ErrOutOfDeliveryArea
		}
		return decimal.Zero, fmt.Errorf("%w: %v", ErrInvalidDelivery, err)
	}
	return fee, nil
}

func (s *checkoutService) PlaceOrder(ctx context.Context, input PlaceOrderInput) (*model.Order, error) {
	logger.Info("Placing order", map[string]interface{}{
		"customer_id":     input.CustomerID,
		"payment_method":  input.PaymentMethod,
		"delivery_method": input.DeliveryMethod,
		"item_count":      len(input.Items),
	})

	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during order placement, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"customer_id": input.CustomerID,
			})
			panic(r)
		}
	}()

	order, err := s.PlaceOrderInTx(ctx, tx, input)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit order placement", err, map[string]interface{}{
			"customer_id": input.CustomerID,
		})
		return nil, err
	}

	if s.dispatcher != nil {
		s.dispatcher.DispatchOrder(ctx, order.ID)
	}
	return order, nil
}

func (s *checkoutService) PlaceOrderInTx(ctx context.Context, tx *gorm.DB, input PlaceOrderInput) (*model.Order, error) {
	if err := validatePlaceOrder(&input); err != nil {
		logger.Warn("Order placement rejected", map[string]interface{}{
			"customer_id": input.CustomerID,
			"error":       err.Error(),
		})
		return nil, err
	}

	order := &model.Order{
		CustomerID:        input.CustomerID,
		CustomerName:      strings.TrimSpace(input.CustomerName),
		CustomerPhone:     strings.TrimSpace(input.CustomerPhone),
		CustomerEmail:     strings.TrimSpace(input.CustomerEmail),
		PaymentMethod:     input.PaymentMethod,
		DeliveryMethod:    input.DeliveryMethod,
		ShoppingListID:    input.ShoppingListID,
		ShoppingListText:  input.ShoppingListText,
		ShoppingListTotal: input.ShoppingListTotal,
	}

	subtotal := decimal.Zero
	for i, in := range input.Items {
		lineTotal := in.UnitPrice.Mul(decimal.NewFromInt(int64(in.Quantity)))
		subtotal = subtotal.Add(lineTotal)
		order.Items = append(order.Items, model.OrderItem{
			Position:    i,
			ProductID:   in.ProductID,
			ProductName: strings.TrimSpace(in.ProductName),
			Quantity:    in.Quantity,
			UnitPrice:   in.UnitPrice,
			TotalPrice:  lineTotal,
		})
	}
	order.Subtotal = subtotal

	credits := s.creditRepo.WithTx(tx)
	var account *model.CreditAccount
	if input.CustomerID != nil {
		found, err := credits.FindByCustomerIDForUpdate(ctx, *input.CustomerID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		account = found
	}
	if account != nil && account.DiscountPercent.IsPositive() {
		order.BusinessDiscount = subtotal.Mul(account.DiscountPercent).Div(hundred).Round(2)
	}

	if order.DeliveryMethod == model.DeliveryMethodHome {
		distance, err := s.resolveDistance(input)
		if err != nil {
			return nil, err
		}
		fee, err := s.QuoteDeliveryFee(distance, subtotal.Sub(order.BusinessDiscount))
		if err != nil {
			return nil, err
		}
		order.DeliveryAddress = strings.TrimSpace(input.DeliveryAddress)
		order.DeliveryDistanceKm = distance
		order.DeliveryFee = fee
	} else {
		order.PickupLocation = strings.TrimSpace(input.PickupLocation)
	}

	order.RecalculateTotal()

	if order.PaymentMethod == model.PaymentMethodCredit {
		if account == nil {
			return nil, ErrCreditAccountRequired
		}
		if !account.CanCharge(order.TotalAmount) {
			logger.Warn("Credit limit exceeded", map[string]interface{}{
				"customer_id":         account.CustomerID,
				"outstanding_balance": account.OutstandingBalance.String(),
				"credit_limit":        account.CreditLimit.String(),
				"order_total":         order.TotalAmount.String(),
			})
			return nil, ErrCreditLimitExceeded
		}
		account.OutstandingBalance = account.OutstandingBalance.Add(order.TotalAmount)
		if err := credits.Update(ctx, account); err != nil {
			return nil, err
		}
	}

	if err := s.orderRepo.WithTx(tx).Create(ctx, order); err != nil {
		return nil, err
	}

	event, err := newStatusUpdateEvent(order, model.OrderStatusPending)
	if err != nil {
		return nil, err
	}
	if _, err := s.outboxRepo.WithTx(tx).Enqueue(ctx, event); err != nil {
		return nil, err
	}

	logger.Info("Order placed", map[string]interface{}{
		"order_id":          order.ID,
		"order_number":      order.OrderNumber,
		"subtotal":          order.Subtotal.String(),
		"business_discount": order.BusinessDiscount.String(),
		"delivery_fee":      order.DeliveryFee.String(),
		"total_amount":      order.TotalAmount.String(),
	})
	return order, nil
}

func (s *checkoutService) resolveDistance(input PlaceOrderInput) (float64, error) {
	if input.DistanceKm != nil {
		return *input.DistanceKm, nil
	}
	if input.Latitude != nil && input.Longitude != nil {
		if !util.ValidCoordinates(*input.Latitude, *input.Longitude) {
			return 0, fmt.Errorf("%w: invalid coordinates", ErrInvalidDelivery)
		}
		return delivery.DistanceFromStore(s.store.Latitude, s.store.Longitude, *input.Latitude, *input.Longitude), nil
	}
	return 0, fmt.Errorf("%w: distance or coordinates are required for home delivery", ErrInvalidDelivery)
}

func validatePlaceOrder(input *PlaceOrderInput) error {
	if len(input.Items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrInvalidOrderItems)
	}
	for i, item := range input.Items {
		if strings.TrimSpace(item.ProductName) == "" {
			return fmt.Errorf("%w: item %d has no product name", ErrInvalidOrderItems, i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("%w: item %d quantity must be at least 1", ErrInvalidOrderItems, i)
		}
		if item.UnitPrice.IsNegative() {
			return fmt.Errorf("%w: item %d price must not be negative", ErrInvalidOrderItems, i)
		}
	}

	if strings.TrimSpace(input.CustomerName) == "" || strings.TrimSpace(input.CustomerPhone) == "" {
		return fmt.Errorf("%w: customer name and phone are required", ErrValidation)
	}
	if !input.PaymentMethod.IsValid() {
		return fmt.Errorf("%w: unknown payment method %q", ErrValidation, input.PaymentMethod)
	}

	if input.DeliveryMethod == "" {
		input.DeliveryMethod = model.DeliveryMethodHome
	}
	switch input.DeliveryMethod {
	case model.DeliveryMethodHome:
		if strings.TrimSpace(input.DeliveryAddress) == "" {
			return fmt.Errorf("%w: delivery address is required", ErrInvalidDelivery)
		}
	case model.DeliveryMethodPickup:
	default:
		return fmt.Errorf("%w: unknown delivery method %q", ErrInvalidDelivery, input.DeliveryMethod)
	}
	return nil
}
