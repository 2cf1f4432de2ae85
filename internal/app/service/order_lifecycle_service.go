package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

const cancellationRefundReason = "User requested cancellation"

type OrderLifecycleService interface {
	GetOrder(ctx context.Context, orderID uint) (*model.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, int64, error)
	SetStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error)
	MarkPaymentCompleted(ctx context.Context, orderID uint) (*model.Order, error)
	Cancel(ctx context.Context, orderID uint) (*model.Order, error)
	CustomerCancel(ctx context.Context, orderID uint) (*model.Order, error)
}

type orderLifecycleService struct {
	*orderMutator
	creditRepo repository.CreditAccountRepository
}

func NewOrderLifecycleService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	creditRepo repository.CreditAccountRepository,
	outboxRepo repository.OutboxRepository,
	dispatcher *OutboxDispatcher,
) OrderLifecycleService {
	return &orderLifecycleService{
		orderMutator: newOrderMutator(db, orderRepo, outboxRepo, dispatcher),
		creditRepo:   creditRepo,
	}
}

func (s *orderLifecycleService) GetOrder(ctx context.Context, orderID uint) (*model.Order, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return order, nil
}

func (s *orderLifecycleService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]model.Order, int64, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, 0, fmt.Errorf("%w: %q", ErrInvalidStatus, filter.Status)
	}
	return s.orderRepo.FindAll(ctx, filter)
}

// SetStatus moves the order along the fulfillment graph. Repeating the
// current status returns the order unchanged and sends nothing.
func (s *orderLifecycleService) SetStatus(ctx context.Context, orderID uint, status model.OrderStatus) (*model.Order, error) {
	if !status.IsValid() {
		logger.Warn("Rejected unknown order status", map[string]interface{}{
			"order_id": orderID,
			"status":   status,
		})
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	return s.setStatus(ctx, orderID, status, "set_status", nil)
}

// setStatus applies a status change under the row lock. guard, when set,
// sees the locked order before the transition is checked.
func (s *orderLifecycleService) setStatus(ctx context.Context, orderID uint, status model.OrderStatus, action string, guard func(order *model.Order) error) (*model.Order, error) {
	return s.mutate(ctx, orderID, action, func(t *orderTx) error {
		order := t.order
		if guard != nil {
			if err := guard(order); err != nil {
				return err
			}
		}
		if order.Status == status {
			logger.Debug("Order already in requested status", map[string]interface{}{
				"order_id": order.ID,
				"status":   status,
			})
			t.noChange()
			return nil
		}

		if !CanTransition(order.Status, status) {
			logger.Warn("Rejected order status transition", map[string]interface{}{
				"order_id": order.ID,
				"from":     order.Status,
				"to":       status,
			})
			return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, status)
		}

		if status == model.OrderStatusCancelled {
			if err := s.settleCancellation(t); err != nil {
				return err
			}
		}

		order.Status = status
		return t.statusChanged(status)
	})
}

func (s *orderLifecycleService) Cancel(ctx context.Context, orderID uint) (*model.Order, error) {
	return s.SetStatus(ctx, orderID, model.OrderStatusCancelled)
}

// CustomerCancel cancels on the customer's behalf, which is only possible
// while the order is still pending
func (s *orderLifecycleService) CustomerCancel(ctx context.Context, orderID uint) (*model.Order, error) {
	return s.setStatus(ctx, orderID, model.OrderStatusCancelled, "customer_cancel", func(order *model.Order) error {
		if order.Status != model.OrderStatusPending {
			logger.Warn("Customer cancellation after confirmation", map[string]interface{}{
				"order_id": order.ID,
				"status":   order.Status,
			})
			return fmt.Errorf("%w: order is %s", ErrCustomerCancelNotAllowed, order.Status)
		}
		return nil
	})
}

func (s *orderLifecycleService) MarkPaymentCompleted(ctx context.Context, orderID uint) (*model.Order, error) {
	return s.mutate(ctx, orderID, "payment_completed", func(t *orderTx) error {
		if t.order.PaymentStatus == model.PaymentStatusCompleted {
			t.noChange()
			return nil
		}
		now := time.Now()
		t.order.PaymentStatus = model.PaymentStatusCompleted
		t.order.PaymentCompletedAt = &now
		return nil
	})
}

// settleCancellation returns the customer's money. Gateway payments are
// refunded in full, credit orders give the amount back to the credit line.
func (s *orderLifecycleService) settleCancellation(t *orderTx) error {
	order := t.order

	switch {
	case order.PaymentMethod.IsOnline():
		if order.PaymentStatus == model.PaymentStatusFailed {
			logger.Info("Cancelled order had a failed payment, nothing to refund", map[string]interface{}{
				"order_id": order.ID,
			})
			return nil
		}
		if order.RefundStatus == model.RefundStatusProcessed {
			logger.Info("Cancelled order already refunded", map[string]interface{}{
				"order_id":      order.ID,
				"refund_amount": order.RefundAmount.String(),
			})
			return nil
		}
		if !order.TotalAmount.IsPositive() {
			return nil
		}
		return t.processRefund(order.TotalAmount, cancellationRefundReason)

	case order.PaymentMethod == model.PaymentMethodCredit:
		return s.releaseCredit(t)
	}
	return nil
}

func (s *orderLifecycleService) releaseCredit(t *orderTx) error {
	order := t.order
	if order.CustomerID == nil {
		logger.Warn("Credit order without customer, skipping balance release", map[string]interface{}{
			"order_id": order.ID,
		})
		return nil
	}

	credits := s.creditRepo.WithTx(t.tx)
	account, err := credits.FindByCustomerIDForUpdate(t.ctx, *order.CustomerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Credit account not found for cancelled order", map[string]interface{}{
				"order_id":    order.ID,
				"customer_id": *order.CustomerID,
			})
			return nil
		}
		return err
	}

	balance := account.OutstandingBalance.Sub(order.TotalAmount)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	account.OutstandingBalance = balance
	return credits.Update(t.ctx, account)
}
