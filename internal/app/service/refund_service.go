package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type RefundDecision string

const (
	RefundDecisionApprove RefundDecision = "approve"
	RefundDecisionReject  RefundDecision = "reject"
)

type RefundService interface {
	RequestRefund(ctx context.Context, orderID uint, reason string, itemIndexes []int) (*model.Order, error)
	ResolveRefundRequest(ctx context.Context, orderID uint, decision RefundDecision, adminNote string) (*model.Order, error)
	DirectRefund(ctx context.Context, orderID uint, amount *decimal.Decimal, reason string) (*model.Order, error)
}

type refundService struct {
	*orderMutator
}

func NewRefundService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	outboxRepo repository.OutboxRepository,
	dispatcher *OutboxDispatcher,
) RefundService {
	return &refundService{
		orderMutator: newOrderMutator(db, orderRepo, outboxRepo, dispatcher),
	}
}

// RequestRefund records a customer's claim. An empty selection claims the whole order.
func (s *refundService) RequestRefund(ctx context.Context, orderID uint, reason string, itemIndexes []int) (*model.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: refund reason is required", ErrValidation)
	}

	return s.mutate(ctx, orderID, "request_refund", func(t *orderTx) error {
		order := t.order
		switch order.RefundRequestStatus {
		case model.RefundRequestPending, model.RefundRequestApproved:
			return fmt.Errorf("%w: request is %s", ErrRefundAlreadyRequested, order.RefundRequestStatus)
		}
		if order.RefundStatus == model.RefundStatusProcessed {
			return ErrAlreadyProcessed
		}
		if err := validateItemIndexes(order, itemIndexes); err != nil {
			logger.Warn("Refund request with invalid item selection", map[string]interface{}{
				"order_id": order.ID,
				"indexes":  itemIndexes,
			})
			return err
		}

		amount, label := order.TotalAmount, model.FullOrderLabel
		if len(itemIndexes) > 0 {
			amount = decimal.Zero
			for _, idx := range itemIndexes {
				amount = amount.Add(order.Items[idx].TotalPrice)
			}
			label = order.ItemNames(itemIndexes)
		}

		now := time.Now()
		order.RefundRequestStatus = model.RefundRequestPending
		order.RefundRequestedAmount = amount
		order.RefundRequestedItems = label
		order.RefundRequestedItemIndexes = toInt64s(itemIndexes)
		order.RefundRequestReason = reason
		order.RefundRequestedAt = &now
		order.RefundRejectionReason = ""

		logger.Info("Refund requested", map[string]interface{}{
			"order_id": order.ID,
			"amount":   amount.String(),
			"items":    label,
		})
		return nil
	})
}

func (s *refundService) ResolveRefundRequest(ctx context.Context, orderID uint, decision RefundDecision, adminNote string) (*model.Order, error) {
	if decision != RefundDecisionApprove && decision != RefundDecisionReject {
		return nil, fmt.Errorf("%w: decision must be approve or reject, got %q", ErrValidation, decision)
	}

	return s.mutate(ctx, orderID, "resolve_refund_request", func(t *orderTx) error {
		order := t.order

		if decision == RefundDecisionApprove && order.RefundStatus == model.RefundStatusProcessed {
			logger.Warn("Refund approval on an already processed order", map[string]interface{}{
				"order_id":      order.ID,
				"refund_amount": order.RefundAmount.String(),
			})
			return ErrAlreadyProcessed
		}
		if order.RefundRequestStatus != model.RefundRequestPending {
			return fmt.Errorf("%w: request is %s", ErrNoPendingRefundRequest, order.RefundRequestStatus)
		}

		if decision == RefundDecisionReject {
			order.RefundRequestStatus = model.RefundRequestRejected
			order.RefundRejectionReason = strings.TrimSpace(adminNote)
			logger.Info("Refund request rejected", map[string]interface{}{
				"order_id": order.ID,
			})
			return nil
		}

		amount, err := requestedRefundAmount(order)
		if err != nil {
			return err
		}
		if !amount.IsPositive() || amount.GreaterThan(order.TotalAmount) {
			return fmt.Errorf("%w: requested %s, order total is %s", ErrInvalidRefundAmount, amount.StringFixed(2), order.TotalAmount.StringFixed(2))
		}

		reason := order.RefundRequestReason
		if note := strings.TrimSpace(adminNote); note != "" {
			reason = fmt.Sprintf("%s (%s)", reason, note)
		}
		return t.processRefund(amount, reason)
	})
}

// requestedRefundAmount recomputes the claim from the item selection the
// customer made, against the line prices captured at checkout
func requestedRefundAmount(order *model.Order) (decimal.Decimal, error) {
	if len(order.RefundRequestedItemIndexes) == 0 || order.RefundRequestedItems == model.FullOrderLabel {
		return order.RefundRequestedAmount, nil
	}

	indexes := toInts(order.RefundRequestedItemIndexes)
	if err := validateItemIndexes(order, indexes); err != nil {
		return decimal.Zero, err
	}
	amount := decimal.Zero
	for _, idx := range indexes {
		amount = amount.Add(order.Items[idx].TotalPrice)
	}
	return amount, nil
}

// DirectRefund is an admin refund without a customer request. A nil amount refunds the full total.
func (s *refundService) DirectRefund(ctx context.Context, orderID uint, amount *decimal.Decimal, reason string) (*model.Order, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, fmt.Errorf("%w: refund reason is required", ErrValidation)
	}

	return s.mutate(ctx, orderID, "direct_refund", func(t *orderTx) error {
		order := t.order
		if order.RefundStatus == model.RefundStatusProcessed {
			logger.Warn("Direct refund on an already processed order", map[string]interface{}{
				"order_id":      order.ID,
				"refund_amount": order.RefundAmount.String(),
			})
			return ErrAlreadyProcessed
		}

		value := order.TotalAmount
		if amount != nil {
			value = *amount
		}
		if !value.IsPositive() || value.GreaterThan(order.TotalAmount) {
			return fmt.Errorf("%w: must be greater than 0 and at most %s", ErrInvalidRefundAmount, order.TotalAmount.StringFixed(2))
		}
		return t.processRefund(value, reason)
	})
}

// processRefund is the single place where refund money is recorded. Callers
// have checked that no refund was processed before.
func (t *orderTx) processRefund(amount decimal.Decimal, reason string) error {
	order := t.order
	now := time.Now()

	order.RefundStatus = model.RefundStatusProcessed
	order.RefundAmount = amount
	order.RefundDate = &now
	order.RefundReason = reason
	if order.RefundRequestStatus == model.RefundRequestPending {
		order.RefundRequestStatus = model.RefundRequestApproved
	}
	if order.Status == model.OrderStatusCompleted && amount.Equal(order.TotalAmount) {
		order.Status = model.OrderStatusRefunded
		if err := t.statusChanged(order.Status); err != nil {
			return err
		}
	}

	logger.Info("Refund processed", map[string]interface{}{
		"order_id":       order.ID,
		"amount":         amount.String(),
		"payment_method": order.PaymentMethod,
		"reason":         reason,
	})
	return t.enqueue(newRefundNoticeEvent(order))
}
