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

// PriceComparison describes the swapped line. Difference wins when set,
// otherwise it is ReplacementTotal minus OriginalTotal.
type PriceComparison struct {
	OriginalTotal    *decimal.Decimal
	ReplacementTotal *decimal.Decimal
	Difference       *decimal.Decimal
}

type ApplyReplacementInput struct {
	ItemID                 uint
	ReplacementProductID   uint
	ReplacementProductName string
	PriceComparison        PriceComparison
	IdempotencyKey         string
	AppliedBy              *uint
}

type ReplacementService interface {
	ProposeReplacement(ctx context.Context, orderID uint, itemIndexes []int, suggestion string, newTotal *decimal.Decimal) (*model.Order, error)
	VerifyReplacement(ctx context.Context, orderID uint, accept bool, adjustedTotal *decimal.Decimal, note string) (*model.Order, error)
	ApplyReplacement(ctx context.Context, orderID uint, input ApplyReplacementInput) (*model.Order, error)
}

type replacementService struct {
	*orderMutator
}

func NewReplacementService(
	db *gorm.DB,
	orderRepo repository.OrderRepository,
	outboxRepo repository.OutboxRepository,
	dispatcher *OutboxDispatcher,
) ReplacementService {
	return &replacementService{
		orderMutator: newOrderMutator(db, orderRepo, outboxRepo, dispatcher),
	}
}

func ensureOpen(order *model.Order) error {
	if order.Status.IsTerminal() {
		return fmt.Errorf("%w: order is %s", ErrOrderClosed, order.Status)
	}
	return nil
}

// ProposeReplacement offers substitutes for out of stock lines. A nil
// newTotal keeps the current total.
func (s *replacementService) ProposeReplacement(ctx context.Context, orderID uint, itemIndexes []int, suggestion string, newTotal *decimal.Decimal) (*model.Order, error) {
	suggestion = strings.TrimSpace(suggestion)
	if suggestion == "" {
		return nil, fmt.Errorf("%w: replacement suggestion is required", ErrValidation)
	}

	return s.mutate(ctx, orderID, "propose_replacement", func(t *orderTx) error {
		order := t.order
		if err := ensureOpen(order); err != nil {
			return err
		}
		if order.ReplacementStatus == model.ReplacementPendingVerification {
			return ErrReplacementPending
		}
		if len(itemIndexes) == 0 {
			return fmt.Errorf("%w: select at least one item", ErrInvalidItemSelection)
		}
		if err := validateItemIndexes(order, itemIndexes); err != nil {
			return err
		}

		total := order.TotalAmount
		if newTotal != nil {
			total = *newTotal
		}
		if total.IsNegative() {
			return fmt.Errorf("%w: new total must not be negative", ErrInvalidReplacementTotal)
		}

		order.ReplacementStatus = model.ReplacementPendingVerification
		order.ReplacementItems = order.ItemNames(itemIndexes)
		order.ReplacementItemIndexes = toInt64s(itemIndexes)
		order.ReplacementSuggestion = suggestion
		order.ReplacementNewTotal = total
		order.ReplacementFinalTotal = decimal.Zero
		order.ReplacementCustomerNote = ""

		logger.Info("Replacement proposed", map[string]interface{}{
			"order_id":  order.ID,
			"items":     order.ReplacementItems,
			"new_total": total.String(),
		})
		return nil
	})
}

// VerifyReplacement records the customer's answer. Verification always closes
// the proposal: declining with a counter figure keeps it verified at that figure.
func (s *replacementService) VerifyReplacement(ctx context.Context, orderID uint, accept bool, adjustedTotal *decimal.Decimal, note string) (*model.Order, error) {
	if !accept && adjustedTotal == nil {
		return nil, fmt.Errorf("%w: adjusted total is required when declining the proposed total", ErrValidation)
	}

	return s.mutate(ctx, orderID, "verify_replacement", func(t *orderTx) error {
		order := t.order
		if order.ReplacementStatus != model.ReplacementPendingVerification {
			return fmt.Errorf("%w: replacement is %s", ErrNoPendingReplacement, order.ReplacementStatus)
		}

		final := order.ReplacementNewTotal
		if !accept {
			if adjustedTotal.IsNegative() {
				return fmt.Errorf("%w: adjusted total must not be negative", ErrInvalidReplacementTotal)
			}
			final = *adjustedTotal
		}

		order.ReplacementStatus = model.ReplacementVerified
		order.ReplacementFinalTotal = final
		order.ReplacementCustomerNote = strings.TrimSpace(note)

		logger.Info("Replacement verified by customer", map[string]interface{}{
			"order_id":    order.ID,
			"accepted":    accept,
			"final_total": final.String(),
		})
		return nil
	})
}

// ApplyReplacement books the price difference of one swapped line. Each line
// and each idempotency key can be applied once.
func (s *replacementService) ApplyReplacement(ctx context.Context, orderID uint, input ApplyReplacementInput) (*model.Order, error) {
	if input.ReplacementProductID == 0 {
		return nil, fmt.Errorf("%w: replacement product is required", ErrValidation)
	}
	if input.PriceComparison.Difference == nil && input.PriceComparison.ReplacementTotal == nil {
		return nil, fmt.Errorf("%w: price comparison needs a difference or a replacement total", ErrValidation)
	}

	return s.mutate(ctx, orderID, "apply_replacement", func(t *orderTx) error {
		order := t.order
		if err := ensureOpen(order); err != nil {
			return err
		}

		var item *model.OrderItem
		for i := range order.Items {
			if order.Items[i].ID == input.ItemID {
				item = &order.Items[i]
				break
			}
		}
		if item == nil {
			return fmt.Errorf("%w: item %d does not belong to order %d", ErrInvalidItemSelection, input.ItemID, order.ID)
		}

		existing, err := t.orders.FindReplacementApplication(t.ctx, order.ID, item.ID, input.IdempotencyKey)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if existing != nil {
			logger.Warn("Duplicate replacement application rejected", map[string]interface{}{
				"order_id":        order.ID,
				"order_item_id":   item.ID,
				"idempotency_key": input.IdempotencyKey,
			})
			return ErrReplacementAlreadyApplied
		}

		original := item.TotalPrice
		if input.PriceComparison.OriginalTotal != nil {
			original = *input.PriceComparison.OriginalTotal
		}
		var delta decimal.Decimal
		if input.PriceComparison.Difference != nil {
			delta = *input.PriceComparison.Difference
		} else {
			delta = input.PriceComparison.ReplacementTotal.Sub(original)
		}
		replacementTotal := original.Add(delta)

		adjustment := order.ReplacementAdjustmentTotal.Add(delta)
		preview := *order
		preview.ReplacementAdjustmentTotal = adjustment
		if preview.ExpectedTotal().IsNegative() {
			return fmt.Errorf("%w: difference %s would make the order total negative", ErrInvalidReplacementTotal, delta.StringFixed(2))
		}

		application := &model.ReplacementApplication{
			OrderID:              order.ID,
			OrderItemID:          item.ID,
			ReplacementProductID: input.ReplacementProductID,
			OriginalTotal:        original,
			ReplacementTotal:     replacementTotal,
			PriceDifference:      delta,
			AppliedBy:            input.AppliedBy,
		}
		if input.IdempotencyKey != "" {
			key := input.IdempotencyKey
			application.IdempotencyKey = &key
		}
		if err := t.orders.CreateReplacementApplication(t.ctx, application); err != nil {
			return err
		}

		productID := input.ReplacementProductID
		item.ReplacementProductID = &productID
		item.ReplacementProductName = strings.TrimSpace(input.ReplacementProductName)
		if err := t.orders.UpdateItem(t.ctx, item); err != nil {
			return err
		}

		order.ReplacementAdjustmentTotal = adjustment
		order.ReplacementPriceAdjustment = delta
		order.ReplacementStatus = model.ReplacementApprovedByAdmin

		logger.Info("Replacement applied", map[string]interface{}{
			"order_id":      order.ID,
			"order_item_id": item.ID,
			"difference":    delta.String(),
			"adjustment":    adjustment.String(),
		})

		// 대체 적용은 주문 확정을 겸함
		if order.Status == model.OrderStatusPending {
			order.Status = model.OrderStatusConfirmed
			return t.statusChanged(model.OrderStatusConfirmed)
		}
		return nil
	})
}
