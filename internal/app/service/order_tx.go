package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"gorm.io/gorm"
)

// orderTx is one locked read-modify-write of a single order row
type orderTx struct {
	ctx       context.Context
	tx        *gorm.DB
	order     *model.Order
	orders    repository.OrderRepository
	events    []*model.OutboxEvent
	unchanged bool
}

// noChange ends the mutation without writing, e.g. for a repeated request
func (t *orderTx) noChange() {
	t.unchanged = true
}

func (t *orderTx) enqueue(event *model.OutboxEvent, err error) error {
	if err != nil {
		return err
	}
	if event != nil {
		t.events = append(t.events, event)
	}
	return nil
}

// statusChanged queues the follow-ups of a committed status change
func (t *orderTx) statusChanged(status model.OrderStatus) error {
	if err := t.enqueue(newStatusUpdateEvent(t.order, status)); err != nil {
		return err
	}
	return t.enqueue(newShoppingListSyncEvent(t.order, status))
}

// orderMutator runs order mutations under a row lock and a version check,
// writes their outbox events in the same transaction and kicks the
// dispatcher once the commit succeeded.
type orderMutator struct {
	db         *gorm.DB
	orderRepo  repository.OrderRepository
	outboxRepo repository.OutboxRepository
	dispatcher *OutboxDispatcher
}

func newOrderMutator(db *gorm.DB, orderRepo repository.OrderRepository, outboxRepo repository.OutboxRepository, dispatcher *OutboxDispatcher) *orderMutator {
	return &orderMutator{
		db:         db,
		orderRepo:  orderRepo,
		outboxRepo: outboxRepo,
		dispatcher: dispatcher,
	}
}

func (m *orderMutator) mutate(ctx context.Context, orderID uint, action string, fn func(t *orderTx) error) (*model.Order, error) {
	tx := m.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		logger.Error("Failed to begin order transaction", tx.Error, map[string]interface{}{
			"order_id": orderID,
			"action":   action,
		})
		return nil, tx.Error
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			logger.Error("Panic during order mutation, rolling back", fmt.Errorf("panic: %v", r), map[string]interface{}{
				"order_id": orderID,
				"action":   action,
			})
			panic(r)
		}
	}()

	orders := m.orderRepo.WithTx(tx)
	order, err := orders.FindByIDForUpdate(ctx, orderID)
	if err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Order not found", map[string]interface{}{
				"order_id": orderID,
				"action":   action,
			})
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	t := &orderTx{ctx: ctx, tx: tx, order: order, orders: orders}
	if err := fn(t); err != nil {
		tx.Rollback()
		return nil, err
	}
	if t.unchanged {
		tx.Rollback()
		return order, nil
	}

	order.RecalculateTotal()
	if err := orders.SaveVersioned(ctx, order); err != nil {
		tx.Rollback()
		if errors.Is(err, repository.ErrStaleOrder) {
			return nil, ErrConcurrentModification
		}
		return nil, err
	}

	queued := 0
	outbox := m.outboxRepo.WithTx(tx)
	for _, event := range t.events {
		inserted, err := outbox.Enqueue(ctx, event)
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if inserted {
			queued++
		}
	}

	if err := tx.Commit().Error; err != nil {
		logger.Error("Failed to commit order transaction", err, map[string]interface{}{
			"order_id": orderID,
			"action":   action,
		})
		return nil, err
	}

	logger.Info("Order updated", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"action":       action,
		"status":       order.Status,
		"total_amount": order.TotalAmount.String(),
		"version":      order.Version,
		"events":       queued,
	})

	if queued > 0 && m.dispatcher != nil {
		m.dispatcher.DispatchOrder(ctx, order.ID)
	}
	return order, nil
}

// validateItemIndexes checks that every index points into items and appears once
func validateItemIndexes(order *model.Order, indexes []int) error {
	seen := make(map[int]bool, len(indexes))
	for _, idx := range indexes {
		if idx < 0 || idx >= len(order.Items) {
			return fmt.Errorf("%w: index %d out of range [0,%d)", ErrInvalidItemSelection, idx, len(order.Items))
		}
		if seen[idx] {
			return fmt.Errorf("%w: index %d selected twice", ErrInvalidItemSelection, idx)
		}
		seen[idx] = true
	}
	return nil
}

func toInt64s(values []int) []int64 {
	out := make([]int64, len(values))
	for i, v := range values {
		out[i] = int64(v)
	}
	return out
}

func toInts(values []int64) []int {
	out := make([]int, len(values))
	for i, v := range values {
		out[i] = int(v)
	}
	return out
}
