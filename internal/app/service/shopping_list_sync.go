package service

import (
	"context"
	"errors"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"gorm.io/gorm"
)

// ShoppingListSync projects order status changes onto the shopping list the
// order was converted from. The list only moves forward, so repeated or late
// deliveries of an older status are no-ops.
type ShoppingListSync struct {
	listRepo repository.ShoppingListRepository
}

func NewShoppingListSync(listRepo repository.ShoppingListRepository) *ShoppingListSync {
	return &ShoppingListSync{listRepo: listRepo}
}

func (s *ShoppingListSync) Apply(ctx context.Context, order *model.Order, status model.OrderStatus) error {
	target, ok := model.ShoppingListStatusFor(status)
	if !ok {
		return nil
	}

	list, err := s.resolve(ctx, order)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Linked shopping list not found, skipping sync", map[string]interface{}{
				"order_id":         order.ID,
				"shopping_list_id": order.ShoppingListID,
				"status":           status,
			})
			return nil
		}
		return err
	}

	changed, err := s.listRepo.UpdateStatus(ctx, list.ID, target)
	if err != nil {
		return err
	}

	logger.Info("Shopping list status synced from order", map[string]interface{}{
		"order_id":         order.ID,
		"shopping_list_id": list.ID,
		"status":           target,
		"changed":          changed,
	})
	return nil
}

// resolve prefers the back-reference and falls back to phone + list text for
// orders converted before the reference existed
func (s *ShoppingListSync) resolve(ctx context.Context, order *model.Order) (*model.ShoppingList, error) {
	if order.ShoppingListID != nil {
		return s.listRepo.FindByID(ctx, *order.ShoppingListID)
	}
	if order.CustomerPhone != "" && order.ShoppingListText != "" {
		return s.listRepo.FindByPhoneAndText(ctx, order.CustomerPhone, order.ShoppingListText)
	}
	return nil, gorm.ErrRecordNotFound
}
