package repository

import (
	"context"
	"errors"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ShoppingListRepository interface {
	WithTx(tx *gorm.DB) ShoppingListRepository
	Create(ctx context.Context, list *model.ShoppingList) error
	FindByID(ctx context.Context, id uint) (*model.ShoppingList, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.ShoppingList, error)
	FindByPhoneAndText(ctx context.Context, phone, text string) (*model.ShoppingList, error)
	FindAll(ctx context.Context, status model.ShoppingListStatus) ([]model.ShoppingList, error)
	Update(ctx context.Context, list *model.ShoppingList) error
	UpdateStatus(ctx context.Context, id uint, status model.ShoppingListStatus) (bool, error)
}

type shoppingListRepository struct {
	db *gorm.DB
}

func NewShoppingListRepository(db *gorm.DB) ShoppingListRepository {
	return &shoppingListRepository{db: db}
}

func (r *shoppingListRepository) WithTx(tx *gorm.DB) ShoppingListRepository {
	return &shoppingListRepository{db: tx}
}

func (r *shoppingListRepository) Create(ctx context.Context, list *model.ShoppingList) error {
	if err := r.db.WithContext(ctx).Create(list).Error; err != nil {
		logger.Error("Failed to create shopping list in database", err, map[string]interface{}{
			"customer_phone": list.CustomerPhone,
		})
		return err
	}

	logger.Debug("Shopping list created in database", map[string]interface{}{
		"shopping_list_id": list.ID,
		"photo_count":      len(list.ListPhotos),
	})
	return nil
}

func (r *shoppingListRepository) FindByID(ctx context.Context, id uint) (*model.ShoppingList, error) {
	var list model.ShoppingList
	if err := r.db.WithContext(ctx).First(&list, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find shopping list in database", err, map[string]interface{}{
				"shopping_list_id": id,
			})
		}
		return nil, err
	}
	return &list, nil
}

func (r *shoppingListRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.ShoppingList, error) {
	var list model.ShoppingList
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&list, id).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

// FindByPhoneAndText resolves a list for orders that predate the shopping_list_id back-reference
func (r *shoppingListRepository) FindByPhoneAndText(ctx context.Context, phone, text string) (*model.ShoppingList, error) {
	var list model.ShoppingList
	if err := r.db.WithContext(ctx).
		Where("customer_phone = ? AND list_text = ?", phone, text).
		Order("created_at DESC").
		First(&list).Error; err != nil {
		return nil, err
	}
	return &list, nil
}

func (r *shoppingListRepository) FindAll(ctx context.Context, status model.ShoppingListStatus) ([]model.ShoppingList, error) {
	query := r.db.WithContext(ctx).Model(&model.ShoppingList{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var lists []model.ShoppingList
	if err := query.Order("created_at DESC").Find(&lists).Error; err != nil {
		logger.Error("Failed to list shopping lists in database", err, map[string]interface{}{
			"status": status,
		})
		return nil, err
	}
	return lists, nil
}

func (r *shoppingListRepository) Update(ctx context.Context, list *model.ShoppingList) error {
	if err := r.db.WithContext(ctx).Save(list).Error; err != nil {
		logger.Error("Failed to update shopping list in database", err, map[string]interface{}{
			"shopping_list_id": list.ID,
		})
		return err
	}
	return nil
}

// UpdateStatus moves the list forward to status. Writes that would repeat or
// undo progress are no-ops and report changed = false.
func (r *shoppingListRepository) UpdateStatus(ctx context.Context, id uint, status model.ShoppingListStatus) (bool, error) {
	from := status.AdvancesFrom()
	if len(from) == 0 {
		return false, nil
	}
	res := r.db.WithContext(ctx).Model(&model.ShoppingList{}).
		Where("id = ? AND status IN ?", id, from).
		Update("status", status)
	if res.Error != nil {
		logger.Error("Failed to update shopping list status in database", res.Error, map[string]interface{}{
			"shopping_list_id": id,
			"status":           status,
		})
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
