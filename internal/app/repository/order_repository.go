package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrStaleOrder is returned when a versioned write lost the race against
// another writer of the same order row.
var ErrStaleOrder = errors.New("order was modified concurrently")

type OrderFilter struct {
	Status     model.OrderStatus
	CustomerID *uint
	Limit      int
	Offset     int
}

type OrderRepository interface {
	WithTx(tx *gorm.DB) OrderRepository
	Create(ctx context.Context, order *model.Order) error
	FindByID(ctx context.Context, id uint) (*model.Order, error)
	FindByIDForUpdate(ctx context.Context, id uint) (*model.Order, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error)
	FindRefundedBetween(ctx context.Context, from, to time.Time) ([]model.Order, error)
	SaveVersioned(ctx context.Context, order *model.Order) error
	UpdateItem(ctx context.Context, item *model.OrderItem) error
	FindReplacementApplication(ctx context.Context, orderID, itemID uint, idempotencyKey string) (*model.ReplacementApplication, error)
	CreateReplacementApplication(ctx context.Context, app *model.ReplacementApplication) error
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func (r *orderRepository) WithTx(tx *gorm.DB) OrderRepository {
	return &orderRepository{db: tx}
}

func (r *orderRepository) preloadOrder(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	})
}

func (r *orderRepository) Create(ctx context.Context, order *model.Order) error {
	logger.Debug("Creating order in database", map[string]interface{}{
		"customer_id":    order.CustomerID,
		"payment_method": order.PaymentMethod,
		"total_amount":   order.TotalAmount.String(),
	})

	if err := r.db.WithContext(ctx).Create(order).Error; err != nil {
		logger.Error("Failed to create order in database", err, map[string]interface{}{
			"customer_id":    order.CustomerID,
			"payment_method": order.PaymentMethod,
		})
		return err
	}

	logger.Debug("Order created in database", map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"item_count":   len(order.Items),
	})
	return nil
}

func (r *orderRepository) FindByID(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	if err := r.preloadOrder(ctx).First(&order, id).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to find order by ID in database", err, map[string]interface{}{
				"order_id": id,
			})
		}
		return nil, err
	}

	logger.Debug("Order found by ID in database", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
		"version":  order.Version,
	})
	return &order, nil
}

// FindByIDForUpdate reads the order under a row lock. Only meaningful inside a transaction.
func (r *orderRepository) FindByIDForUpdate(ctx context.Context, id uint) (*model.Order, error) {
	var order model.Order
	err := r.preloadOrder(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&order, id).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Error("Failed to lock order in database", err, map[string]interface{}{
				"order_id": id,
			})
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) FindAll(ctx context.Context, filter OrderFilter) ([]model.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&model.Order{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		logger.Error("Failed to count orders in database", err, map[string]interface{}{
			"status": filter.Status,
		})
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	var orders []model.Order
	if err := query.Session(&gorm.Session{}).Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("position ASC")
	}).Order("created_at DESC").Limit(limit).Offset(filter.Offset).Find(&orders).Error; err != nil {
		logger.Error("Failed to list orders in database", err, map[string]interface{}{
			"status": filter.Status,
		})
		return nil, 0, err
	}

	logger.Debug("Orders listed from database", map[string]interface{}{
		"status": filter.Status,
		"count":  len(orders),
		"total":  total,
	})
	return orders, total, nil
}

func (r *orderRepository) FindRefundedBetween(ctx context.Context, from, to time.Time) ([]model.Order, error) {
	var orders []model.Order
	if err := r.db.WithContext(ctx).
		Where("refund_status = ? AND refund_date >= ? AND refund_date < ?", model.RefundStatusProcessed, from, to).
		Order("refund_date ASC").
		Find(&orders).Error; err != nil {
		logger.Error("Failed to find refunded orders in database", err, map[string]interface{}{
			"from": from,
			"to":   to,
		})
		return nil, err
	}
	return orders, nil
}

// SaveVersioned writes every column of the order if, and only if, the stored
// version still matches the one that was read. The version is bumped on success.
func (r *orderRepository) SaveVersioned(ctx context.Context, order *model.Order) error {
	prev := order.Version
	order.Version = prev + 1

	res := r.db.WithContext(ctx).Model(order).
		Where("version = ?", prev).
		Select("*").
		Omit("Items", "CreatedAt").
		Updates(order)
	if res.Error != nil {
		order.Version = prev
		logger.Error("Failed to update order in database", res.Error, map[string]interface{}{
			"order_id": order.ID,
			"version":  prev,
		})
		return res.Error
	}
	if res.RowsAffected == 0 {
		order.Version = prev
		logger.Warn("Order version conflict", map[string]interface{}{
			"order_id": order.ID,
			"version":  prev,
		})
		return ErrStaleOrder
	}

	logger.Debug("Order updated in database", map[string]interface{}{
		"order_id": order.ID,
		"status":   order.Status,
		"version":  order.Version,
	})
	return nil
}

func (r *orderRepository) UpdateItem(ctx context.Context, item *model.OrderItem) error {
	if err := r.db.WithContext(ctx).Save(item).Error; err != nil {
		logger.Error("Failed to update order item in database", err, map[string]interface{}{
			"order_id": item.OrderID,
			"item_id":  item.ID,
		})
		return err
	}
	return nil
}

// FindReplacementApplication looks for an earlier application of the same
// line or the same idempotency key. It returns gorm.ErrRecordNotFound when none exists.
func (r *orderRepository) FindReplacementApplication(ctx context.Context, orderID, itemID uint, idempotencyKey string) (*model.ReplacementApplication, error) {
	query := r.db.WithContext(ctx).Where("order_id = ? AND order_item_id = ?", orderID, itemID)
	if idempotencyKey != "" {
		query = query.Or("idempotency_key = ?", idempotencyKey)
	}

	var app model.ReplacementApplication
	if err := query.First(&app).Error; err != nil {
		return nil, err
	}
	return &app, nil
}

func (r *orderRepository) CreateReplacementApplication(ctx context.Context, app *model.ReplacementApplication) error {
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		logger.Error("Failed to record replacement application", err, map[string]interface{}{
			"order_id":      app.OrderID,
			"order_item_id": app.OrderItemID,
		})
		return err
	}
	return nil
}
