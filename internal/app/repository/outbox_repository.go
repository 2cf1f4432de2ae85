package repository

import (
	"context"
	"time"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OutboxRepository interface {
	WithTx(tx *gorm.DB) OutboxRepository
	// Enqueue inserts the event unless one with the same dedup key exists.
	// inserted is false for a duplicate.
	Enqueue(ctx context.Context, event *model.OutboxEvent) (bool, error)
	FindByID(ctx context.Context, id string) (*model.OutboxEvent, error)
	FindDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxEvent, error)
	FindPendingByOrder(ctx context.Context, orderID uint) ([]model.OutboxEvent, error)
	MarkDone(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastErr string, dead bool) error
	CountByStatus(ctx context.Context, status model.OutboxStatus) (int64, error)
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository {
	return &outboxRepository{db: db}
}

func (r *outboxRepository) WithTx(tx *gorm.DB) OutboxRepository {
	return &outboxRepository{db: tx}
}

func (r *outboxRepository) Enqueue(ctx context.Context, event *model.OutboxEvent) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "dedup_key"}}, DoNothing: true}).
		Create(event)
	if res.Error != nil {
		logger.Error("Failed to enqueue outbox event", res.Error, map[string]interface{}{
			"kind":      event.Kind,
			"order_id":  event.OrderID,
			"dedup_key": event.DedupKey,
		})
		return false, res.Error
	}

	inserted := res.RowsAffected > 0
	logger.Debug("Outbox event enqueued", map[string]interface{}{
		"kind":      event.Kind,
		"order_id":  event.OrderID,
		"dedup_key": event.DedupKey,
		"inserted":  inserted,
	})
	return inserted, nil
}

func (r *outboxRepository) FindByID(ctx context.Context, id string) (*model.OutboxEvent, error) {
	var event model.OutboxEvent
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&event).Error; err != nil {
		return nil, err
	}
	return &event, nil
}

func (r *outboxRepository) FindDue(ctx context.Context, now time.Time, limit int) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	if err := r.db.WithContext(ctx).
		Where("status = ? AND next_attempt_at <= ?", model.OutboxPending, now).
		Order("next_attempt_at ASC").
		Limit(limit).
		Find(&events).Error; err != nil {
		logger.Error("Failed to load due outbox events", err, nil)
		return nil, err
	}
	return events, nil
}

func (r *outboxRepository) FindPendingByOrder(ctx context.Context, orderID uint) ([]model.OutboxEvent, error) {
	var events []model.OutboxEvent
	if err := r.db.WithContext(ctx).
		Where("order_id = ? AND status = ?", orderID, model.OutboxPending).
		Order("created_at ASC").
		Find(&events).Error; err != nil {
		logger.Error("Failed to load pending outbox events for order", err, map[string]interface{}{
			"order_id": orderID,
		})
		return nil, err
	}
	return events, nil
}

func (r *outboxRepository) MarkDone(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     model.OutboxDone,
			"last_error": "",
		}).Error
}

func (r *outboxRepository) MarkFailed(ctx context.Context, id string, attempts int, nextAttemptAt time.Time, lastErr string, dead bool) error {
	status := model.OutboxPending
	if dead {
		status = model.OutboxDead
	}
	return r.db.WithContext(ctx).Model(&model.OutboxEvent{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":          status,
			"attempts":        attempts,
			"next_attempt_at": nextAttemptAt,
			"last_error":      lastErr,
		}).Error
}

func (r *outboxRepository) CountByStatus(ctx context.Context, status model.OutboxStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&model.OutboxEvent{}).Where("status = ?", status).Count(&count).Error
	return count, err
}
