package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"gorm.io/gorm"
)

// errPermanent marks an event that can never succeed; it goes straight to dead
var errPermanent = errors.New("permanent outbox failure")

type DispatcherConfig struct {
	Timeout     time.Duration // upper bound for one dispatch pass
	MaxAttempts int
	BatchSize   int
	ClaimTTL    time.Duration
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Async       bool // dispatch after commit in a goroutine
}

// OutboxDispatcher delivers the follow-ups of committed order changes:
// notifications and the shopping list projection. Delivery is at least once.
type OutboxDispatcher struct {
	outboxRepo repository.OutboxRepository
	orderRepo  repository.OrderRepository
	sync       *ShoppingListSync
	notifier   NotificationGateway
	claims     ClaimStore
	cfg        DispatcherConfig
	now        func() time.Time
}

func NewOutboxDispatcher(
	outboxRepo repository.OutboxRepository,
	orderRepo repository.OrderRepository,
	sync *ShoppingListSync,
	notifier NotificationGateway,
	claims ClaimStore,
	cfg DispatcherConfig,
) *OutboxDispatcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 8
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.ClaimTTL <= 0 {
		cfg.ClaimTTL = 24 * time.Hour
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 30 * time.Second
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = time.Hour
	}
	return &OutboxDispatcher{
		outboxRepo: outboxRepo,
		orderRepo:  orderRepo,
		sync:       sync,
		notifier:   notifier,
		claims:     claims,
		cfg:        cfg,
		now:        time.Now,
	}
}

// DispatchOrder runs the pending follow-ups of one order. It is called after
// the order commit and never outlives the configured timeout; whatever does
// not finish stays pending for ProcessDue.
func (d *OutboxDispatcher) DispatchOrder(ctx context.Context, orderID uint) {
	// the commit already happened, a cancelled request must not stop the follow-up
	base := context.WithoutCancel(ctx)

	run := func() {
		ctx, cancel := context.WithTimeout(base, d.cfg.Timeout)
		defer cancel()

		events, err := d.outboxRepo.FindPendingByOrder(ctx, orderID)
		if err != nil {
			return
		}
		for i := range events {
			if ctx.Err() != nil {
				logger.Warn("Outbox dispatch timed out, leaving events for retry", map[string]interface{}{
					"order_id":  orderID,
					"remaining": len(events) - i,
				})
				return
			}
			d.process(ctx, &events[i])
		}
	}

	if d.cfg.Async {
		go run()
		return
	}
	run()
}

// ProcessDue retries every pending event whose next attempt is due and
// returns how many were delivered.
func (d *OutboxDispatcher) ProcessDue(ctx context.Context) (int, error) {
	events, err := d.outboxRepo.FindDue(ctx, d.now(), d.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	delivered := 0
	for i := range events {
		if ctx.Err() != nil {
			break
		}
		eventCtx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
		if d.process(eventCtx, &events[i]) {
			delivered++
		}
		cancel()
	}

	if len(events) > 0 {
		logger.Info("Outbox retry pass finished", map[string]interface{}{
			"due":       len(events),
			"delivered": delivered,
		})
	}
	return delivered, nil
}

func (d *OutboxDispatcher) process(ctx context.Context, event *model.OutboxEvent) bool {
	claimKey := "outbox:" + event.DedupKey
	if d.claims != nil {
		claimed, err := d.claims.Claim(ctx, claimKey, d.cfg.ClaimTTL)
		if err != nil {
			logger.Warn("Claim store unavailable, dispatching without claim", map[string]interface{}{
				"event_id": event.ID,
				"error":    err.Error(),
			})
		} else if !claimed {
			logger.Debug("Outbox event claimed elsewhere, skipping", map[string]interface{}{
				"event_id":  event.ID,
				"dedup_key": event.DedupKey,
			})
			return false
		}
	}

	// bookkeeping must land even when the dispatch deadline has passed
	bookkeeping := context.WithoutCancel(ctx)

	err := d.handle(ctx, event)
	if err == nil {
		if err := d.outboxRepo.MarkDone(bookkeeping, event.ID); err != nil {
			logger.Error("Failed to mark outbox event done", err, map[string]interface{}{
				"event_id": event.ID,
			})
		}
		logger.Debug("Outbox event delivered", map[string]interface{}{
			"event_id": event.ID,
			"kind":     event.Kind,
			"order_id": event.OrderID,
		})
		return true
	}

	if d.claims != nil {
		_ = d.claims.Release(bookkeeping, claimKey)
	}

	attempts := event.Attempts + 1
	dead := attempts >= d.cfg.MaxAttempts || errors.Is(err, errPermanent)
	next := d.now().Add(d.backoff(attempts))
	deferred := fmt.Errorf("%w: %v", ErrSyncDeferred, err)

	fields := map[string]interface{}{
		"event_id":        event.ID,
		"kind":            event.Kind,
		"order_id":        event.OrderID,
		"attempts":        attempts,
		"next_attempt_at": next,
	}
	if dead {
		logger.Error("Outbox event exhausted its retries", deferred, fields)
	} else {
		logger.Warn("Outbox event failed, scheduled for retry", fields)
	}

	if err := d.outboxRepo.MarkFailed(bookkeeping, event.ID, attempts, next, err.Error(), dead); err != nil {
		logger.Error("Failed to record outbox failure", err, map[string]interface{}{
			"event_id": event.ID,
		})
	}
	return false
}

func (d *OutboxDispatcher) handle(ctx context.Context, event *model.OutboxEvent) error {
	switch event.Kind {
	case model.OutboxKindStatusUpdate:
		status, err := decodeStatusPayload(event)
		if err != nil {
			return fmt.Errorf("%w: %v", errPermanent, err)
		}
		order, err := d.loadOrder(ctx, event.OrderID)
		if err != nil || d.notifier == nil {
			return err
		}
		return d.notifier.SendStatusUpdate(ctx, order, status)

	case model.OutboxKindRefundNotice:
		order, err := d.loadOrder(ctx, event.OrderID)
		if err != nil || d.notifier == nil {
			return err
		}
		return d.notifier.SendRefundNotice(ctx, order)

	case model.OutboxKindShoppingListSync:
		status, err := decodeStatusPayload(event)
		if err != nil {
			return fmt.Errorf("%w: %v", errPermanent, err)
		}
		order, err := d.loadOrder(ctx, event.OrderID)
		if err != nil || d.sync == nil {
			return err
		}
		return d.sync.Apply(ctx, order, status)
	}

	return fmt.Errorf("%w: unknown outbox kind %q", errPermanent, event.Kind)
}

func (d *OutboxDispatcher) loadOrder(ctx context.Context, orderID uint) (*model.Order, error) {
	order, err := d.orderRepo.FindByID(ctx, orderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", errPermanent, ErrOrderNotFound)
	}
	return order, err
}

// backoff doubles from BaseBackoff per attempt, capped at MaxBackoff
func (d *OutboxDispatcher) backoff(attempts int) time.Duration {
	wait := d.cfg.BaseBackoff
	for i := 1; i < attempts; i++ {
		wait *= 2
		if wait >= d.cfg.MaxBackoff {
			return d.cfg.MaxBackoff
		}
	}
	return wait
}
