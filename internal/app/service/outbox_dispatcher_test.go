package service

import (
	"context"
	"testing"
	"time"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/pkg/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func findOutbox(t *testing.T, env *testEnv, orderID uint, kind model.OutboxKind) model.OutboxEvent {
	t.Helper()
	var event model.OutboxEvent
	require.NoError(t, env.db.Where("order_id = ? AND kind = ?", orderID, kind).First(&event).Error)
	return event
}

// pinClock freezes the dispatcher clock and returns a function that moves it
func pinClock(env *testEnv) func(d time.Duration) time.Time {
	now := time.Now()
	env.dispatcher.now = func() time.Time { return now }
	return func(d time.Duration) time.Time {
		now = now.Add(d)
		return now
	}
}

func TestOutboxDispatcher_RetriesAfterBackoff(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	advance := pinClock(env)
	order := createTestOrder(t, env)

	env.notifier.setErr(errRelayDown)
	updated, err := env.lifecycle.SetStatus(ctx, order.ID, model.OrderStatusConfirmed)
	require.NoError(t, err, "notification failure must not fail the status change")
	assert.Equal(t, model.OrderStatusConfirmed, updated.Status)

	event := findOutbox(t, env, order.ID, model.OutboxKindStatusUpdate)
	assert.Equal(t, model.OutboxPending, event.Status)
	assert.Equal(t, 1, event.Attempts)
	assert.Contains(t, event.LastError, "relay down")

	env.notifier.setErr(nil)

	delivered, err := env.dispatcher.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, delivered, "event is not due before its backoff elapses")

	advance(2 * time.Minute)
	delivered, err = env.dispatcher.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)

	assert.Equal(t, []model.OrderStatus{model.OrderStatusConfirmed}, env.notifier.sentStatuses(order.ID))
	assert.Equal(t, model.OutboxDone, findOutbox(t, env, order.ID, model.OutboxKindStatusUpdate).Status)
}

func TestOutboxDispatcher_DeadAfterMaxAttempts(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	advance := pinClock(env)
	order := createTestOrder(t, env)

	env.notifier.setErr(errRelayDown)
	_, err := env.lifecycle.SetStatus(ctx, order.ID, model.OrderStatusConfirmed)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		advance(2 * time.Hour)
		delivered, err := env.dispatcher.ProcessDue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, delivered)
	}

	event := findOutbox(t, env, order.ID, model.OutboxKindStatusUpdate)
	assert.Equal(t, model.OutboxDead, event.Status)
	assert.Equal(t, 3, event.Attempts)

	env.notifier.setErr(nil)
	advance(2 * time.Hour)
	delivered, err := env.dispatcher.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, delivered, "dead events are not retried")
	assert.Empty(t, env.notifier.sentStatuses(order.ID))
}

func TestOutboxDispatcher_PermanentFailures(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	order := createTestOrder(t, env)

	tests := []struct {
		name  string
		event model.OutboxEvent
	}{
		{
			name:  "undecodable payload",
			event: model.OutboxEvent{Kind: model.OutboxKindStatusUpdate, OrderID: order.ID, Payload: "{", DedupKey: "bad-json"},
		},
		{
			name:  "unknown status",
			event: model.OutboxEvent{Kind: model.OutboxKindShoppingListSync, OrderID: order.ID, Payload: `{"status":"shipped"}`, DedupKey: "bad-status"},
		},
		{
			name:  "unknown kind",
			event: model.OutboxEvent{Kind: "sms_blast", OrderID: order.ID, Payload: "{}", DedupKey: "bad-kind"},
		},
		{
			name:  "order deleted",
			event: model.OutboxEvent{Kind: model.OutboxKindRefundNotice, OrderID: 98765, Payload: "{}", DedupKey: "no-order"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := tt.event
			inserted, err := env.outboxRepo.Enqueue(ctx, &event)
			require.NoError(t, err)
			require.True(t, inserted)

			env.dispatcher.DispatchOrder(ctx, event.OrderID)

			stored, err := env.outboxRepo.FindByID(ctx, event.ID)
			require.NoError(t, err)
			assert.Equal(t, model.OutboxDead, stored.Status)
			assert.Equal(t, 1, stored.Attempts)
		})
	}
}

func TestOutboxDispatcher_SkipsClaimedEvents(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	claims := cache.NewMemoryClaimStore(time.Hour, time.Minute)
	dispatcher := NewOutboxDispatcher(env.outboxRepo, env.orderRepo, NewShoppingListSync(env.listRepo),
		env.notifier, claims, DispatcherConfig{})
	order := createTestOrder(t, env)

	event, err := newStatusUpdateEvent(order, model.OrderStatusConfirmed)
	require.NoError(t, err)
	_, err = env.outboxRepo.Enqueue(ctx, event)
	require.NoError(t, err)

	claimed, err := claims.Claim(ctx, "outbox:"+event.DedupKey, time.Minute)
	require.NoError(t, err)
	require.True(t, claimed)

	dispatcher.DispatchOrder(ctx, order.ID)
	assert.Empty(t, env.notifier.sentStatuses(order.ID))

	stored, err := env.outboxRepo.FindByID(ctx, event.ID)
	require.NoError(t, err)
	assert.Equal(t, model.OutboxPending, stored.Status)
	assert.Equal(t, 0, stored.Attempts)

	require.NoError(t, claims.Release(ctx, "outbox:"+event.DedupKey))
	dispatcher.DispatchOrder(ctx, order.ID)
	assert.Equal(t, []model.OrderStatus{model.OrderStatusConfirmed}, env.notifier.sentStatuses(order.ID))
}

func TestOutboxDispatcher_FailedClaimIsReleased(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	advance := pinClock(env)
	order := createTestOrder(t, env)

	env.notifier.setErr(errRelayDown)
	_, err := env.lifecycle.SetStatus(ctx, order.ID, model.OrderStatusConfirmed)
	require.NoError(t, err)

	// the failed attempt gave its claim back, so the retry pass may take it
	env.notifier.setErr(nil)
	advance(time.Hour)
	delivered, err := env.dispatcher.ProcessDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
}

func TestOutboxEnqueue_Deduplicates(t *testing.T) {
	env := setupServiceTest(t)
	ctx := context.Background()
	order := createTestOrder(t, env)

	for i := 0; i < 2; i++ {
		event, err := newStatusUpdateEvent(order, model.OrderStatusConfirmed)
		require.NoError(t, err)
		inserted, err := env.outboxRepo.Enqueue(ctx, event)
		require.NoError(t, err)
		assert.Equal(t, i == 0, inserted, "attempt %d", i)
	}
	assert.Equal(t, int64(1), countOutbox(t, env, order.ID, model.OutboxKindStatusUpdate))
}

func TestOutboxDispatcher_Backoff(t *testing.T) {
	d := NewOutboxDispatcher(nil, nil, nil, nil, nil, DispatcherConfig{
		BaseBackoff: 30 * time.Second,
		MaxBackoff:  5 * time.Minute,
	})

	assert.Equal(t, 30*time.Second, d.backoff(1))
	assert.Equal(t, time.Minute, d.backoff(2))
	assert.Equal(t, 4*time.Minute, d.backoff(4))
	assert.Equal(t, 5*time.Minute, d.backoff(5))
	assert.Equal(t, 5*time.Minute, d.backoff(20))
}
