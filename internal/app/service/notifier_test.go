package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/ikkim/bazaar-backend/internal/app/model"
	"github.com/ikkim/bazaar-backend/pkg/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []notify.Email
	err  error
}

func (f *fakeSender) Send(_ context.Context, email notify.Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

func notifierOrder() *model.Order {
	return &model.Order{
		ID:            7,
		OrderNumber:   "ORD-20260118-3F2A9C1B",
		CustomerName:  "Sita Sharma",
		CustomerEmail: "sita@example.com",
		TotalAmount:   dec("1500"),
		RefundAmount:  dec("500"),
		RefundReason:  "Damaged item",
	}
}

func TestEmailNotifier_SendStatusUpdate(t *testing.T) {
	sender := &fakeSender{}
	n := NewEmailNotifier(sender, "ops@example.com")

	require.NoError(t, n.SendStatusUpdate(context.Background(), notifierOrder(), model.OrderStatusOutForDelivery))
	require.Len(t, sender.sent, 1)

	email := sender.sent[0]
	assert.Equal(t, "sita@example.com", email.To)
	assert.Equal(t, "Order ORD-20260118-3F2A9C1B: Out for delivery", email.Subject)
	assert.Contains(t, email.Text, "is now out for delivery")
	assert.Contains(t, email.Text, "Rs. 1500.00")
	assert.Equal(t, "out_for_delivery", email.Tags["status"])
}

func TestEmailNotifier_SkipsOrdersWithoutEmail(t *testing.T) {
	sender := &fakeSender{}
	n := NewEmailNotifier(sender, "")

	order := notifierOrder()
	order.CustomerEmail = ""
	require.NoError(t, n.SendStatusUpdate(context.Background(), order, model.OrderStatusConfirmed))
	require.NoError(t, n.SendRefundNotice(context.Background(), order))
	assert.Empty(t, sender.sent)
}

func TestEmailNotifier_SendRefundNoticeCopiesAdmin(t *testing.T) {
	sender := &fakeSender{}
	n := NewEmailNotifier(sender, "ops@example.com")

	require.NoError(t, n.SendRefundNotice(context.Background(), notifierOrder()))
	require.Len(t, sender.sent, 2)
	assert.Equal(t, "sita@example.com", sender.sent[0].To)
	assert.Equal(t, "ops@example.com", sender.sent[1].To)
	assert.Contains(t, sender.sent[0].Text, "Rs. 500.00")
	assert.Contains(t, sender.sent[0].Text, "Damaged item")
}

func TestEmailNotifier_Errors(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantRetry bool
	}{
		{"rejected is dropped", fmt.Errorf("%w: 422", notify.ErrRejected), false},
		{"invalid message is dropped", notify.ErrInvalidMessage, false},
		{"unavailable is retried", fmt.Errorf("%w: 503", notify.ErrUnavailable), true},
		{"open circuit is retried", notify.ErrCircuitOpen, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewEmailNotifier(&fakeSender{err: tt.err}, "")
			err := n.SendStatusUpdate(context.Background(), notifierOrder(), model.OrderStatusConfirmed)
			if tt.wantRetry {
				assert.ErrorIs(t, err, tt.err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestMultiNotifier(t *testing.T) {
	ok := &fakeNotifier{}
	failing := &fakeNotifier{err: errRelayDown}
	m := MultiNotifier{ok, failing}
	order := notifierOrder()

	err := m.SendStatusUpdate(context.Background(), order, model.OrderStatusCompleted)
	assert.ErrorIs(t, err, errRelayDown)
	assert.Equal(t, []model.OrderStatus{model.OrderStatusCompleted}, ok.sentStatuses(order.ID), "one failing gateway does not stop the others")

	require.NoError(t, MultiNotifier{ok}.SendRefundNotice(context.Background(), order))
	assert.Equal(t, 1, ok.refundCount(order.ID))
}

func TestStatusLabel(t *testing.T) {
	assert.Equal(t, "Out for delivery", StatusLabel(model.OrderStatusOutForDelivery))
	assert.Equal(t, "Pending", StatusLabel(model.OrderStatusPending))
	assert.Equal(t, "", StatusLabel(""))
}
