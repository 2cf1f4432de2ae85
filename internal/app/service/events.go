package service

import (
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/ikkim/bazaar-backend/internal/app/model"
)

// statusPayload is the body of status_update and shopping_list_sync events
type statusPayload struct {
	Status model.OrderStatus `json:"status"`
}

type refundPayload struct {
	Amount string `json:"amount"`
	Reason string `json:"reason"`
}

func newStatusUpdateEvent(order *model.Order, status model.OrderStatus) (*model.OutboxEvent, error) {
	return newOutboxEvent(model.OutboxKindStatusUpdate, order.ID,
		fmt.Sprintf("order:%d:status:%s", order.ID, status),
		statusPayload{Status: status})
}

// newShoppingListSyncEvent returns nil when the order has no shopping list
// origin or the status has no shopping list counterpart.
func newShoppingListSyncEvent(order *model.Order, status model.OrderStatus) (*model.OutboxEvent, error) {
	if !order.HasShoppingListOrigin() {
		return nil, nil
	}
	if _, ok := model.ShoppingListStatusFor(status); !ok {
		return nil, nil
	}
	return newOutboxEvent(model.OutboxKindShoppingListSync, order.ID,
		fmt.Sprintf("order:%d:sl:%s", order.ID, status),
		statusPayload{Status: status})
}

// A processed refund is final, so one notice per order is enough
func newRefundNoticeEvent(order *model.Order) (*model.OutboxEvent, error) {
	return newOutboxEvent(model.OutboxKindRefundNotice, order.ID,
		fmt.Sprintf("order:%d:refund", order.ID),
		refundPayload{Amount: order.RefundAmount.StringFixed(2), Reason: order.RefundReason})
}

func newOutboxEvent(kind model.OutboxKind, orderID uint, dedupKey string, payload interface{}) (*model.OutboxEvent, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s payload: %w", kind, err)
	}
	return &model.OutboxEvent{
		Kind:     kind,
		OrderID:  orderID,
		Payload:  string(body),
		DedupKey: dedupKey,
	}, nil
}

func decodeStatusPayload(event *model.OutboxEvent) (model.OrderStatus, error) {
	var p statusPayload
	if err := json.Unmarshal([]byte(event.Payload), &p); err != nil {
		return "", fmt.Errorf("failed to decode %s payload: %w", event.Kind, err)
	}
	if !p.Status.IsValid() {
		return "", fmt.Errorf("%w: %q in outbox event %s", ErrInvalidStatus, p.Status, event.ID)
	}
	return p.Status, nil
}
