package service

import "github.com/ikkim/bazaar-backend/internal/app/model"

// 주문 상태 전환 규칙
// pending → confirmed → preparing → out_for_delivery → completed
// 배송 시작 전까지만 취소 가능, refunded 는 환불 처리로만 설정됨
var allowedTransitions = map[model.OrderStatus][]model.OrderStatus{
	model.OrderStatusPending:        {model.OrderStatusConfirmed, model.OrderStatusCancelled},
	model.OrderStatusConfirmed:      {model.OrderStatusPreparing, model.OrderStatusCancelled},
	model.OrderStatusPreparing:      {model.OrderStatusOutForDelivery, model.OrderStatusCancelled},
	model.OrderStatusOutForDelivery: {model.OrderStatusCompleted},
}

// CanTransition reports whether an order in status from may move to status to
func CanTransition(from, to model.OrderStatus) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}
