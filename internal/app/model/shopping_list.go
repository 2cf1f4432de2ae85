package model

import (
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

type ShoppingListStatus string // 장보기 목록 상태

const (
	ShoppingListPending        ShoppingListStatus = "pending"          // 접수, 가격 산정 전
	ShoppingListReady          ShoppingListStatus = "ready"            // 가격 산정 완료
	ShoppingListPaid           ShoppingListStatus = "paid"             // 주문 전환 완료
	ShoppingListOutForDelivery ShoppingListStatus = "out_for_delivery" // 배송 중
	ShoppingListCompleted      ShoppingListStatus = "completed"        // 배송 완료
	ShoppingListCancelled      ShoppingListStatus = "cancelled"        // 취소
)

// ShoppingList is a free-form request an admin prices and converts into an order
type ShoppingList struct {
	ID             uint               `gorm:"primarykey" json:"id"`
	CustomerID     *uint              `gorm:"index" json:"customer_id,omitempty"`
	CustomerName   string             `gorm:"type:varchar(100);not null" json:"customer_name"`
	CustomerPhone  string             `gorm:"type:varchar(30);not null;index" json:"customer_phone"`
	CustomerEmail  string             `gorm:"type:varchar(255)" json:"customer_email"`
	ListText       string             `gorm:"type:text" json:"list_text"`
	ListPhotos     pq.StringArray     `gorm:"type:text" json:"list_photos"` // 업로드된 사진 URL 목록
	Status         ShoppingListStatus `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"`
	EstimatedTotal decimal.Decimal    `gorm:"type:numeric(12,2);default:0" json:"estimated_total"` // 관리자 견적 금액
	AdminNotes     string             `gorm:"type:text" json:"admin_notes,omitempty"`
	OrderID        *uint              `gorm:"index" json:"order_id,omitempty"` // 전환된 주문 ID
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

func (ShoppingList) TableName() string {
	return "shopping_lists"
}

// ShoppingListStatusFor translates an order status into the reduced shopping
// list vocabulary. ok is false when the list status must stay as it is.
func ShoppingListStatusFor(status OrderStatus) (ShoppingListStatus, bool) {
	switch status {
	case OrderStatusOutForDelivery:
		return ShoppingListOutForDelivery, true
	case OrderStatusCompleted:
		return ShoppingListCompleted, true
	case OrderStatusCancelled:
		return ShoppingListCancelled, true
	}
	return "", false
}

// 배송 진행 순서. 완료와 취소는 같은 종착 단계
var shoppingListProgress = []ShoppingListStatus{
	ShoppingListPending,
	ShoppingListReady,
	ShoppingListPaid,
	ShoppingListOutForDelivery,
}

// AdvancesFrom lists the statuses a list may move forward from into s.
// Terminal statuses advance from nothing.
func (s ShoppingListStatus) AdvancesFrom() []ShoppingListStatus {
	switch s {
	case ShoppingListCompleted, ShoppingListCancelled:
		return shoppingListProgress
	}
	for i, status := range shoppingListProgress {
		if status == s {
			return shoppingListProgress[:i]
		}
	}
	return nil
}
