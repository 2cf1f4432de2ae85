package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReplacementApplication records a substitution whose price delta has been
// applied to the order total. One row per order line.
type ReplacementApplication struct {
	ID                   uint            `gorm:"primarykey" json:"id"`
	OrderID              uint            `gorm:"not null;uniqueIndex:idx_replacement_order_item" json:"order_id"`      // 주문 ID
	OrderItemID          uint            `gorm:"not null;uniqueIndex:idx_replacement_order_item" json:"order_item_id"` // 대체된 주문 항목 ID
	ReplacementProductID uint            `gorm:"not null" json:"replacement_product_id"`
	OriginalTotal        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"original_total"`    // 기존 항목 금액
	ReplacementTotal     decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"replacement_total"` // 대체 항목 금액
	PriceDifference      decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price_difference"`  // 적용 차액
	IdempotencyKey       *string         `gorm:"type:varchar(100);uniqueIndex" json:"idempotency_key,omitempty"`
	AppliedBy            *uint           `json:"applied_by,omitempty"` // 적용한 관리자 ID
	CreatedAt            time.Time       `json:"created_at"`
}

func (ReplacementApplication) TableName() string {
	return "order_replacements"
}
