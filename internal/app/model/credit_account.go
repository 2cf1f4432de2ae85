package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditAccount is a business customer buying on credit
type CreditAccount struct {
	ID                 uint            `gorm:"primarykey" json:"id"`
	CustomerID         uint            `gorm:"not null;uniqueIndex" json:"customer_id"`
	BusinessName       string          `gorm:"type:varchar(255);not null" json:"business_name"`
	DiscountPercent    decimal.Decimal `gorm:"type:numeric(5,2);not null;default:0" json:"discount_percent"` // 사업자 할인율(%)
	CreditLimit        decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"credit_limit"`    // 0 이면 한도 없음
	OutstandingBalance decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"outstanding_balance"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

func (CreditAccount) TableName() string {
	return "credit_accounts"
}

// CanCharge reports whether amount fits under the credit limit
func (a *CreditAccount) CanCharge(amount decimal.Decimal) bool {
	if !a.CreditLimit.IsPositive() {
		return true
	}
	return a.OutstandingBalance.Add(amount).LessThanOrEqual(a.CreditLimit)
}
