package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type OrderStatus string         // 주문 상태 코드
type PaymentMethod string       // 결제 수단
type PaymentStatus string       // 결제 상태 코드
type DeliveryMethod string      // 수령 방식
type RefundRequestStatus string // 환불 요청 상태
type RefundStatus string        // 환불 처리 상태
type ReplacementStatus string   // 대체 상품 협의 상태

const (
	OrderStatusPending        OrderStatus = "pending"          // 주문 접수
	OrderStatusConfirmed      OrderStatus = "confirmed"        // 주문 확정
	OrderStatusPreparing      OrderStatus = "preparing"        // 상품 준비 중
	OrderStatusOutForDelivery OrderStatus = "out_for_delivery" // 배송 중
	OrderStatusCompleted      OrderStatus = "completed"        // 배송 완료
	OrderStatusCancelled      OrderStatus = "cancelled"        // 주문 취소
	OrderStatusRefunded       OrderStatus = "refunded"         // 환불 완료 (환불 처리로만 설정)

	PaymentMethodCOD          PaymentMethod = "cod"
	PaymentMethodPayAtPickup  PaymentMethod = "pay_at_pickup"
	PaymentMethodEsewa        PaymentMethod = "esewa"
	PaymentMethodKhalti       PaymentMethod = "khalti"
	PaymentMethodUPI          PaymentMethod = "upi"
	PaymentMethodPhonePe      PaymentMethod = "phonepe"
	PaymentMethodFonepay      PaymentMethod = "fonepay"
	PaymentMethodPaypal       PaymentMethod = "paypal"
	PaymentMethodCard         PaymentMethod = "card"
	PaymentMethodCredit       PaymentMethod = "credit"        // 사업자 외상 계정
	PaymentMethodShoppingList PaymentMethod = "shopping_list" // 장보기 목록 전환 주문

	PaymentStatusPending   PaymentStatus = "pending"   // 결제 대기
	PaymentStatusCompleted PaymentStatus = "completed" // 결제 완료
	PaymentStatusFailed    PaymentStatus = "failed"    // 결제 실패

	DeliveryMethodHome   DeliveryMethod = "home_delivery" // 배달
	DeliveryMethodPickup DeliveryMethod = "pickup"        // 매장 픽업

	RefundRequestNone     RefundRequestStatus = "none"
	RefundRequestPending  RefundRequestStatus = "pending"
	RefundRequestApproved RefundRequestStatus = "approved"
	RefundRequestRejected RefundRequestStatus = "rejected"

	RefundStatusNone      RefundStatus = "none"
	RefundStatusProcessed RefundStatus = "processed"

	ReplacementNone                ReplacementStatus = "none"
	ReplacementPendingVerification ReplacementStatus = "pending_verification"
	ReplacementVerified            ReplacementStatus = "verified"
	ReplacementApprovedByAdmin     ReplacementStatus = "approved_by_admin"
)

// FullOrderLabel is the requested-items label of a whole-order refund request
const FullOrderLabel = "Full Order"

var orderStatuses = map[OrderStatus]bool{
	OrderStatusPending:        true,
	OrderStatusConfirmed:      true,
	OrderStatusPreparing:      true,
	OrderStatusOutForDelivery: true,
	OrderStatusCompleted:      true,
	OrderStatusCancelled:      true,
	OrderStatusRefunded:       true,
}

func (s OrderStatus) IsValid() bool {
	return orderStatuses[s]
}

// IsTerminal reports whether no further status transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled || s == OrderStatusRefunded
}

var paymentMethods = map[PaymentMethod]bool{
	PaymentMethodCOD: true, PaymentMethodPayAtPickup: true, PaymentMethodEsewa: true,
	PaymentMethodKhalti: true, PaymentMethodUPI: true, PaymentMethodPhonePe: true,
	PaymentMethodFonepay: true, PaymentMethodPaypal: true, PaymentMethodCard: true,
	PaymentMethodCredit: true, PaymentMethodShoppingList: true,
}

func (m PaymentMethod) IsValid() bool {
	return paymentMethods[m]
}

// IsOnline reports whether the money was collected through a wallet or card
// gateway and must be returned through a refund on cancellation.
func (m PaymentMethod) IsOnline() bool {
	switch m {
	case PaymentMethodEsewa, PaymentMethodKhalti, PaymentMethodUPI, PaymentMethodPhonePe,
		PaymentMethodFonepay, PaymentMethodPaypal, PaymentMethodCard:
		return true
	}
	return false
}

type Order struct {
	ID                 uint           `gorm:"primarykey" json:"id"`                                            // 주문 ID
	OrderNumber        string         `gorm:"type:varchar(40);uniqueIndex;not null" json:"order_number"`       // 주문 번호
	CustomerID         *uint          `gorm:"index" json:"customer_id,omitempty"`                              // 주문자 ID (비회원 주문은 nil)
	CustomerName       string         `gorm:"type:varchar(100)" json:"customer_name"`                          // 주문자 이름
	CustomerPhone      string         `gorm:"type:varchar(30);index" json:"customer_phone"`                    // 주문자 연락처
	CustomerEmail      string         `gorm:"type:varchar(255)" json:"customer_email"`                         // 주문자 이메일
	Status             OrderStatus    `gorm:"type:varchar(30);not null;default:'pending';index" json:"status"` // 주문 상태
	PaymentMethod      PaymentMethod  `gorm:"type:varchar(30);not null" json:"payment_method"`                 // 결제 수단
	PaymentStatus      PaymentStatus  `gorm:"type:varchar(20);not null;default:'pending'" json:"payment_status"`
	PaymentReference   string         `gorm:"type:varchar(100)" json:"payment_reference,omitempty"` // 결제 게이트웨이 거래 번호
	PaymentCompletedAt *time.Time     `json:"payment_completed_at,omitempty"`
	DeliveryMethod     DeliveryMethod `gorm:"type:varchar(20);not null;default:'home_delivery'" json:"delivery_method"`
	DeliveryAddress    string         `gorm:"type:text" json:"delivery_address,omitempty"`
	DeliveryDistanceKm float64        `json:"delivery_distance_km,omitempty"`
	PickupLocation     string         `gorm:"type:varchar(255)" json:"pickup_location,omitempty"`

	Subtotal                   decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"subtotal"`                     // 상품 합계
	DeliveryFee                decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"delivery_fee"`                 // 배달비
	BusinessDiscount           decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"business_discount"`            // 사업자 할인
	ReplacementAdjustmentTotal decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"replacement_adjustment_total"` // 대체 상품 차액 누계
	TotalAmount                decimal.Decimal `gorm:"type:numeric(12,2);not null;default:0" json:"total_amount"`                 // 최종 결제 금액

	ShoppingListID    *uint           `gorm:"index" json:"shopping_list_id,omitempty"`           // 전환된 장보기 목록 ID
	ShoppingListTotal decimal.Decimal `gorm:"type:numeric(12,2);default:0" json:"shopping_list_total"`
	ShoppingListText  string          `gorm:"type:text" json:"shopping_list_text,omitempty"`

	RefundRequestStatus        RefundRequestStatus `gorm:"type:varchar(20);not null;default:'none'" json:"refund_request_status"`
	RefundRequestedAmount      decimal.Decimal     `gorm:"type:numeric(12,2);default:0" json:"refund_requested_amount"`
	RefundRequestedItems       string              `gorm:"type:text" json:"refund_requested_items,omitempty"`  // 환불 요청 상품명
	RefundRequestedItemIndexes pq.Int64Array       `gorm:"type:text" json:"refund_requested_item_indexes"`     // 최초 요청 시 선택한 상품 위치
	RefundRequestReason        string              `gorm:"type:text" json:"refund_request_reason,omitempty"`
	RefundRequestedAt          *time.Time          `json:"refund_requested_at,omitempty"`
	RefundRejectionReason      string              `gorm:"type:text" json:"refund_rejection_reason,omitempty"`
	RefundStatus               RefundStatus        `gorm:"type:varchar(20);not null;default:'none'" json:"refund_status"`
	RefundAmount               decimal.Decimal     `gorm:"type:numeric(12,2);default:0" json:"refund_amount"`
	RefundDate                 *time.Time          `json:"refund_date,omitempty"`
	RefundReason               string              `gorm:"type:text" json:"refund_reason,omitempty"`

	ReplacementStatus          ReplacementStatus `gorm:"type:varchar(30);not null;default:'none'" json:"replacement_status"`
	ReplacementItems           string            `gorm:"type:text" json:"replacement_items,omitempty"`
	ReplacementItemIndexes     pq.Int64Array     `gorm:"type:text" json:"replacement_item_indexes"`
	ReplacementSuggestion      string            `gorm:"type:text" json:"replacement_suggestion,omitempty"`
	ReplacementNewTotal        decimal.Decimal   `gorm:"type:numeric(12,2);default:0" json:"replacement_new_total"`
	ReplacementFinalTotal      decimal.Decimal   `gorm:"type:numeric(12,2);default:0" json:"replacement_final_total"`
	ReplacementCustomerNote    string            `gorm:"type:text" json:"replacement_customer_note,omitempty"`
	ReplacementPriceAdjustment decimal.Decimal   `gorm:"type:numeric(12,2);default:0" json:"replacement_price_adjustment"` // 마지막 적용 차액

	Version   int       `gorm:"not null;default:1" json:"version"` // 낙관적 잠금 버전
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"` // 주문 항목 (position 순)
}

func (Order) TableName() string {
	return "orders"
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.OrderNumber == "" {
		o.OrderNumber = NewOrderNumber(time.Now())
	}
	if o.Status == "" {
		o.Status = OrderStatusPending
	}
	if o.PaymentStatus == "" {
		o.PaymentStatus = PaymentStatusPending
	}
	if o.DeliveryMethod == "" {
		o.DeliveryMethod = DeliveryMethodHome
	}
	if o.RefundRequestStatus == "" {
		o.RefundRequestStatus = RefundRequestNone
	}
	if o.RefundStatus == "" {
		o.RefundStatus = RefundStatusNone
	}
	if o.ReplacementStatus == "" {
		o.ReplacementStatus = ReplacementNone
	}
	if o.Version == 0 {
		o.Version = 1
	}
	return nil
}

// NewOrderNumber returns a human readable order number, e.g. ORD-20260118-3F2A9C1B
func NewOrderNumber(now time.Time) string {
	short := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), short)
}

// HasShoppingListOrigin reports whether the order was converted from a shopping list
func (o *Order) HasShoppingListOrigin() bool {
	return o.ShoppingListID != nil || o.ShoppingListTotal.IsPositive() || strings.TrimSpace(o.ShoppingListText) != ""
}

// ExpectedTotal is subtotal - business discount + delivery fee + applied replacement deltas
func (o *Order) ExpectedTotal() decimal.Decimal {
	return o.Subtotal.Sub(o.BusinessDiscount).Add(o.DeliveryFee).Add(o.ReplacementAdjustmentTotal)
}

// RecalculateTotal re-derives TotalAmount from its components
func (o *Order) RecalculateTotal() {
	o.TotalAmount = o.ExpectedTotal()
}

// ItemNames joins the product names at the given positions
func (o *Order) ItemNames(indexes []int) string {
	names := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		names = append(names, o.Items[idx].ProductName)
	}
	return strings.Join(names, ", ")
}

type OrderItem struct {
	ID                     uint            `gorm:"primarykey" json:"id"`                               // 주문 항목 ID
	OrderID                uint            `gorm:"not null;index" json:"order_id"`                     // 주문 ID
	Position               int             `gorm:"not null" json:"position"`                           // 주문 내 순서
	ProductID              uint            `gorm:"not null;index" json:"product_id"`                   // 상품 ID
	ProductName            string          `gorm:"type:varchar(255);not null" json:"product_name"`     // 주문 시점 상품명
	Quantity               int             `gorm:"not null" json:"quantity"`                           // 수량
	UnitPrice              decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"unit_price"`      // 단가
	TotalPrice             decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"total_price"`     // 단가 x 수량
	ReplacementProductID   *uint           `json:"replacement_product_id,omitempty"`                   // 대체 상품 ID
	ReplacementProductName string          `gorm:"type:varchar(255)" json:"replacement_product_name,omitempty"`
	CreatedAt              time.Time       `json:"created_at"`
}

func (OrderItem) TableName() string {
	return "order_items"
}
