package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type OutboxKind string   // 후속 작업 종류
type OutboxStatus string // 후속 작업 상태

const (
	OutboxKindStatusUpdate     OutboxKind = "status_update"      // 배송 상태 알림
	OutboxKindRefundNotice     OutboxKind = "refund_notice"      // 환불 알림
	OutboxKindShoppingListSync OutboxKind = "shopping_list_sync" // 장보기 목록 상태 동기화

	OutboxPending OutboxStatus = "pending"
	OutboxDone    OutboxStatus = "done"
	OutboxDead    OutboxStatus = "dead" // 최대 재시도 초과
)

// OutboxEvent is a follow-up written in the same transaction as the order
// change and dispatched after commit.
type OutboxEvent struct {
	ID            string       `gorm:"type:varchar(36);primarykey" json:"id"`
	Kind          OutboxKind   `gorm:"type:varchar(30);not null;index" json:"kind"`
	OrderID       uint         `gorm:"not null;index" json:"order_id"`
	Payload       string       `gorm:"type:text" json:"payload"` // JSON
	DedupKey      string       `gorm:"type:varchar(150);not null;uniqueIndex" json:"dedup_key"`
	Status        OutboxStatus `gorm:"type:varchar(20);not null;default:'pending';index:idx_outbox_due,priority:1" json:"status"`
	Attempts      int          `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt time.Time    `gorm:"index:idx_outbox_due,priority:2" json:"next_attempt_at"`
	LastError     string       `gorm:"type:text" json:"last_error,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
}

func (OutboxEvent) TableName() string {
	return "outbox_events"
}

func (e *OutboxEvent) BeforeCreate(tx *gorm.DB) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.Status == "" {
		e.Status = OutboxPending
	}
	if e.NextAttemptAt.IsZero() {
		e.NextAttemptAt = time.Now()
	}
	return nil
}
