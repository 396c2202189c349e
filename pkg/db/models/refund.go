package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Refund records an operator-initiated credit against a captured payment.
type Refund struct {
	ID                uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID         uuid.UUID       `gorm:"column:payment_id;type:uuid;not null;index"`
	Amount            decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Reason            *string         `gorm:"column:reason"`
	ProcessorRefundID *string         `gorm:"column:processor_refund_id"`
	CreatedAt         time.Time       `gorm:"column:created_at;autoCreateTime"`
}

func (r *Refund) BeforeCreate(*gorm.DB) error {
	assignID(&r.ID)
	return nil
}
