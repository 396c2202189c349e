package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/marketplace-payments/pkg/enums"
)

// PaymentSource holds the processor-side identifiers and status of a payment.
type PaymentSource struct {
	ID              uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	PaymentID       uuid.UUID                 `gorm:"column:payment_id;type:uuid;not null;uniqueIndex"`
	Processor       enums.PaymentProcessor    `gorm:"column:processor;type:text;not null"`
	ExternalOrderID string                    `gorm:"column:external_order_id;not null;index"`
	AuthorizationID *string                   `gorm:"column:authorization_id;index"`
	CaptureID       *string                   `gorm:"column:capture_id;index"`
	RefundID        *string                   `gorm:"column:refund_id"`
	ResponseStatus  enums.PaymentSourceStatus `gorm:"column:response_status;type:text;not null;default:'pending'"`
	FailureReason   *string                   `gorm:"column:failure_reason"`
	RefundedAmount  decimal.Decimal           `gorm:"column:refunded_amount;type:numeric(12,2);not null;default:0"`
	Payment         *Payment                  `gorm:"foreignKey:PaymentID"`
	CreatedAt       time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

func (s *PaymentSource) BeforeCreate(*gorm.DB) error {
	assignID(&s.ID)
	if s.ResponseStatus == "" {
		s.ResponseStatus = enums.PaymentSourceStatusPending
	}
	return nil
}
