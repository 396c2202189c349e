package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/marketplace-payments/pkg/db/types"
)

// Order is the buyer-facing aggregate that owns line items, shipments and payments.
type Order struct {
	ID            uuid.UUID          `gorm:"column:id;type:uuid;primaryKey"`
	Number        string             `gorm:"column:number;not null;uniqueIndex"`
	Currency      string             `gorm:"column:currency;not null"`
	Total         decimal.Decimal    `gorm:"column:total;type:numeric(12,2);not null"`
	CheckoutSteps dbtypes.StringList `gorm:"column:checkout_steps;type:jsonb"`
	LineItems     []LineItem         `gorm:"foreignKey:OrderID"`
	Shipments     []Shipment         `gorm:"foreignKey:OrderID"`
	Payments      []Payment          `gorm:"foreignKey:OrderID"`
	CreatedAt     time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	assignID(&o.ID)
	return nil
}

// HasCheckoutStep reports whether the order's checkout flow includes step.
func (o *Order) HasCheckoutStep(step string) bool {
	for _, s := range o.CheckoutSteps {
		if s == step {
			return true
		}
	}
	return false
}
