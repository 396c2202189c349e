package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Price is a variant price, optionally owned by a seller.
type Price struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	VariantID uuid.UUID       `gorm:"column:variant_id;type:uuid;not null;index"`
	SellerID  *uuid.UUID      `gorm:"column:seller_id;type:uuid;index"`
	Amount    decimal.Decimal `gorm:"column:amount;type:numeric(12,2);not null"`
	Currency  string          `gorm:"column:currency;not null"`
	Seller    *Seller         `gorm:"foreignKey:SellerID"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Price) BeforeCreate(*gorm.DB) error {
	assignID(&p.ID)
	return nil
}
